package safety

import "fmt"

// youngAgeCutoff splits the simpler phrasing used for younger children from
// the fuller explanation given to older ones.
const youngAgeCutoff = 10

// RefusalResponse returns the age-appropriate refusal for a blocked question.
func RefusalResponse(age int) string {
	if age <= youngAgeCutoff {
		return "I can't help with that question. Please ask a parent or teacher instead!"
	}
	return "I'm not able to answer that question. For important topics like this, it's best to talk to a trusted adult, parent, or teacher."
}

// RedirectResponse returns the age-appropriate redirect for a sensitive
// topic, naming the matched category so the child knows what to ask about.
func RedirectResponse(topic string, age int) string {
	if topic == "" {
		topic = "this"
	}
	if age <= youngAgeCutoff {
		return fmt.Sprintf("That's an important question about %s! I think a parent, teacher, or doctor would be the best person to ask about this.", topic)
	}
	return fmt.Sprintf("For questions about %s, I'd recommend talking to a qualified professional like a parent, teacher, or doctor. They can give you better guidance than I can!", topic)
}

// SafeFallback replaces generated text that failed the output check. The
// unsafe text itself must never surface.
func SafeFallback() string {
	return "Hmm, I don't have a good answer for that one. Maybe we can talk about something else, or you can ask a parent or teacher!"
}

// TryAgainResponse is shown when the model backend is unavailable. Raw error
// detail never reaches the child.
func TryAgainResponse() string {
	return "I'm having a little trouble thinking right now. Can you ask me again in a moment?"
}
