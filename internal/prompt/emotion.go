package prompt

// Emotion is the closed set of emotion labels the pipeline accepts from the
// upstream detector.
type Emotion string

const (
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionSurprised Emotion = "surprised"
	EmotionNeutral   Emotion = "neutral"
	EmotionConfused  Emotion = "confused"
	EmotionExcited   Emotion = "excited"
	EmotionWorried   Emotion = "worried"
)

// ParseEmotion validates a raw label. Unknown labels resolve to neutral so
// a misbehaving detector can never steer the tone.
func ParseEmotion(label string) (Emotion, bool) {
	switch Emotion(label) {
	case EmotionHappy, EmotionSad, EmotionAngry, EmotionSurprised,
		EmotionNeutral, EmotionConfused, EmotionExcited, EmotionWorried:
		return Emotion(label), true
	default:
		return EmotionNeutral, false
	}
}

// Guidance returns the tone instruction for the emotion.
func (e Emotion) Guidance() string {
	switch e {
	case EmotionHappy:
		return "The child seems happy and cheerful. Match their positive energy!"
	case EmotionSad:
		return "The child seems sad. Be gentle, supportive, and validating."
	case EmotionAngry:
		return "The child seems upset or frustrated. Stay calm and help them feel heard."
	case EmotionSurprised:
		return "The child seems surprised or amazed. Share their excitement!"
	case EmotionConfused:
		return "The child seems confused. Be patient and explain clearly."
	case EmotionExcited:
		return "The child seems very excited! Match their enthusiasm!"
	case EmotionWorried:
		return "The child seems worried or anxious. Be reassuring and calm."
	default:
		return "The child seems calm and neutral. Respond naturally."
	}
}
