package prompt

// AgeBand is one of four fixed age ranges used to select response
// complexity. The partition is closed; adding a band means touching every
// exhaustive switch below.
type AgeBand int

const (
	Band5to7 AgeBand = iota
	Band8to10
	Band11to13
	Band14to16
)

func (b AgeBand) String() string {
	switch b {
	case Band5to7:
		return "5-7"
	case Band8to10:
		return "8-10"
	case Band11to13:
		return "11-13"
	case Band14to16:
		return "14-16"
	default:
		return "unknown"
	}
}

// BandForAge maps an age to its band. Ages outside [5,16] fall back to the
// middle band, matching the original template's default.
func BandForAge(age int) AgeBand {
	switch {
	case age >= 5 && age <= 7:
		return Band5to7
	case age >= 8 && age <= 10:
		return Band8to10
	case age >= 11 && age <= 13:
		return Band11to13
	case age >= 14 && age <= 16:
		return Band14to16
	default:
		return Band8to10
	}
}

// Guideline returns the fixed language guidance for the band.
func (b AgeBand) Guideline() string {
	switch b {
	case Band5to7:
		return "Use very simple words. Short sentences. Concrete examples. Lots of encouragement."
	case Band11to13:
		return "Use more complex vocabulary. Encourage critical thinking. Relate to their interests."
	case Band14to16:
		return "Use mature but friendly language. Encourage deeper exploration. Respect their growing independence."
	default:
		return "Use clear language. Explain new words. Use relatable examples from school and play."
	}
}
