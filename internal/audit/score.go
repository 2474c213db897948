package audit

// Signals are the boolean and list inputs to scoring.
type Signals struct {
	IsHTTPS         bool
	Title           string
	HasViewportMeta bool
	HasContactPage  bool
	Emails          []string
	Phones          []string
}

// Score awards points per detected signal and returns the clamped total with
// one note per applied rule.
func Score(s Signals) (int, []string) {
	score := 0
	notes := make([]string, 0, 6)
	add := func(ok bool, points int, note string) {
		if ok {
			score += points
			notes = append(notes, note)
		}
	}

	add(s.IsHTTPS, 10, "HTTPS detected (+10)")
	add(s.Title != "", 5, "Title detected (+5)")
	add(s.HasViewportMeta, 3, "Meta viewport detected (+3)")
	add(s.HasContactPage, 10, "Contact page/signal detected (+10)")
	add(len(s.Emails) > 0, 4, "Email detected (+4)")
	add(len(s.Phones) > 0, 3, "Phone detected (+3)")

	return clamp(score, 0, 100), notes
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
