package clarify

import "strings"

// interrogativeMarkers is the denylist used to decide whether a field value
// is an unanswered clarification question rather than real data. Kept as a
// single named list so the policy is swappable and testable in one place.
var interrogativeMarkers = []string{
	"?",
	"？",
	"ですか",
	"ますか",
	"でしょうか",
	"教えてください",
}

// IsUnansweredQuestion reports whether a field value looks like a question
// the model leaked into the output instead of an extracted answer.
func IsUnansweredQuestion(value string) bool {
	for _, marker := range interrogativeMarkers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}

// FieldSatisfied reports whether a required field value counts as answered:
// non-empty after trimming and not question-like. The same rule governs both
// the initial extraction check and the merge check.
func FieldSatisfied(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	return !IsUnansweredQuestion(trimmed)
}
