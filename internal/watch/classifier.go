package watch

import (
	"fmt"
	"strings"
)

// Phrase tables for the classifier, checked in order. An explicit
// closure statement always beats a sign-in wall, which always beats an
// incidental "submit" elsewhere on the page.
var (
	closedPhrases = []string{
		"no longer accepting responses",
		"not accepting responses",
		"responses are no longer being accepted",
		"this form is no longer accepting responses",
		"is no longer accepting form responses",
	}

	blockedPhrases = []string{
		"please sign in",
		"sign in",
		"access denied",
		"you need permission",
		"accounts.google.com",
	}

	acceptingSignals = []string{
		"submit",
		"send",
		"response",
	}

	formControlMarkers = []string{
		"<form",
		"type=\"submit\"",
		"role=\"button\"",
	}
)

// Classify inspects raw page content and produces a snapshot. A sign-in
// wall is deliberately distinct from closure: it means "unknown", and
// must never be recorded as a confident negative that later masks a
// real transition.
func Classify(source string, content []byte) Snapshot {
	text := strings.ToLower(string(content))

	for _, phrase := range closedPhrases {
		if strings.Contains(text, phrase) {
			return Snapshot{
				Verdict:    VerdictClosed,
				ReasonCode: fmt.Sprintf("matched-closed:%q", phrase),
				Source:     source,
			}
		}
	}
	for _, phrase := range blockedPhrases {
		if strings.Contains(text, phrase) {
			return Snapshot{
				Verdict:    VerdictBlocked,
				ReasonCode: fmt.Sprintf("blocked-signin:%q", phrase),
				Source:     source,
			}
		}
	}
	if containsAny(text, acceptingSignals) || containsAny(text, formControlMarkers) {
		return Snapshot{
			Verdict:    VerdictAccepting,
			ReasonCode: "found-form-controls",
			Source:     source,
		}
	}
	return Snapshot{
		Verdict:    VerdictAmbiguous,
		ReasonCode: "fallback-no-indicator",
		Source:     source,
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
