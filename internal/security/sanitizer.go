package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeReason cleans a user-supplied reason or name string before it
// is stored in the ledger or echoed in notifications.
func SanitizeReason(input string) string {
	input = htmlPolicy.Sanitize(input)
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	if len(input) > 500 {
		input = input[:500]
	}

	return input
}
