package engine

import (
	"fmt"
	"strings"
)

// RequirementError reports a getvar check whose response did not match
// the required set, or matched the rejected set.
type RequirementError struct {
	Variable   string
	Actual     string
	Acceptable []string
	Reject     bool
}

func (e *RequirementError) Error() string {
	verb := "requires"
	if e.Reject {
		verb = "rejects"
	}
	return fmt.Sprintf("device %s is %q, update %s one of [%s]",
		e.Variable, e.Actual, verb, strings.Join(e.Acceptable, ", "))
}
