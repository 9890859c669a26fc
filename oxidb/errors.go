package oxidb

import (
	"fmt"
	"strings"
)

// Error is returned when the OxiDB server returns an error response.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// NotFound reports whether the server rejected the command because the
// addressed object or document does not exist.
func (e *Error) NotFound() bool {
	return strings.Contains(strings.ToLower(e.Msg), "not found")
}
