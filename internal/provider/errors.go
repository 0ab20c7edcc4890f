package provider

import (
	"errors"
	"fmt"
)

// ErrPollTimeout means the queue provider never reached a terminal state
// within the attempt cap. Treated like any other provider failure: the job
// fails and credits are refunded.
var ErrPollTimeout = errors.New("provider did not finish within the poll limit")

// Error is any non-success answer from a provider: an HTTP error on the
// edit/submit/status call, or an explicit FAILED terminal status. Body holds
// the provider's raw response or diagnostic text and is surfaced verbatim
// on the enhancement log.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("provider reported failure: %s", e.Body)
}
