package inventory

import (
	"fmt"
	"net/http"
	"strings"
)

// Reason classifies why no source produced a document.
type Reason string

const (
	// ReasonUnpublished: the sheet answered 403 or 5xx, which is what an
	// unpublished or access-restricted spreadsheet export returns.
	ReasonUnpublished Reason = "unpublished"
	// ReasonStatus: some other non-200 status.
	ReasonStatus Reason = "status"
	// ReasonBlank: a source answered 200 with a blank document.
	ReasonBlank Reason = "blank"
	// ReasonNetwork: no response was received at all.
	ReasonNetwork Reason = "network"
)

// SourceAttempt records one try against one source URL.
type SourceAttempt struct {
	URL        string
	StatusCode int
	Err        error
}

// SourceUnavailableError is returned when every source URL failed.
type SourceUnavailableError struct {
	Attempts []SourceAttempt
}

// Last returns the final attempt.
func (e *SourceUnavailableError) Last() SourceAttempt {
	if len(e.Attempts) == 0 {
		return SourceAttempt{}
	}
	return e.Attempts[len(e.Attempts)-1]
}

// Decisive returns the last attempt that received a response, or the final
// attempt when none did. A later network failure never hides an earlier
// status.
func (e *SourceUnavailableError) Decisive() SourceAttempt {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if e.Attempts[i].StatusCode != 0 {
			return e.Attempts[i]
		}
	}
	return e.Last()
}

// Reason classifies the decisive attempt.
func (e *SourceUnavailableError) Reason() Reason {
	last := e.Decisive()
	switch {
	case last.StatusCode == http.StatusForbidden, last.StatusCode >= http.StatusInternalServerError:
		return ReasonUnpublished
	case last.StatusCode == http.StatusOK:
		return ReasonBlank
	case last.StatusCode != 0:
		return ReasonStatus
	default:
		return ReasonNetwork
	}
}

// Retryable is always true: every reason can clear up without a redeploy.
func (e *SourceUnavailableError) Retryable() bool {
	return true
}

// UserMessage is the text shown next to the retry button.
func (e *SourceUnavailableError) UserMessage() string {
	switch e.Reason() {
	case ReasonUnpublished:
		return "The inventory spreadsheet is not published or access is restricted. " +
			"Publish it to the web (File > Share > Publish to web) and try again."
	case ReasonStatus:
		return fmt.Sprintf("The inventory source answered with status %d. Try again later.", e.Decisive().StatusCode)
	case ReasonBlank:
		return "The inventory source returned an empty document. Try again later."
	default:
		return "Could not reach the inventory source. Check the connection and try again."
	}
}

func (e *SourceUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		switch {
		case a.Err != nil:
			parts = append(parts, fmt.Sprintf("%s: %v", a.URL, a.Err))
		default:
			parts = append(parts, fmt.Sprintf("%s: status %d", a.URL, a.StatusCode))
		}
	}
	return fmt.Sprintf("inventory: all %d sources failed (%s): %s", len(e.Attempts), e.Reason(), strings.Join(parts, "; "))
}
