package relay

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// SubmissionError describes a failed inquiry. The buyer can always resend.
type SubmissionError struct {
	// StatusCode is the relay's HTTP status, zero when no response arrived.
	StatusCode int
	// Message is safe to show to the buyer.
	Message string
	// Detail is a short excerpt of the relay's error body, if any.
	Detail string
	// Network is set when the relay could not be reached.
	Network bool
	Err     error
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	b.WriteString("relay: submission failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same form makes sense.
func (e *SubmissionError) Retryable() bool {
	return true
}

const detailLimit = 200

func statusError(code int, body []byte) *SubmissionError {
	e := &SubmissionError{StatusCode: code}
	switch code {
	case http.StatusBadRequest:
		e.Message = "The server could not process the request. Check the form and try again."
	case http.StatusNotFound:
		e.Message = "The contact endpoint was not found. The service may be misconfigured."
	case http.StatusInternalServerError:
		e.Message = "The server failed to handle the request. Try again later."
	default:
		e.Message = fmt.Sprintf("The server answered with status %d.", code)
		e.Detail = excerpt(string(body), detailLimit)
	}
	return e
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
