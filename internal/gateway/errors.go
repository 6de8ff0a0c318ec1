package gateway

import "fmt"

// snippetLimit bounds how much of a raw body ends up in a diagnostic.
// A CSRF failure typically returns a full HTML page; the operator only
// needs the first part of it.
const snippetLimit = 200

// RejectionError is a structured refusal from the cashier server: either an
// {error} payload or a non-success HTTP status. Message carries the server's
// text verbatim.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// MalformedResponseError is a response that was not the expected JSON: wrong
// content type or an unparseable body. Snippet holds at most snippetLimit
// characters of the raw body.
type MalformedResponseError struct {
	Status  int
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d - %s", e.Status, e.Snippet)
}

func snippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > snippetLimit {
		return string(body[:snippetLimit]) + "..."
	}
	return string(body)
}
