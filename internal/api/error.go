package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/and161185/restaurant-client/internal/errs"
)

// Error is a non-success HTTP response from the backend.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// UserMessage is the server-supplied message, possibly empty.
func (e *Error) UserMessage() string { return e.Message }

// Unwrap maps the status onto the errs taxonomy.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusNotFound:
		return errs.ErrNotFound
	}
	return errs.ErrRejected
}

// errorBody covers the three spellings the backend uses.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Msg     string `json:"msg"`
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		for _, m := range []string{eb.Message, eb.Error, eb.Msg} {
			if m = strings.TrimSpace(m); m != "" {
				e.Message = m
				break
			}
		}
	}
	return e
}
