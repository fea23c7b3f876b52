package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any *Error with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// errNetwork wraps transport failures.
var errNetwork = errors.New("network error")

// Error is a non-2xx API response.
type Error struct {
	Status int
	// Message is the server-provided detail or message, empty when the body
	// carried neither.
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status %d", e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// MessageOr picks the user-facing text for err: the server's detail or
// message when present, fallback for API errors without one, and the
// error text itself for transport failures.
func MessageOr(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	return err.Error()
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// errorMessage extracts detail, then message, from an error body. detail may
// be a string or a list of {msg} objects.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if d := detailText(eb.Detail); d != "" {
		return d
	}
	return strings.TrimSpace(eb.Message)
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// transient reports whether a read should be retried.
func transient(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return errors.Is(err, errNetwork)
}
