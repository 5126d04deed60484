package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport means no response was received (network down, timeout).
	KindTransport Kind = iota + 1
	// KindUnauthenticated is a 401; the session has already been cleared.
	KindUnauthenticated
	// KindForbidden is a 403.
	KindForbidden
	// KindClient is any other 4xx, typically a validation failure.
	KindClient
	// KindServer is a 5xx.
	KindServer
	// KindDecode means the response body could not be decoded.
	KindDecode
)

const transportMessage = "unable to reach the server"

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the tagged failure returned by every resource client.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api ")
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " returned status %d", e.StatusCode)
	} else {
		b.WriteString(" failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call could succeed.
// Only connectivity failures and server errors qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindServer
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsUnauthenticated reports whether err is a 401 from the API.
func IsUnauthenticated(err error) bool {
	return KindOf(err) == KindUnauthenticated
}

// Message returns the user-facing message carried by err, or fallback when
// the server did not provide one.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindForbidden
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

func newStatusError(op string, resp *http.Response) *Error {
	e := &Error{Op: op, Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = strings.TrimSpace(body.Message)
		if e.Message == "" {
			e.Message = strings.TrimSpace(body.Error)
		}
	}
	if e.Message == "" {
		switch e.Kind {
		case KindUnauthenticated:
			e.Message = "not authenticated"
		case KindForbidden:
			e.Message = "not authorized"
		}
	}
	return e
}
