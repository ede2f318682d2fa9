package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
)

// GenericErrorMessage is shown when nothing more specific is known.
const GenericErrorMessage = "An unexpected error occurred"

var (
	// ErrRefreshFailed is returned to every request waiting on a refresh that failed.
	ErrRefreshFailed = apperrors.ErrRefreshFailed
	// ErrUnauthenticated is returned for requests that need a session when there is none.
	ErrUnauthenticated = apperrors.ErrUnauthenticated
	// ErrClientReset is returned to requests suspended when Reset was called.
	ErrClientReset = errors.New("api client reset")
)

var statusMessages = map[int]string{
	http.StatusBadRequest:            "The request is invalid",
	http.StatusUnauthorized:          "Your session has expired, please sign in again",
	http.StatusForbidden:             "You do not have permission to perform this action",
	http.StatusNotFound:              "The requested resource does not exist",
	http.StatusConflict:              "This resource already exists",
	http.StatusRequestEntityTooLarge: "The file is too large",
	http.StatusUnprocessableEntity:   "The submitted data is invalid",
	http.StatusTooManyRequests:       "Too many requests, please try again later",
	http.StatusInternalServerError:   "Server error, please try again later",
	http.StatusBadGateway:            "The server is unavailable, please try again later",
	http.StatusServiceUnavailable:    "The server is unavailable, please try again later",
	http.StatusGatewayTimeout:        "The server did not respond in time",
}

// StatusMessage returns the default phrase for an HTTP status, or "" when none exists.
func StatusMessage(status int) string {
	return statusMessages[status]
}

// APIError is a non 2xx response from the backend.
type APIError struct {
	Status  int
	Message string // Server supplied message, may be empty
	Method  string
	Path    string
	Body    []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = StatusMessage(e.Status)
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Unwrap maps the status onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthenticated
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	}
	return nil
}

// TransportError means no response was received (network failure, timeout).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DisplayError replaces the message shown to the user with one the caller knows better,
// such as the name of the missing resource.
type DisplayError struct {
	Msg string
	Err error
}

func (e *DisplayError) Error() string {
	return e.Msg
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

// WithMessage wraps err so that Message returns msg.
func WithMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &DisplayError{Msg: msg, Err: err}
}

// Describe names resource in the message of the errors where the server message is
// not useful to a user: 404 becomes "<resource> does not exist" and 403 the
// permission phrase. Other errors are returned unchanged.
func Describe(err error, resource string) error {
	switch StatusCode(err) {
	case http.StatusNotFound:
		return WithMessage(err, fmt.Sprintf("%s does not exist", resource))
	case http.StatusForbidden:
		return WithMessage(err, StatusMessage(http.StatusForbidden))
	}
	return err
}

// serverMessage extracts "message" (string or list of strings) or "error" from a JSON body.
func serverMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := rawMessage(payload.Message); msg != "" {
		return msg
	}
	return rawMessage(payload.Error)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// Message returns the text to show a user for err. In order: a DisplayError message,
// the server message, the default phrase for the status, the transport error, and
// finally GenericErrorMessage.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var display *DisplayError
	if errors.As(err, &display) && display.Msg != "" {
		return display.Msg
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if msg := StatusMessage(apiErr.Status); msg != "" {
			return msg
		}
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Err != nil {
		if msg := transportErr.Err.Error(); msg != "" {
			return msg
		}
	}
	if apiErr == nil && transportErr == nil {
		if msg := err.Error(); msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuthError reports whether err is an authentication failure that the client
// handles itself, by refreshing or by forcing a new login.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrRefreshFailed)
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

func IsForbidden(err error) bool {
	return errors.Is(err, apperrors.ErrForbidden)
}
