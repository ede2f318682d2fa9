package quotes

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/distritherm-admin/internal/errors"
)

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusPending   Status = "PENDING"   // Created from a client's cart, initial state
	StatusSended    Status = "SENDED"    // Sent to the client
	StatusProgress  Status = "PROGRESS"  // Being prepared by a commercial
	StatusConsulted Status = "CONSULTED" // Opened by the client
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
)

var labels = map[Status]string{
	StatusPending:   "En attente",
	StatusSended:    "Envoyé",
	StatusProgress:  "En cours",
	StatusConsulted: "Consulté",
	StatusAccepted:  "Accepté",
	StatusRejected:  "Refusé",
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusSended, StatusProgress, StatusConsulted, StatusAccepted, StatusRejected}
}

func (s Status) Valid() bool {
	_, ok := labels[s]
	return ok
}

// Label is the French name shown in the back office.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Final reports whether the client has answered the quote.
func (s Status) Final() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ParseStatus accepts a status name in any case.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, v)
	}
	return s, nil
}

// TransitionPolicy decides whether a quote may move from one status to another.
type TransitionPolicy interface {
	Allow(from, to Status) error
}

// TransitionFunc adapts a function to TransitionPolicy.
type TransitionFunc func(from, to Status) error

func (f TransitionFunc) Allow(from, to Status) error {
	return f(from, to)
}

// PermissivePolicy allows any known status to follow any other. The back office has
// never restricted transitions.
var PermissivePolicy TransitionPolicy = TransitionFunc(func(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, to)
	}
	return nil
})
