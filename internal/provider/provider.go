package provider

import (
	"context"
	"errors"
	"fmt"
)

// Profile selects how a request is shaped on the wire.
type Profile int

const (
	// Primary is a form-encoded POST with browser headers.
	Primary Profile = iota
	// Alternate sends the same fields as a query-string GET.
	Alternate
	// SessionPrimed loads the landing page before posting the form.
	SessionPrimed
)

func (p Profile) String() string {
	switch p {
	case Primary:
		return "primary"
	case Alternate:
		return "alternate"
	case SessionPrimed:
		return "session"
	default:
		return fmt.Sprintf("profile(%d)", int(p))
	}
}

// Ladder is the escalation order used on retries.
func Ladder() []Profile { return []Profile{Primary, Alternate, SessionPrimed} }

// Request carries the upstream search fields. Empty Networks means every
// known network.
type Request struct {
	FuelCode string
	Scope    string
	City     string
	Networks []string
}

// Fetcher returns the raw upstream body. Empty or unparseable bodies are not
// errors; only non-success statuses and transport faults are.
//
//go:generate mockgen -package=acquire_test -destination=../acquire/mock_fetcher_test.go -source=provider.go Fetcher
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, profile Profile, req Request) (string, error)
}

// ErrUpstreamUnavailable marks fetch failures that warrant a retry.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError describes a failed fetch.
type UpstreamError struct {
	Profile Profile
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s fetch: status %d", ErrUpstreamUnavailable, e.Profile, e.Status)
	}
	return fmt.Sprintf("%s: %s fetch: %v", ErrUpstreamUnavailable, e.Profile, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}
