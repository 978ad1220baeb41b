package github

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upstream failures for the caller's retry and
// response policy.
type ErrorKind int

const (
	// KindNotFound means the repository does not exist or is private.
	// Never retried.
	KindNotFound ErrorKind = iota
	// KindRateLimited means the provider rejected the call for quota
	// reasons. Retried with backoff.
	KindRateLimited
	// KindUnavailable covers transient provider failures and timeouts.
	// Retried with backoff.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// UpstreamError is a typed failure from the upstream provider
type UpstreamError struct {
	Kind ErrorKind
	Repo string
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s for %s: %v", e.Kind, e.Repo, e.Err)
	}
	return fmt.Sprintf("upstream %s for %s", e.Kind, e.Repo)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an upstream not-found failure
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindNotFound
}

// IsRateLimited reports whether err is an upstream quota rejection
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindRateLimited
}

// IsUnavailable reports whether err is a transient upstream failure
func IsUnavailable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Kind == KindUnavailable
}
