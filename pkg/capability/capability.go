package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Capability identifies a host-granted authorization.
type Capability string

const (
	Camera       Capability = "camera"
	FineLocation Capability = "fine_location"
)

// Set is an ordered list of capabilities. Order is the order the host is asked in
// and the order grant flags are reported back in.
type Set []Capability

// Required returns the capability set a session needs. Fine location is present iff
// the session uses location.
func Required(usesLocation bool) Set {
	if usesLocation {
		return Set{Camera, FineLocation}
	}
	return Set{Camera}
}

// Contains reports whether c is part of the set.
func (s Set) Contains(c Capability) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// Parse maps a capability name to its identifier.
func Parse(name string) (Capability, error) {
	switch c := Capability(strings.ToLower(strings.TrimSpace(name))); c {
	case Camera, FineLocation:
		return c, nil
	default:
		return "", fmt.Errorf("unknown capability %q", name)
	}
}

// Token correlates a grant request with its asynchronous result.
type Token string

// NewToken mints a fresh request token.
func NewToken() Token {
	return Token(uuid.NewString())
}

// Checker is the host's capability-check primitive.
type Checker interface {
	IsGranted(ctx context.Context, c Capability) bool
}

// Requester is the host's capability-request primitive. The host answers each call
// exactly once, asynchronously, with one flag per capability in the set.
type Requester interface {
	RequestGrant(ctx context.Context, caps Set, token Token)
}

// ErrStaleResult is returned for a grant result that does not belong to the
// outstanding request.
var ErrStaleResult = errors.New("stale capability result")

// DeniedError lists the capabilities the host refused.
type DeniedError struct {
	Missing Set
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("capabilities denied: %s", strings.Join(e.Missing.Strings(), ", "))
}
