package host

import (
	"context"
	"errors"

	"ar-session-core/pkg/capability"
)

var ErrNoPendingRequest = errors.New("no capability request pending")

// PendingRequest is a grant request waiting for the user's answer.
type PendingRequest struct {
	Token        capability.Token `json:"token"`
	Capabilities []string         `json:"capabilities"`
}

// SimPermissions plays the OS permission subsystem. Requests are parked until the
// API answers them.
type SimPermissions struct {
	granted map[capability.Capability]bool
	pending *PendingRequest
	caps    capability.Set
}

func NewSimPermissions(granted capability.Set) *SimPermissions {
	p := &SimPermissions{granted: make(map[capability.Capability]bool)}
	for _, c := range granted {
		p.granted[c] = true
	}
	return p
}

func (p *SimPermissions) IsGranted(_ context.Context, c capability.Capability) bool {
	return p.granted[c]
}

func (p *SimPermissions) RequestGrant(_ context.Context, caps capability.Set, token capability.Token) {
	p.caps = caps
	p.pending = &PendingRequest{Token: token, Capabilities: caps.Strings()}
}

// Pending returns a copy of the parked request, nil if none.
func (p *SimPermissions) Pending() *PendingRequest {
	if p.pending == nil {
		return nil
	}
	cp := *p.pending
	return &cp
}

// Answer records the user's decision for the parked request and returns its token
// so the caller can deliver the result to the session. Granted capabilities stay
// granted for later checks.
func (p *SimPermissions) Answer(flags []bool) (capability.Token, error) {
	if p.pending == nil {
		return "", ErrNoPendingRequest
	}
	for i, c := range p.caps {
		if i < len(flags) && flags[i] {
			p.granted[c] = true
		}
	}
	token := p.pending.Token
	p.pending = nil
	p.caps = nil
	return token, nil
}
