package capability

import (
	"context"

	"ar-session-core/internal/pkg/logger"
)

// Gate evaluates and requests the fixed capability set of one session.
// It is not safe for concurrent use; the owning session serialises access.
type Gate struct {
	required  Set
	checker   Checker
	requester Requester
	logger    logger.ILogger

	pending    Token
	hasPending bool
}

func NewGate(required Set, checker Checker, requester Requester, log logger.ILogger) *Gate {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Gate{
		required:  required,
		checker:   checker,
		requester: requester,
		logger:    log,
	}
}

// Required returns the set this gate guards.
func (g *Gate) Required() Set {
	return g.required
}

// AllGranted asks the host about every required capability and stops at the first
// one that is missing.
func (g *Gate) AllGranted(ctx context.Context) bool {
	for _, c := range g.required {
		if !g.checker.IsGranted(ctx, c) {
			g.logger.Debug("CapabilityGate", "Capability not granted", map[string]interface{}{"capability": c})
			return false
		}
	}
	return true
}

// RequestGrant issues one request for the full required set under a new token.
// Any earlier outstanding token becomes stale.
func (g *Gate) RequestGrant(ctx context.Context) Token {
	token := NewToken()
	if g.hasPending {
		g.logger.Info("CapabilityGate", "Superseding outstanding request", map[string]interface{}{
			"previous": g.pending,
			"token":    token,
		})
	}
	g.pending = token
	g.hasPending = true

	g.logger.Info("CapabilityGate", "Requesting capabilities", map[string]interface{}{
		"token":        token,
		"capabilities": g.required.Strings(),
	})
	g.requester.RequestGrant(ctx, g.required, token)
	return token
}

// Pending returns the outstanding request token, if any.
func (g *Gate) Pending() (Token, bool) {
	return g.pending, g.hasPending
}

// Resolve consumes the result for the outstanding request. It returns
// ErrStaleResult when token is not outstanding (including a second delivery of the
// same token), a *DeniedError when any capability was refused, and nil otherwise.
// A flag slice whose length does not match the set counts missing entries as denied.
func (g *Gate) Resolve(token Token, granted []bool) error {
	if !g.hasPending || token != g.pending {
		return ErrStaleResult
	}
	g.pending = ""
	g.hasPending = false

	var missing Set
	for i, c := range g.required {
		if i >= len(granted) || !granted[i] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &DeniedError{Missing: missing}
	}
	return nil
}

// Cancel forgets the outstanding request so its result will be treated as stale.
func (g *Gate) Cancel() {
	g.pending = ""
	g.hasPending = false
}
