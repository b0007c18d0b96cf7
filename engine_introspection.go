package arena

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/arena/session"
)

// SessionInfo is the safe introspection view of a session. It carries no
// token material.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool          `json:"redisAvailable"`
	RedisLatency   time.Duration `json:"redisLatency"`
}

// ListSessions returns the live sessions of the principal's user, newest
// first. Index entries whose session already expired are skipped.
func (e *Engine) ListSessions(ctx context.Context, p *Principal) ([]SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if p == nil {
		return nil, ErrUnauthenticated
	}

	ids, err := e.sessions.ActiveSessionIDs(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	out := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := e.sessions.Get(ctx, id)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		if sess.UserID != p.UserID {
			continue
		}
		out = append(out, SessionInfo{
			SessionID: sess.SessionID,
			Role:      Role(sess.Role),
			CreatedAt: time.Unix(sess.CreatedAt, 0).UTC(),
			ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
			Current:   sess.SessionID == p.SessionID,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// RevokeAllSessions deletes every session of userID. The caller must be
// that user or an ADMIN.
func (e *Engine) RevokeAllSessions(ctx context.Context, caller *Principal, userID string) error {
	if e == nil || e.sessions == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if caller == nil {
		return ErrUnauthenticated
	}
	if err := e.requireSelfOrAdmin(ctx, caller, userID); err != nil {
		return err
	}

	if err := e.sessions.DeleteAllForUser(ctx, userID); err != nil {
		e.countOp("revoke_sessions", ErrUpstreamUnavailable)
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	e.countOp("revoke_sessions", nil)
	e.emitAudit(ctx, auditEventSessionsRevoked, true, caller.UserID, caller.SessionID, nil, func() map[string]string {
		return map[string]string{"target": userID}
	})
	return nil
}

// Health pings Redis and reports the result. It never fails.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessions == nil {
		return HealthStatus{}
	}

	latency, err := e.sessions.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}
