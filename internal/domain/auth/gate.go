package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Credentials are the session identifiers presented by a caller: the primary
// session cookie and an optional out-of-band X-Session-ID value.
type Credentials struct {
	SessionID         string
	FallbackSessionID string
}

// Resolution is the outcome of a successful authorization.
type Resolution struct {
	Principal Principal
	// SessionID is the primary session that now holds the identity.
	SessionID string
	// Rebound is true when the identity was resolved through the fallback
	// credential and written into the primary session. Callers should
	// (re)issue the session cookie in that case.
	Rebound bool
}

// Gate authenticates callers against the session store and checks roles.
type Gate struct {
	sessions SessionStore
	newID    func() string
	now      func() time.Time
}

// NewGate returns a Gate backed by the given session store.
func NewGate(sessions SessionStore) *Gate {
	return &Gate{
		sessions: sessions,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Authorize resolves the caller. The primary session is consulted first; when
// it is absent the fallback session is tried and, on success, copied into a
// freshly minted primary session. An unknown primary ID presented by the
// caller is never adopted.
//
// An empty required role accepts any authenticated caller.
func (g *Gate) Authorize(ctx context.Context, creds Credentials, required Role) (Resolution, error) {
	res, ok, err := g.resolve(ctx, creds)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{}, ErrUnauthenticated
	}
	if required != "" && res.Principal.Role != required {
		return res, ErrAccessDenied
	}
	return res, nil
}

func (g *Gate) resolve(ctx context.Context, creds Credentials) (Resolution, bool, error) {
	if creds.SessionID != "" {
		data, ok, err := g.sessions.Get(ctx, creds.SessionID)
		if err != nil {
			return Resolution{}, false, errors.Wrap(err, "get primary session")
		}
		if ok {
			return Resolution{Principal: data.Principal(), SessionID: creds.SessionID}, true, nil
		}
	}

	if creds.FallbackSessionID == "" || creds.FallbackSessionID == creds.SessionID {
		return Resolution{}, false, nil
	}

	data, ok, err := g.sessions.Get(ctx, creds.FallbackSessionID)
	if err != nil {
		return Resolution{}, false, errors.Wrap(err, "get fallback session")
	}
	if !ok {
		return Resolution{}, false, nil
	}

	primary := g.newID()
	data.LastActivity = g.now()
	if err := g.sessions.Save(ctx, primary, data); err != nil {
		return Resolution{}, false, errors.Wrap(err, "write back session")
	}

	return Resolution{Principal: data.Principal(), SessionID: primary, Rebound: true}, true, nil
}
