package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/treadline/treadline-backend/pkg/errors"
)

// sessionRedis is the slice of pkg/redis the repository needs.
type sessionRedis interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(sessionID string) string
}

// Repo persists checkout sessions as JSON documents with a sliding TTL:
// every save renews the expiry, so an abandoned checkout ages out while an
// active one never does.
type Repo struct {
	redis sessionRedis
	ttl   time.Duration
}

// NewRepo builds the session repository.
func NewRepo(client sessionRedis, ttl time.Duration) (*Repo, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Repo{redis: client, ttl: ttl}, nil
}

// Load returns the session or CodeNotFound when it is missing or expired.
func (r *Repo) Load(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := r.redis.Get(ctx, r.redis.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading checkout session")
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session")
	}
	return &session, nil
}

// Save writes the session and renews its TTL.
func (r *Repo) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "session id is required")
	}
	session.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout session")
	}
	if err := r.redis.Set(ctx, r.redis.SessionKey(session.ID), string(payload), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving checkout session")
	}
	return nil
}

// Delete removes the session once checkout completes or is abandoned.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if err := r.redis.Del(ctx, r.redis.SessionKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting checkout session")
	}
	return nil
}
