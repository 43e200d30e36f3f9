package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/gamestore/internal/domain/auth"
)

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in Redis as JSON with a sliding TTL. Each user
// also has a set of their session IDs so that all of them can be revoked.
type SessionStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore builds a Redis-backed session store.
func NewSessionStore(client *goredis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "gamestore:session"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *SessionStore) userKey(userID int64) string {
	return s.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

// Get resolves a session and refreshes its TTL and that of the user's index.
func (s *SessionStore) Get(ctx context.Context, id string) (auth.SessionData, bool, error) {
	raw, err := s.client.GetEx(ctx, s.key(id), s.ttl).Bytes()
	if errors.Is(err, goredis.Nil) {
		return auth.SessionData{}, false, nil
	}
	if err != nil {
		return auth.SessionData{}, false, fmt.Errorf("getting session: %w", err)
	}

	var data auth.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return auth.SessionData{}, false, fmt.Errorf("decoding session: %w", err)
	}
	if err := s.client.Expire(ctx, s.userKey(data.UserID), s.ttl).Err(); err != nil {
		return auth.SessionData{}, false, fmt.Errorf("refreshing session index: %w", err)
	}
	return data, true, nil
}

func (s *SessionStore) Save(ctx context.Context, id string, data auth.SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.key(id), raw, s.ttl)
		p.SAdd(ctx, s.userKey(data.UserID), id)
		p.Expire(ctx, s.userKey(data.UserID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	raw, err := s.client.GetDel(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	var data auth.SessionData
	if json.Unmarshal(raw, &data) != nil {
		return nil
	}
	if err := s.client.SRem(ctx, s.userKey(data.UserID), id).Err(); err != nil {
		return fmt.Errorf("removing session from index: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every indexed session of the user except keep.
func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID int64, keep string) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("listing user sessions: %w", err)
	}
	var drop []string
	for _, id := range ids {
		if id != keep {
			drop = append(drop, id)
		}
	}
	if len(drop) == 0 {
		return nil
	}

	keys := make([]string, len(drop))
	members := make([]any, len(drop))
	for i, id := range drop {
		keys[i] = s.key(id)
		members[i] = id
	}
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.SRem(ctx, s.userKey(userID), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}
