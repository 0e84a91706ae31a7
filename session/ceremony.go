package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// CeremonyStore keeps WebAuthn session data between the begin and finish
// calls of a passkey ceremony.
type CeremonyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCeremonyStore(rdb *redis.Client, ttl time.Duration) *CeremonyStore {
	return &CeremonyStore{rdb: rdb, ttl: ttl}
}

func loginKey(sid string) string       { return fmt.Sprintf("webauthn:login:%s", sid) }
func inviteKey(token string) string    { return fmt.Sprintf("webauthn:reg:inv:%s", token) }
func addCredKey(adminID string) string { return fmt.Sprintf("webauthn:reg:add:%s", adminID) }

func (s *CeremonyStore) save(ctx context.Context, k string, sd *webauthn.SessionData) error {
	b, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, k, b, s.ttl).Err()
}

func (s *CeremonyStore) load(ctx context.Context, k string) (*webauthn.SessionData, error) {
	b, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var sd webauthn.SessionData
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *CeremonyStore) del(ctx context.Context, k string) { _ = s.rdb.Del(ctx, k).Err() }

func (s *CeremonyStore) SaveLogin(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.save(ctx, loginKey(sid), sd)
}

func (s *CeremonyStore) LoadLogin(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	return s.load(ctx, loginKey(sid))
}

func (s *CeremonyStore) DelLogin(ctx context.Context, sid string) { s.del(ctx, loginKey(sid)) }

func (s *CeremonyStore) SaveInviteReg(ctx context.Context, token string, sd *webauthn.SessionData) error {
	return s.save(ctx, inviteKey(token), sd)
}

func (s *CeremonyStore) LoadInviteReg(ctx context.Context, token string) (*webauthn.SessionData, error) {
	return s.load(ctx, inviteKey(token))
}

func (s *CeremonyStore) DelInviteReg(ctx context.Context, token string) { s.del(ctx, inviteKey(token)) }

func (s *CeremonyStore) SaveAddCredential(ctx context.Context, adminID string, sd *webauthn.SessionData) error {
	return s.save(ctx, addCredKey(adminID), sd)
}

func (s *CeremonyStore) LoadAddCredential(ctx context.Context, adminID string) (*webauthn.SessionData, error) {
	return s.load(ctx, addCredKey(adminID))
}

func (s *CeremonyStore) DelAddCredential(ctx context.Context, adminID string) {
	s.del(ctx, addCredKey(adminID))
}
