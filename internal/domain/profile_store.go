package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/soarlink/soarlink/internal/credentials"
)

// ProfileStore saves and loads the single connection profile record.
type ProfileStore struct {
	kv    KeyValueStore
	creds credentials.Provider

	// serializes Save so two quick saves cannot interleave seal and write
	mu sync.Mutex
}

func NewProfileStore(kv KeyValueStore, creds credentials.Provider) *ProfileStore {
	if creds == nil {
		creds = credentials.PlainProvider{}
	}

	return &ProfileStore{kv: kv, creds: creds}
}

// Save overwrites the stored profile with p. No field is validated.
func (s *ProfileStore) Save(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.creds.Seal(p.Password)
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}
	p.Password = sealed

	raw, err := json.Marshal(recordFromProfile(p))
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.kv.Set(ctx, ProfileStorageKey, string(raw)); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}

	return nil
}

// Load returns the stored profile. A missing record yields an empty profile.
func (s *ProfileStore) Load(ctx context.Context) (Profile, error) {
	raw, ok, err := s.kv.Get(ctx, ProfileStorageKey)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if !ok {
		return Profile{}, nil
	}

	var rec profileRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	p := rec.profile()
	p.Password, err = s.creds.Open(p.Password)
	if err != nil {
		return Profile{}, fmt.Errorf("open password: %w", err)
	}

	return p, nil
}
