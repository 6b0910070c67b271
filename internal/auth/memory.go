package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRefreshStore keeps refresh tokens in process memory.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: make(map[string]RefreshToken)}
}

func (s *MemoryRefreshStore) Save(_ context.Context, rt *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	s.tokens[rt.TokenHash] = *rt
	return nil
}

func (s *MemoryRefreshStore) Consume(_ context.Context, hash string, now time.Time) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[hash]
	if !ok {
		return nil, ErrInvalidRefreshToken
	}
	delete(s.tokens, hash)
	if !rt.ExpiresAt.After(now) {
		return nil, ErrInvalidRefreshToken
	}
	return &rt, nil
}

// MemoryMagicLinkStore keeps pending magic links in process memory.
type MemoryMagicLinkStore struct {
	mu    sync.Mutex
	links map[string]MagicLink
}

func NewMemoryMagicLinkStore() *MemoryMagicLinkStore {
	return &MemoryMagicLinkStore{links: make(map[string]MagicLink)}
}

func (s *MemoryMagicLinkStore) Save(_ context.Context, l *MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.links[l.TokenHash] = *l
	return nil
}

func (s *MemoryMagicLinkStore) Consume(_ context.Context, hash string, now time.Time) (*MagicLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[hash]
	if !ok {
		return nil, ErrInvalidMagicLink
	}
	delete(s.links, hash)
	if !l.ExpiresAt.After(now) {
		return nil, ErrInvalidMagicLink
	}
	return &l, nil
}
