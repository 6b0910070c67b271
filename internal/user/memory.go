package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. It counts writes so
// callers can assert on side effects.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]*User
	writes int
	// Err, when set, is returned by every read and by Create.
	Err error
}

func NewMemoryStore(users ...*User) *MemoryStore {
	s := &MemoryStore{users: make(map[string]*User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[u.ID]; ok && u.ID != "" {
		return ErrAlreadyExists
	}
	if s.conflicts(u, "") {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.writes++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) find(match func(*User) bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	return s.find(func(u *User) bool { return u.ID == id })
}

func (s *MemoryStore) FindByEmail(_ context.Context, address string) (*User, error) {
	return s.find(func(u *User) bool { return u.Email == address })
}

func (s *MemoryStore) FindBySlug(_ context.Context, sl string) (*User, error) {
	return s.find(func(u *User) bool { return u.Slug == sl })
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, upd ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := *u
	next.Slug = upd.Slug
	next.AvatarURL = upd.AvatarURL
	if upd.DisplayName != nil {
		next.DisplayName = *upd.DisplayName
	}
	if upd.PublicAddress != nil {
		next.PublicAddress = optional(*upd.PublicAddress)
	}
	if s.conflicts(&next, id) {
		return nil, ErrAlreadyExists
	}
	s.writes++
	*u = next
	cp := next
	return &cp, nil
}

func (s *MemoryStore) LinkGoogle(_ context.Context, address, googleID string, token GoogleToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != address {
			continue
		}
		if googleID != "" {
			next := *u
			next.GoogleID = &googleID
			if s.conflicts(&next, u.ID) {
				return ErrAlreadyExists
			}
			u.GoogleID = next.GoogleID
		}
		s.writes++
		if token.AccessToken != "" {
			u.GoogleToken.AccessToken = token.AccessToken
		}
		if token.RefreshToken != "" {
			u.GoogleToken.RefreshToken = token.RefreshToken
		}
		return nil
	}
	return nil
}

// conflicts reports whether a user other than exceptID already holds one of
// u's unique values. Optional columns only collide when both are set.
func (s *MemoryStore) conflicts(u *User, exceptID string) bool {
	for id, other := range s.users {
		if id == exceptID {
			continue
		}
		if other.Email == u.Email || other.Slug == u.Slug ||
			sameValue(other.PublicAddress, u.PublicAddress) ||
			sameValue(other.GoogleID, u.GoogleID) ||
			sameValue(other.Nonce, u.Nonce) {
			return true
		}
	}
	return false
}

func sameValue[T comparable](a, b *T) bool {
	return a != nil && b != nil && *a == *b
}

func (s *MemoryStore) SlugTaken(_ context.Context, sl, exceptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Slug == sl && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// Get returns a copy of the stored user, or nil.
func (s *MemoryStore) Get(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// Writes returns the number of successful mutations.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
