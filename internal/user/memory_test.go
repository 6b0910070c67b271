package user

import (
	"context"
	"errors"
	"testing"
)

func int64ptr(n int64) *int64 { return &n }

func TestMemoryStoreCreateRejectsDuplicates(t *testing.T) {
	existing := &User{
		ID:            "u1",
		Slug:          "jane",
		Email:         "jane@example.com",
		PublicAddress: strptr("0xabc"),
		GoogleID:      strptr("g-dup"),
		Nonce:         int64ptr(42),
	}

	tests := []struct {
		name string
		user User
	}{
		{name: "id", user: User{ID: "u1", Slug: "bob", Email: "bob@example.com"}},
		{name: "email", user: User{Slug: "bob", Email: "jane@example.com"}},
		{name: "slug", user: User{Slug: "jane", Email: "bob@example.com"}},
		{name: "public address", user: User{Slug: "bob", Email: "bob@example.com", PublicAddress: strptr("0xabc")}},
		{name: "google id", user: User{Slug: "bob", Email: "bob@example.com", GoogleID: strptr("g-dup")}},
		{name: "nonce", user: User{Slug: "bob", Email: "bob@example.com", Nonce: int64ptr(42)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(existing)
			u := tt.user
			if err := store.Create(context.Background(), &u); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
			if store.Writes() != 0 {
				t.Fatalf("expected no writes, got %d", store.Writes())
			}
		})
	}

	store := NewMemoryStore(existing)
	u := User{Slug: "bob", Email: "bob@example.com"}
	if err := store.Create(context.Background(), &u); err != nil {
		t.Fatalf("unset optional fields must not collide: %v", err)
	}
}

func TestMemoryStoreUpdateProfileRejectsTakenAddress(t *testing.T) {
	store := NewMemoryStore(
		&User{ID: "u1", Slug: "jane", Email: "jane@example.com", PublicAddress: strptr("0xabc")},
		&User{ID: "u2", Slug: "bob", Email: "bob@example.com"},
	)

	_, err := store.UpdateProfile(context.Background(), "u2", ProfileUpdate{Slug: "bob", PublicAddress: strptr("0xabc")})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := store.Get("u2"); got.PublicAddress != nil {
		t.Fatalf("rejected update must leave the record untouched, got %q", *got.PublicAddress)
	}

	// Writing back the user's own address is not a conflict.
	if _, err := store.UpdateProfile(context.Background(), "u1", ProfileUpdate{Slug: "jane", PublicAddress: strptr("0xabc")}); err != nil {
		t.Fatalf("own address: %v", err)
	}
}

func TestManagerUpdateProfileTakenAddress(t *testing.T) {
	store := NewMemoryStore(
		&User{ID: "u1", Slug: "jane", Email: "jane@example.com", PublicAddress: strptr("0xabc")},
		&User{ID: "u2", Slug: "bob", Email: "bob@example.com", DisplayName: "Bob"},
	)
	m, _, _ := newTestManager(store)

	if _, err := m.UpdateProfile(context.Background(), "u2", "Bob", "0xabc", ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryStoreLinkGoogle(t *testing.T) {
	store := NewMemoryStore(
		&User{ID: "u1", Slug: "jane", Email: "jane@example.com", GoogleID: strptr("g-1")},
		&User{ID: "u2", Slug: "bob", Email: "bob@example.com"},
	)
	ctx := context.Background()

	if err := store.LinkGoogle(ctx, "bob@example.com", "g-1", GoogleToken{}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for taken google id, got %v", err)
	}

	if err := store.LinkGoogle(ctx, "jane@example.com", "", GoogleToken{AccessToken: "a"}); err != nil {
		t.Fatalf("link without id: %v", err)
	}
	u := store.Get("u1")
	if u.GoogleID == nil || *u.GoogleID != "g-1" {
		t.Fatalf("empty google id must keep the linked one, got %v", u.GoogleID)
	}
	if u.GoogleToken.AccessToken != "a" {
		t.Fatalf("expected access token to be set, got %+v", u.GoogleToken)
	}
}

func TestSignInOrSignUpViaGoogleTakenIdentity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GoogleSignIn)
	}{
		{name: "google id", mutate: func(in *GoogleSignIn) { in.GoogleID = "g-dup" }},
		{name: "public address", mutate: func(in *GoogleSignIn) { in.PublicAddress = "0xabc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(&User{
				ID:            "u1",
				Slug:          "other",
				Email:         "other@example.com",
				GoogleID:      strptr("g-dup"),
				PublicAddress: strptr("0xabc"),
			})
			m, _, n := newTestManager(store)

			in := googleSignIn()
			tt.mutate(&in)
			if _, err := m.SignInOrSignUpViaGoogle(context.Background(), in); !errors.Is(err, ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
			if len(n.calls) != 0 {
				t.Fatalf("expected no notifications, got %d", len(n.calls))
			}
		})
	}
}
