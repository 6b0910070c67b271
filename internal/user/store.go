package user

import "context"

// Store is the persistence the Manager needs. Lookups return ErrNotFound
// when no record matches.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindBySlug(ctx context.Context, slug string) (*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	LinkGoogle(ctx context.Context, email, googleID string, token GoogleToken) error
	// SlugTaken reports whether a user other than exceptID holds slug.
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)
}

// ProfileUpdate is a field-level modifier. Nil pointers leave the column as is;
// a PublicAddress pointing at "" clears it.
type ProfileUpdate struct {
	Slug          string
	AvatarURL     string
	DisplayName   *string
	PublicAddress *string
}
