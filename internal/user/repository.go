package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*User, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *Repository) first(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	set := map[string]any{
		"slug":       upd.Slug,
		"avatar_url": upd.AvatarURL,
	}
	if upd.DisplayName != nil {
		set["display_name"] = *upd.DisplayName
	}
	if upd.PublicAddress != nil {
		set["public_address"] = optional(*upd.PublicAddress)
	}

	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(set)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) LinkGoogle(ctx context.Context, email, googleID string, token GoogleToken) error {
	set := map[string]any{}
	if googleID != "" {
		set["google_id"] = googleID
	}
	if token.AccessToken != "" {
		set["google_token_access_token"] = token.AccessToken
	}
	if token.RefreshToken != "" {
		set["google_token_refresh_token"] = token.RefreshToken
	}
	if len(set) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Updates(set).Error)
}

func (r *Repository) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&User{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("count slug: %w", err)
	}
	return n > 0, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return err
	}
}
