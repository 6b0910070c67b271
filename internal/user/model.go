package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoogleToken holds the OAuth tokens issued when a Google identity is linked.
type GoogleToken struct {
	AccessToken  string `gorm:"column:access_token"`
	RefreshToken string `gorm:"column:refresh_token"`
}

// IsEmpty reports whether neither token is set.
func (t GoogleToken) IsEmpty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type User struct {
	ID                  string      `gorm:"type:text;primaryKey"`
	Slug                string      `gorm:"uniqueIndex;not null"`
	CreatedAt           time.Time   `gorm:"not null"`
	Email               string      `gorm:"uniqueIndex;not null"`
	PublicAddress       *string     `gorm:"column:public_address;uniqueIndex"`
	Nonce               *int64      `gorm:"uniqueIndex"`
	DisplayName         string      `gorm:"column:display_name"`
	AvatarURL           string      `gorm:"column:avatar_url"`
	GoogleID            *string     `gorm:"column:google_id;uniqueIndex"`
	GoogleToken         GoogleToken `gorm:"embedded;embeddedPrefix:google_token_"`
	IsSignedupViaGoogle bool        `gorm:"column:is_signedup_via_google;not null;default:false"`
	UpdatedAt           time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return nil
}

// PublicView is the projection of a User that may leave the service.
// Tokens, nonce and the Google id are never part of it.
type PublicView struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"displayName"`
	Email               string `json:"email"`
	PublicAddress       string `json:"publicAddress"`
	AvatarURL           string `json:"avatarUrl"`
	Slug                string `json:"slug"`
	IsSignedupViaGoogle bool   `json:"isSignedupViaGoogle"`
}

// Profile is the narrower projection served for public profile pages.
type Profile struct {
	Email         string `json:"email"`
	PublicAddress string `json:"publicAddress"`
	DisplayName   string `json:"displayName"`
	AvatarURL     string `json:"avatarUrl"`
}

var publicFields = []string{
	"id",
	"displayName",
	"email",
	"publicAddress",
	"avatarUrl",
	"slug",
	"isSignedupViaGoogle",
}

// PublicFields returns the field names carried by PublicView.
func PublicFields() []string {
	out := make([]string, len(publicFields))
	copy(out, publicFields)
	return out
}

// Public projects u onto its public fields.
func (u *User) Public() PublicView {
	return PublicView{
		ID:                  u.ID,
		DisplayName:         u.DisplayName,
		Email:               u.Email,
		PublicAddress:       deref(u.PublicAddress),
		AvatarURL:           u.AvatarURL,
		Slug:                u.Slug,
		IsSignedupViaGoogle: u.IsSignedupViaGoogle,
	}
}

func (u *User) Profile() Profile {
	return Profile{
		Email:         u.Email,
		PublicAddress: deref(u.PublicAddress),
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional maps the empty string to nil so unique indexes skip it.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
