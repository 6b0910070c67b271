package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saasapp/server/internal/email"
	"github.com/saasapp/server/internal/user"
)

const magicLinkTemplate = "magic-link"

var ErrInvalidMagicLink = errors.New("invalid magic link")

// MagicLink is a pending passwordless sign-in. Only the token hash is stored.
type MagicLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (l *MagicLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// MagicLinkStore persists pending links.
type MagicLinkStore interface {
	Save(ctx context.Context, l *MagicLink) error
	// Consume deletes and returns the unexpired link with the given hash.
	Consume(ctx context.Context, hash string, now time.Time) (*MagicLink, error)
}

// MagicLinks mails one-time sign-in links and redeems them for the address
// they were sent to.
type MagicLinks struct {
	store     MagicLinkStore
	templates user.TemplateLookup
	mailer    email.Sender
	from      string
	baseURL   string
	ttl       time.Duration
	now       func() time.Time
}

func NewMagicLinks(store MagicLinkStore, templates user.TemplateLookup, mailer email.Sender, from, baseURL string, ttl time.Duration) *MagicLinks {
	return &MagicLinks{
		store:     store,
		templates: templates,
		mailer:    mailer,
		from:      from,
		baseURL:   baseURL,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Send stores a new link for address and mails it.
func (m *MagicLinks) Send(ctx context.Context, address string) error {
	if err := user.ValidateEmail(address); err != nil {
		return err
	}

	token, err := randomToken(32)
	if err != nil {
		return fmt.Errorf("generate magic link: %w", err)
	}
	link, err := m.linkURL(token)
	if err != nil {
		return err
	}

	msg, err := m.templates.Lookup(ctx, magicLinkTemplate, map[string]string{"link": link})
	if err != nil {
		return fmt.Errorf("load %s template: %w", magicLinkTemplate, err)
	}
	if msg == nil {
		return fmt.Errorf("%w: %s", user.ErrTemplateMissing, magicLinkTemplate)
	}

	if err := m.store.Save(ctx, &MagicLink{
		Email:     address,
		TokenHash: hashToken(token),
		ExpiresAt: m.now().Add(m.ttl),
	}); err != nil {
		return fmt.Errorf("store magic link: %w", err)
	}

	return m.mailer.Send(ctx, email.Email{
		From:    m.from,
		To:      []string{address},
		Subject: msg.Subject,
		Body:    msg.Body,
	})
}

// Redeem spends token and returns the address it was issued for.
func (m *MagicLinks) Redeem(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidMagicLink
	}
	l, err := m.store.Consume(ctx, hashToken(token), m.now())
	if err != nil {
		return "", err
	}
	return l.Email, nil
}

func (m *MagicLinks) linkURL(token string) (string, error) {
	u, err := url.Parse(m.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse magic link base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type MagicLinkRepository struct {
	db *gorm.DB
}

func NewMagicLinkRepository(db *gorm.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

func (r *MagicLinkRepository) Save(ctx context.Context, l *MagicLink) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *MagicLinkRepository) Consume(ctx context.Context, hash string, now time.Time) (*MagicLink, error) {
	var l MagicLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND expires_at > ?", hash, now).First(&l).Error; err != nil {
			return err
		}
		return tx.Delete(&l).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidMagicLink
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
