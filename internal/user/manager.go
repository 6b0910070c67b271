package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/saasapp/server/internal/email"
	"github.com/saasapp/server/internal/notify"
	"github.com/saasapp/server/internal/slug"
)

const welcomeTemplate = "welcome"

// TemplateLookup renders a stored email template; nil, nil means not found.
type TemplateLookup interface {
	Lookup(ctx context.Context, name string, vars map[string]string) (*email.Message, error)
}

// SignupNotifier runs the best-effort signup side effects. The returned
// outcome is informational only.
type SignupNotifier interface {
	NotifySignup(ctx context.Context, to string, msg email.Message) notify.Outcome
}

type Manager struct {
	store     Store
	templates TemplateLookup
	notifier  SignupNotifier
	now       func() time.Time
}

func NewManager(store Store, templates TemplateLookup, notifier SignupNotifier) *Manager {
	return &Manager{
		store:     store,
		templates: templates,
		notifier:  notifier,
		now:       time.Now,
	}
}

// GetUserBySlug returns the public profile for slug, or nil when no user has it.
func (m *Manager) GetUserBySlug(ctx context.Context, s string) (*Profile, error) {
	u, err := m.store.FindBySlug(ctx, s)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by slug: %w", err)
	}
	p := u.Profile()
	return &p, nil
}

func (m *Manager) GetUserByID(ctx context.Context, id string) (PublicView, error) {
	u, err := m.store.FindByID(ctx, id)
	if err != nil {
		return PublicView{}, err
	}
	return u.Public(), nil
}

// GetUserByEmail returns ErrNotFound when no user has address.
func (m *Manager) GetUserByEmail(ctx context.Context, address string) (PublicView, error) {
	u, err := m.store.FindByEmail(ctx, address)
	if err != nil {
		return PublicView{}, err
	}
	return u.Public(), nil
}

// UpdateProfile overwrites the avatar and, when changed, the display name and
// public address. The slug is recomputed from the new name and address.
func (m *Manager) UpdateProfile(ctx context.Context, userID, name, publicAddress, avatarURL string) (PublicView, error) {
	if err := validateAvatarURL(avatarURL); err != nil {
		return PublicView{}, err
	}

	u, err := m.store.FindByID(ctx, userID)
	if err != nil {
		return PublicView{}, err
	}

	upd := ProfileUpdate{AvatarURL: avatarURL, Slug: u.Slug}
	exists := m.slugTakenExcept(u.ID)

	if publicAddress != deref(u.PublicAddress) {
		upd.PublicAddress = &publicAddress
		if upd.Slug, err = slug.Generate(ctx, exists, name, publicAddress); err != nil {
			return PublicView{}, fmt.Errorf("generate slug: %w", err)
		}
	}
	if name != u.DisplayName {
		upd.DisplayName = &name
		if upd.Slug, err = slug.Generate(ctx, exists, name); err != nil {
			return PublicView{}, fmt.Errorf("generate slug: %w", err)
		}
	}
	// The branch results above are always replaced by this final value.
	// Kept as is until product confirms which slug an update should produce.
	if upd.Slug, err = slug.Generate(ctx, exists, name, publicAddress); err != nil {
		return PublicView{}, fmt.Errorf("generate slug: %w", err)
	}

	updated, err := m.store.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return PublicView{}, fmt.Errorf("update profile: %w", err)
	}
	return updated.Public(), nil
}

// GoogleSignIn carries the identity returned by Google's userinfo endpoint.
type GoogleSignIn struct {
	GoogleID      string
	Email         string
	PublicAddress string
	Nonce         *int64
	DisplayName   string
	AvatarURL     string
	GoogleToken   GoogleToken
}

// SignInOrSignUpViaGoogle resolves a Google login to a user, linking the
// Google identity to an existing account or creating a new one.
func (m *Manager) SignInOrSignUpViaGoogle(ctx context.Context, in GoogleSignIn) (PublicView, error) {
	if err := ValidateEmail(in.Email); err != nil {
		return PublicView{}, err
	}

	existing, err := m.store.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return PublicView{}, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		if in.GoogleToken.IsEmpty() && existing.GoogleID != nil {
			return existing.Public(), nil
		}
		if err := m.store.LinkGoogle(ctx, in.Email, in.GoogleID, in.GoogleToken); err != nil {
			return PublicView{}, fmt.Errorf("link google account: %w", err)
		}
		return existing.Public(), nil
	}

	s, err := slug.Generate(ctx, m.slugTakenExcept(""), in.DisplayName, in.PublicAddress)
	if err != nil {
		return PublicView{}, fmt.Errorf("generate slug: %w", err)
	}

	u := &User{
		CreatedAt:           m.now().UTC(),
		GoogleID:            optional(in.GoogleID),
		Email:               in.Email,
		PublicAddress:       optional(in.PublicAddress),
		Nonce:               in.Nonce,
		GoogleToken:         in.GoogleToken,
		DisplayName:         in.DisplayName,
		AvatarURL:           in.AvatarURL,
		Slug:                s,
		IsSignedupViaGoogle: true,
	}
	if err := m.store.Create(ctx, u); err != nil {
		return PublicView{}, fmt.Errorf("create user: %w", err)
	}

	if err := m.welcome(ctx, u.Email, in.DisplayName); err != nil {
		return PublicView{}, err
	}
	return u.Public(), nil
}

// SignInOrSignUpByPasswordless creates the account for a passwordless signup.
// An email that is already registered is rejected with ErrAlreadyExists.
func (m *Manager) SignInOrSignUpByPasswordless(ctx context.Context, uid, address string) (PublicView, error) {
	if strings.TrimSpace(uid) == "" {
		return PublicView{}, fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}
	if err := ValidateEmail(address); err != nil {
		return PublicView{}, err
	}

	_, err := m.store.FindByEmail(ctx, address)
	switch {
	case err == nil:
		return PublicView{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return PublicView{}, fmt.Errorf("find user by email: %w", err)
	}

	s, err := slug.Generate(ctx, m.slugTakenExcept(""), address)
	if err != nil {
		return PublicView{}, fmt.Errorf("generate slug: %w", err)
	}

	u := &User{
		ID:        uid,
		CreatedAt: m.now().UTC(),
		Email:     address,
		Slug:      s,
	}
	if err := m.store.Create(ctx, u); err != nil {
		return PublicView{}, fmt.Errorf("create user: %w", err)
	}

	if err := m.welcome(ctx, address, address); err != nil {
		return PublicView{}, err
	}
	return u.Public(), nil
}

// welcome renders the welcome template and hands it to the notifier. Only a
// missing or broken template is reported; delivery failures are not.
func (m *Manager) welcome(ctx context.Context, to, userName string) error {
	msg, err := m.templates.Lookup(ctx, welcomeTemplate, map[string]string{"userName": userName})
	if err != nil {
		return fmt.Errorf("load %s template: %w", welcomeTemplate, err)
	}
	if msg == nil {
		return fmt.Errorf("%w: %s", ErrTemplateMissing, welcomeTemplate)
	}

	if out := m.notifier.NotifySignup(ctx, to, *msg); !out.OK() {
		log.Printf("user: signup notifications incomplete email=%s", to)
	}
	return nil
}

func (m *Manager) slugTakenExcept(id string) slug.ExistsFunc {
	return func(ctx context.Context, s string) (bool, error) {
		return m.store.SlugTaken(ctx, s, id)
	}
}

// ValidateEmail accepts only a bare address such as "jane@example.com".
func ValidateEmail(address string) error {
	if address == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidInput, address)
	}
	return nil
}

func validateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: avatar url must be an http(s) url", ErrInvalidInput)
	}
	return nil
}
