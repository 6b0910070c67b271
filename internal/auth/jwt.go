package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:text;index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshStore persists hashed refresh tokens.
type RefreshStore interface {
	Save(ctx context.Context, rt *RefreshToken) error
	// Consume deletes and returns the unexpired token with the given hash.
	Consume(ctx context.Context, hash string, now time.Time) (*RefreshToken, error)
}

type TokenIssuer struct {
	secret []byte
	store  RefreshStore
	now    func() time.Time
}

func NewTokenIssuer(secret string, store RefreshStore) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), store: store, now: time.Now}
}

// Issue returns a 15 minute access token and a 7 day single-use refresh token.
func (i *TokenIssuer) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	now := i.now()
	accessClaims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(accessTokenTTL).Unix(),
		"iat": now.Unix(),
	}
	accessStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshStr := uuid.NewString()
	rt := &RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshStr),
		ExpiresAt: now.Add(refreshTokenTTL),
	}
	if err := i.store.Save(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The old token is spent.
func (i *TokenIssuer) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	rt, err := i.store.Consume(ctx, hashToken(refreshToken), i.now())
	if err != nil {
		return nil, err
	}
	return i.Issue(ctx, rt.UserID)
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

type RefreshRepository struct {
	db *gorm.DB
}

func NewRefreshRepository(db *gorm.DB) *RefreshRepository {
	return &RefreshRepository{db: db}
}

func (r *RefreshRepository) Save(ctx context.Context, rt *RefreshToken) error {
	return r.db.WithContext(ctx).Create(rt).Error
}

func (r *RefreshRepository) Consume(ctx context.Context, hash string, now time.Time) (*RefreshToken, error) {
	var rt RefreshToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND expires_at > ?", hash, now).First(&rt).Error; err != nil {
			return err
		}
		return tx.Delete(&rt).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}
