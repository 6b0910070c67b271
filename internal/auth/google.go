package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saasapp/server/internal/user"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookie       = "oauth_state"
)

type GoogleHandler struct {
	oauthConfig *oauth2.Config
	userInfoURL string
	users       *user.Manager
	tokens      *TokenIssuer
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewGoogleHandler(clientID, clientSecret, redirectURL string, users *user.Manager, tokens *TokenIssuer) *GoogleHandler {
	return &GoogleHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		users:       users,
		tokens:      tokens,
	}
}

func (h *GoogleHandler) RedirectToGoogle(c *fiber.Ctx) error {
	state, err := randomToken(16)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "select_account"))
	return c.Redirect(url)
}

func (h *GoogleHandler) Callback(c *fiber.Ctx) error {
	if state := c.Query("state"); state == "" || state != c.Cookies(stateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid oauth state"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}

	ctx := c.UserContext()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.Printf("google: exchange code: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to exchange code"})
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		log.Printf("google: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get user info"})
	}
	// An existing account is matched by email, so the address must be one
	// Google has verified.
	if !info.VerifiedEmail {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "google email is not verified"})
	}

	view, err := h.users.SignInOrSignUpViaGoogle(ctx, user.GoogleSignIn{
		GoogleID:    info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
		GoogleToken: user.GoogleToken{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
		},
	})
	if err != nil {
		return user.RespondError(c, err)
	}

	tokens, err := h.tokens.Issue(ctx, view.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate tokens"})
	}

	c.ClearCookie(stateCookie)
	return c.JSON(signInResponse{User: view, Tokens: tokens})
}

func (h *GoogleHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	resp, err := h.oauthConfig.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("user info missing id or email")
	}
	return &info, nil
}
