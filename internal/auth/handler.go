package auth

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saasapp/server/internal/user"
)

type Handler struct {
	users  *user.Manager
	tokens *TokenIssuer
	links  *MagicLinks
}

func NewHandler(users *user.Manager, tokens *TokenIssuer, links *MagicLinks) *Handler {
	return &Handler{users: users, tokens: tokens, links: links}
}

type passwordlessRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type signInResponse struct {
	User   user.PublicView `json:"user"`
	Tokens *TokenPair      `json:"tokens"`
}

// Passwordless mails a one-time sign-in link. The response does not reveal
// whether the address already has an account.
func (h *Handler) Passwordless(c *fiber.Ctx) error {
	var req passwordlessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	err := h.links.Send(c.UserContext(), strings.TrimSpace(req.Email))
	if errors.Is(err, user.ErrInvalidInput) {
		return user.RespondError(c, err)
	}
	if err != nil {
		log.Printf("auth: send magic link: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to send sign-in link"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// VerifyPasswordless redeems a magic link. A known address is signed in; a
// new one gets an account with a server-generated id.
func (h *Handler) VerifyPasswordless(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctx := c.UserContext()
	address, err := h.links.Redeem(ctx, req.Token)
	if errors.Is(err, ErrInvalidMagicLink) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired link"})
	}
	if err != nil {
		return user.RespondError(c, err)
	}

	status := fiber.StatusOK
	view, err := h.users.GetUserByEmail(ctx, address)
	if errors.Is(err, user.ErrNotFound) {
		status = fiber.StatusCreated
		view, err = h.users.SignInOrSignUpByPasswordless(ctx, uuid.NewString(), address)
	}
	if err != nil {
		return user.RespondError(c, err)
	}

	tokens, err := h.tokens.Issue(ctx, view.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate tokens"})
	}
	return c.Status(status).JSON(signInResponse{User: view, Tokens: tokens})
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	tokens, err := h.tokens.Rotate(c.UserContext(), req.RefreshToken)
	if errors.Is(err, ErrInvalidRefreshToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate tokens"})
	}
	return c.JSON(tokens)
}
