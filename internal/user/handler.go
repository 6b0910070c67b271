package user

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type updateProfileRequest struct {
	Name          string `json:"name"`
	PublicAddress string `json:"publicAddress"`
	AvatarURL     string `json:"avatarUrl"`
}

func (h *Handler) GetBySlug(c *fiber.Ctx) error {
	p, err := h.manager.GetUserBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return RespondError(c, err)
	}
	if p == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(p)
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	}

	view, err := h.manager.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	view, err := h.manager.UpdateProfile(c.UserContext(), userID, req.Name, req.PublicAddress, req.AvatarURL)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(view)
}

func currentUserID(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return "", false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// RespondError maps domain errors to HTTP responses. Unknown errors are
// logged and reported as a generic 500.
func RespondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user already exists"})
	case errors.Is(err, ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
