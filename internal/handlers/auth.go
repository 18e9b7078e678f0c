package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/registration"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db           *gorm.DB
	sessions     *session.Store
	registration *registration.Service
	jwtSecret    string
	tokenTTL     time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, sessions *session.Store, reg *registration.Service, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions, registration: reg, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// withSession loads the browsing session, runs fn and saves the session.
func (h *AuthHandler) withSession(c *fiber.Ctx, fn func(registration.Session) error) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return apperr.Internal(err)
	}
	fnErr := fn(fiberSession{sess: sess})
	if err := sess.Save(); err != nil {
		return apperr.Internal(err)
	}
	return fnErr
}

// Register starts a registration and emails a verification code.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registration.BeginInput
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var out *registration.Outcome
	err := h.withSession(c, func(s registration.Session) error {
		var err error
		out, err = h.registration.Begin(c.UserContext(), s, req)
		return err
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"email":      out.Email,
			"expires_at": out.ExpiresAt,
		},
		"warning": warningBody(out.Warning),
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// Verify checks the emailed code and creates the account.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	var account *registration.Account
	err := h.withSession(c, func(s registration.Session) error {
		var err error
		account, err = h.registration.Verify(c.UserContext(), s, req.Code)
		return err
	})
	if err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.jwtSecret, account.UserID, h.tokenTTL)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"account_id":  account.UserID,
			"customer_id": account.CustomerID,
			"username":    account.Username,
			"email":       account.Email,
			"token":       token,
		},
	})
}

// Resend issues a fresh verification code for the pending registration.
func (h *AuthHandler) Resend(c *fiber.Ctx) error {
	var out *registration.Outcome
	err := h.withSession(c, func(s registration.Session) error {
		var err error
		out, err = h.registration.Resend(c.UserContext(), s)
		return err
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"email":      out.Email,
			"expires_at": out.ExpiresAt,
		},
		"warning": warningBody(out.Warning),
	})
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by username or email.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}

	login := strings.ToLower(strings.TrimSpace(req.Login))
	var user models.User
	err := h.db.WithContext(c.UserContext()).
		Where("LOWER(username) = ? OR LOWER(email) = ?", login, login).
		First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	if !user.IsActive || !utils.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.Unauthorized("invalid credentials")
	}

	now := time.Now()
	if err := h.db.WithContext(c.UserContext()).Model(&user).Update("last_login_at", now).Error; err != nil {
		return apperr.Internal(err)
	}

	token, err := utils.GenerateToken(h.jwtSecret, user.ID, h.tokenTTL)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  user,
			"token": token,
		},
	})
}
