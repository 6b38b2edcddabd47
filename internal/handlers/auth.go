package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/models"
	"github.com/example/tillpoint/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
}

// Register creates a new staff account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	role := req.Role
	if role == "" {
		role = "cashier"
	}
	switch role {
	case "admin", "manager", "cashier":
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown role")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		TenantID:     req.TenantID,
		Role:         role,
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	return h.respondWithTokens(c, fiber.StatusCreated, &user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !user.IsActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account disabled")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	return h.respondWithTokens(c, fiber.StatusOK, &user)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is revoked so each refresh token is usable exactly once.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var stored models.RefreshToken
	err := h.db.Where("token_hash = ?", utils.HashToken(req.RefreshToken)).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
		}
		return err
	}

	if !stored.Active(time.Now()) {
		return fiber.NewError(fiber.StatusUnauthorized, "refresh token expired or revoked")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	if !user.IsActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account disabled")
	}

	now := time.Now()
	stored.RevokedAt = &now
	if err := h.db.Save(&stored).Error; err != nil {
		return err
	}

	return h.respondWithTokens(c, fiber.StatusOK, &user)
}

// Revoke invalidates a refresh token (logout). Revoking an unknown token is
// not an error; the caller is discarding the credential either way.
func (h *AuthHandler) Revoke(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := time.Now()
	if err := h.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(req.RefreshToken)).
		Update("revoked_at", &now).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) respondWithTokens(c *fiber.Ctx, status int, user *models.User) error {
	accessToken, err := utils.GenerateAccessToken(
		h.cfg.JWTSecret, user.ID, user.TenantID, user.Role, user.Email, h.cfg.AccessTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	refreshToken, err := utils.NewRefreshToken()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate refresh token")
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(h.cfg.RefreshTokenTTL),
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"email":      user.Email,
			"tenant_id":  user.TenantID,
			"role":       user.Role,
		},
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}
