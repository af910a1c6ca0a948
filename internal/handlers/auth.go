package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/config"
	"github.com/example/vitalux/internal/models"
	"github.com/example/vitalux/internal/services"
	"github.com/example/vitalux/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
// Registration lives here because it is the only place a referral edge is
// created; the points engine itself never mutates the forest.
type AuthHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	directory *services.Directory
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, directory *services.Directory) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, directory: directory}
}

type registerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// Register creates a new user account, optionally attached to a referrer
// through their referral code.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Phone == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	var existing models.User
	if err := h.db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		DisplayName:  fmt.Sprintf("%s %s", req.FirstName, req.LastName),
		PasswordHash: passwordHash,
	}
	user.ID = uuid.New()
	user.ReferralCode = utils.NewReferralCode(user.DisplayName)

	if req.ReferralCode != "" {
		var referrer models.User
		if err := h.db.Where("referral_code = ?", req.ReferralCode).First(&referrer).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusBadRequest, "unknown referral code")
			}
			return err
		}

		if err := h.directory.ValidateReferrer(c.Context(), user.ID, referrer.ID); err != nil {
			if errors.Is(err, services.ErrReferralCycle) {
				return fiber.NewError(fiber.StatusBadRequest, "invalid referrer")
			}
			return err
		}
		user.ReferrerID = &referrer.ID
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	respUser := map[string]interface{}{
		"id":            user.ID,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"phone":         user.Phone,
		"display_name":  user.DisplayName,
		"referral_code": user.ReferralCode,
		"referrer_id":   user.ReferrerID,
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    respUser,
		"token":   token,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	respUser := map[string]interface{}{
		"id":            user.ID,
		"display_name":  user.DisplayName,
		"phone":         user.Phone,
		"referral_code": user.ReferralCode,
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    respUser,
		"token":   token,
	})
}
