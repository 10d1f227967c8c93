package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-service/internal/repository"
	"auth-service/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
	}
}

// Signup maneja POST /signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Requires2FA bool   `json:"requires2FA"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		return
	}

	err := h.authServ.SignUp(c.Request.Context(), req.Email, req.Password, req.Requires2FA)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, repository.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

// Login maneja POST /login. Si el usuario requiere 2FA responde 206 con
// el loginAttemptId; el codigo viaja solo por correo.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, service.ErrIncorrectCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect credentials"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error"})
		}
		return
	}

	if result.TwoFactor {
		c.JSON(http.StatusPartialContent, gin.H{
			"message":        "2FA required",
			"loginAttemptId": result.LoginAttemptID.Expose(),
		})
		return
	}

	setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

// Verify2FA maneja POST /verify-2fa.
func (h *AuthHandler) Verify2FA(c *gin.Context) {
	var req struct {
		Email          string `json:"email" binding:"required"`
		LoginAttemptID string `json:"loginAttemptId" binding:"required"`
		TwoFACode      string `json:"2FACode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify 2fa request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.authServ.Verify2FA(c.Request.Context(), req.Email, req.LoginAttemptID, req.TwoFACode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
		case errors.Is(err, service.ErrIncorrectCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect credentials"})
		default:
			h.logger.Error("verify 2fa failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error"})
		}
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

// Logout maneja POST /logout. Banea el token vigente y borra la cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(service.SessionCookieName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	if err := h.authServ.Logout(c.Request.Context(), token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		default:
			h.logger.Error("logout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error"})
		}
		return
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// VerifyToken maneja POST /verify-token.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	if err := h.authServ.VerifyToken(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token is valid"})
}

// DeleteAccount maneja POST /delete-account. La cuenta a borrar sale
// del claim sub de la cookie de sesion.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	token, err := c.Cookie(service.SessionCookieName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	if err := h.authServ.DeleteAccount(c.Request.Context(), token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			h.logger.Error("delete account failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error"})
		}
		return
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.SessionCookieName, token, 0, "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.SessionCookieName, "", -1, "/", "", false, true)
}
