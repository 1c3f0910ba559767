package handlers

import (
	"net/http"

	"creddit/internal/middleware"
	"creddit/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	identity *services.Identity
	log      *logrus.Logger
}

func NewAuthHandler(identity *services.Identity, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

var noUser = gin.H{"user": nil}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.identity.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err, noUser)
		return
	}
	// 注册成功后自动登录
	if !h.login(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.identity.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeError(c, h.log, err, noUser)
		return
	}
	if !h.login(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.identity.EndSession(c.Request.Context(), middleware.SessionID(c)); err != nil {
		writeError(c, h.log, err, gin.H{"ok": false})
		return
	}
	if err := middleware.ClearSession(c); err != nil {
		writeError(c, h.log, err, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.identity.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, h.log, err, noUser)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, noUser)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ForgotPassword always answers ok so the response does not reveal
// which addresses are registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	h.identity.ForgotPassword(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.identity.ChangePassword(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeError(c, h.log, err, noUser)
		return
	}
	if !h.login(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// login binds a new server-side session to userID and writes the cookie.
// Any session the client already held is ended first.
func (h *AuthHandler) login(c *gin.Context, userID uint) bool {
	if old := middleware.SessionID(c); old != "" {
		if err := h.identity.EndSession(c.Request.Context(), old); err != nil {
			h.log.WithError(err).Warn("could not end previous session")
		}
	}

	sid, err := h.identity.NewSession(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err, noUser)
		return false
	}
	if err := middleware.BindSession(c, sid); err != nil {
		writeError(c, h.log, err, noUser)
		return false
	}
	return true
}
