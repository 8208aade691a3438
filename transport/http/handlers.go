package http

import (
	"net/http"

	"github.com/acmebet/gatekeeper/adapters/siwe"
	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"github.com/acmebet/gatekeeper/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// AuthHandlers contains the HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	messages    ports.MessageSource
}

// NewAuthHandlers creates the handlers.
func NewAuthHandlers(authService *service.AuthService, messages ports.MessageSource) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		messages:    messages,
	}
}

// Challenge returns the sign-in message a wallet must sign for an address.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		SignAddress string `json:"signAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	challenge := h.authService.ChallengeMessage(req.SignAddress)
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"payload": gin.H{
			"message":  siwe.Render(challenge),
			"issuedAt": challenge.IssuedAt,
		},
	})
}

// SignUp registers a user and returns the first token pair.
func (h *AuthHandlers) SignUp(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password"`
		SignAddress string `json:"signAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if req.Password != "" {
		if err := core.ValidatePassword(req.Password); err != nil {
			badRequest(c, "Password must be at least 6 characters with upper, lower and digit")
			return
		}
	}

	result, err := h.authService.SignUp(c.Request.Context(), service.SignUpInput{
		Username:    req.Username,
		Password:    req.Password,
		SignAddress: req.SignAddress,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  http.StatusCreated,
		"payload": result,
	})
}

// SignIn authenticates by password and/or wallet signature.
func (h *AuthHandlers) SignIn(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password"`
		SignAddress string `json:"signAddress"`
		SignedSig   string `json:"signedSig"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	result, err := h.authService.SignIn(c.Request.Context(), service.SignInInput{
		Username:    req.Username,
		Password:    req.Password,
		SignAddress: req.SignAddress,
		Signature:   req.SignedSig,
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"payload": result,
	})
}

// RefreshToken rotates the token pair for a device.
func (h *AuthHandlers) RefreshToken(c *gin.Context) {
	var req struct {
		DeviceID     string `json:"deviceId"`
		Platform     string `json:"platform"`
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), service.RefreshInput{
		DeviceID:     req.DeviceID,
		Platform:     req.Platform,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  http.StatusCreated,
		"payload": result,
	})
}

// Logout deletes the caller's session row for the supplied device.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	identity, ok := callerIdentity(c)
	if !ok {
		h.fail(c, core.NewError(core.KindUnauthorized, nil))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.DeviceID, identity); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "Success",
	})
}

// ResetPassword changes the caller's password after checking the old one.
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := core.ValidatePassword(req.NewPassword); err != nil {
		badRequest(c, "Password must be at least 6 characters with upper, lower and digit")
		return
	}

	identity, ok := callerIdentity(c)
	if !ok {
		h.fail(c, core.NewError(core.KindUnauthorized, nil))
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		UserID:      identity.UserID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"message": "Password updated successfully",
	})
}

// fail maps a tagged error to its HTTP status and localized message.
// Anything untagged is folded into a generic 500 so internal detail never
// leaves the process.
func (h *AuthHandlers) fail(c *gin.Context, err error) {
	tagged := core.WrapUnexpected(err)
	msg := h.messages.Message(requestLanguage(c), tagged.Kind)
	c.JSON(tagged.HTTPStatus, gin.H{
		"status":  tagged.HTTPStatus,
		"message": msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  http.StatusBadRequest,
		"message": msg,
	})
}

// requestLanguage picks the response language from Accept-Language,
// defaulting to English.
func requestLanguage(c *gin.Context) language.Tag {
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}

func callerIdentity(c *gin.Context) (core.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return core.Identity{}, false
	}
	identity, ok := value.(core.Identity)
	if !ok {
		return core.Identity{}, false
	}
	return identity, true
}
