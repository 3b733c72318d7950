package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/metrics"
	"safe-gateway-lite/internal/middleware"
)

type AuthHandler struct {
	Authenticator *auth.Authenticator
	// SecureCookie marks the credential cookie Secure; set when serving TLS.
	SecureCookie bool
}

type verifyBody struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (h *AuthHandler) Nonce(c *gin.Context) {
	ch, err := h.Authenticator.IssueChallenge()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": ch.Nonce, "expiresAt": ch.ExpiresAt.UTC().Format(time.RFC3339)})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("malformed").Inc()
		badRequest(c, err)
		return
	}

	sess, token, err := h.Authenticator.Authenticate(body.Message, body.Signature)
	if err != nil {
		outcome := "error"
		if kind, ok := apperr.Kind(err); ok {
			outcome = kind.Code()
		}
		metrics.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
		respondError(c, err)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("ok").Inc()

	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CredentialCookie, token, maxAge, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"address":   sess.Address,
		"expiresAt": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if credential := middleware.Credential(c); credential != "" {
		h.Authenticator.Logout(credential)
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CredentialCookie, "", -1, "/", "", h.SecureCookie, true)
	c.Status(http.StatusOK)
}
