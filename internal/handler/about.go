package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AboutHandler struct {
	Name        string
	Version     string
	BuildNumber string
	// Ready reports whether the gateway can serve traffic; nil means always.
	Ready func() bool
}

func (h *AboutHandler) About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.Name, "version": h.Version, "buildNumber": h.BuildNumber})
}

func (h *AboutHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *AboutHandler) Readiness(c *gin.Context) {
	if h.Ready != nil && !h.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "KO"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
