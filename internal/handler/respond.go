package handler

import (
	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/middleware"
)

// Page wraps list results the way the paginated endpoints of the public
// API do. The gateway returns everything in one page.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func singlePage[T any](results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: len(results), Results: results}
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, apperr.Wrap(apperr.ErrInvalidInput, err.Error()))
}

// sessionFor returns the caller's session when it owns the :address path
// parameter and renders the error otherwise.
func sessionFor(c *gin.Context) (auth.Session, string, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session"))
		return auth.Session{}, "", false
	}
	addr, err := address.Checksum(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return auth.Session{}, "", false
	}
	if addr != sess.Address {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "session does not own this account"))
		return auth.Session{}, "", false
	}
	return sess, addr, true
}
