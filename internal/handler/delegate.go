package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/delegate"
)

// DelegateHandler serves the delegate registry. Requests carry their own
// EIP-712 proof and need no session.
type DelegateHandler struct {
	Registry *delegate.Registry
}

type createDelegateBody struct {
	Safe      *string `json:"safe"`
	Delegate  string  `json:"delegate" binding:"required"`
	Delegator string  `json:"delegator" binding:"required"`
	Signature string  `json:"signature" binding:"required"`
	Label     string  `json:"label" binding:"required"`
}

type deleteDelegateBody struct {
	Delegator *string `json:"delegator"`
	Safe      *string `json:"safe"`
	Signature string  `json:"signature" binding:"required"`
}

func optionalQuery(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok && v != "" {
		return &v
	}
	return nil
}

func (h *DelegateHandler) List(c *gin.Context) {
	list, err := h.Registry.List(delegate.Filter{
		ChainID:   c.Param("chainId"),
		Safe:      optionalQuery(c, "safe"),
		Delegator: optionalQuery(c, "delegator"),
		Delegate:  optionalQuery(c, "delegate"),
		Label:     optionalQuery(c, "label"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]delegateView, 0, len(list))
	for _, d := range list {
		out = append(out, newDelegateView(d))
	}
	c.JSON(http.StatusOK, singlePage(out))
}

func (h *DelegateHandler) Create(c *gin.Context) {
	var body createDelegateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := h.Registry.Create(delegate.CreateInput{
		ChainID:   c.Param("chainId"),
		Safe:      body.Safe,
		Delegator: body.Delegator,
		Delegate:  body.Delegate,
		Label:     body.Label,
		Signature: body.Signature,
	}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *DelegateHandler) Delete(c *gin.Context) {
	var body deleteDelegateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Registry.Delete(delegate.DeleteInput{
		ChainID:   c.Param("chainId"),
		Delegate:  c.Param("delegate"),
		Delegator: body.Delegator,
		Safe:      body.Safe,
		Signature: body.Signature,
	}); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
