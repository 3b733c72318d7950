package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/store"
)

type CounterfactualSafeHandler struct {
	Store *store.Store
}

type createCounterfactualSafeBody struct {
	ChainID          string   `json:"chainId" binding:"required"`
	FallbackHandler  string   `json:"fallbackHandler" binding:"required"`
	Owners           []string `json:"owners" binding:"required"`
	PredictedAddress string   `json:"predictedAddress" binding:"required"`
	SaltNonce        string   `json:"saltNonce" binding:"required"`
	SingletonAddress string   `json:"singletonAddress" binding:"required"`
	Threshold        int      `json:"threshold" binding:"required"`
}

func (h *CounterfactualSafeHandler) Create(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	var body createCounterfactualSafeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	safe, err := h.Store.CreateCounterfactualSafe(addr, store.CounterfactualSafeInput{
		ChainID:          body.ChainID,
		PredictedAddress: body.PredictedAddress,
		Owners:           body.Owners,
		Threshold:        body.Threshold,
		SingletonAddress: body.SingletonAddress,
		FallbackHandler:  body.FallbackHandler,
		SaltNonce:        body.SaltNonce,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCounterfactualSafeView(safe))
}

func (h *CounterfactualSafeHandler) Get(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	safe, err := h.Store.CounterfactualSafe(addr, c.Param("chainId"), c.Param("predictedAddress"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCounterfactualSafeView(safe))
}

func (h *CounterfactualSafeHandler) List(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	safes, err := h.Store.ListCounterfactualSafes(addr)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]counterfactualSafeView, 0, len(safes))
	for _, s := range safes {
		out = append(out, newCounterfactualSafeView(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CounterfactualSafeHandler) Delete(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteCounterfactualSafe(addr, c.Param("chainId"), c.Param("predictedAddress")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CounterfactualSafeHandler) DeleteAll(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	if _, err := h.Store.DeleteCounterfactualSafes(addr); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
