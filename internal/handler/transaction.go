package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/middleware"
	"safe-gateway-lite/internal/txengine"
)

type TransactionHandler struct {
	Engine *txengine.Engine
}

type proposeBody struct {
	To             string  `json:"to" binding:"required"`
	Value          string  `json:"value" binding:"required"`
	Data           string  `json:"data"`
	Nonce          string  `json:"nonce" binding:"required"`
	Operation      int     `json:"operation"`
	SafeTxHash     string  `json:"safeTxHash" binding:"required"`
	SafeTxGas      string  `json:"safeTxGas"`
	BaseGas        string  `json:"baseGas"`
	GasPrice       string  `json:"gasPrice"`
	GasToken       string  `json:"gasToken"`
	RefundReceiver string  `json:"refundReceiver"`
	Sender         string  `json:"sender" binding:"required"`
	Signature      string  `json:"signature" binding:"required"`
	Origin         *string `json:"origin"`
}

type signatureBody struct {
	Signature string `json:"signature" binding:"required"`
}

func (h *TransactionHandler) Nonces(c *gin.Context) {
	nonces, err := h.Engine.RecommendNonce(c.Request.Context(), c.Param("chainId"), c.Param("safeAddress"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currentNonce": nonces.CurrentNonce, "recommendedNonce": nonces.RecommendedNonce})
}

func (h *TransactionHandler) Propose(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session"))
		return
	}
	var body proposeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.Engine.Propose(c.Request.Context(), sess, c.Param("chainId"), c.Param("safeAddress"), txengine.ProposeInput{
		SafeTxHash:     body.SafeTxHash,
		To:             body.To,
		Value:          body.Value,
		Data:           body.Data,
		Nonce:          body.Nonce,
		Operation:      body.Operation,
		SafeTxGas:      body.SafeTxGas,
		BaseGas:        body.BaseGas,
		GasPrice:       body.GasPrice,
		GasToken:       body.GasToken,
		RefundReceiver: body.RefundReceiver,
		Sender:         body.Sender,
		Signature:      body.Signature,
		Origin:         body.Origin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionView(tx))
}

func (h *TransactionHandler) Get(c *gin.Context) {
	tx, err := h.Engine.GetTransaction(c.Request.Context(), c.Param("chainId"), c.Param("safeTxHash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionView(tx))
}

func (h *TransactionHandler) Confirm(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session"))
		return
	}
	var body signatureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.Engine.Confirm(c.Request.Context(), sess, c.Param("chainId"), c.Param("safeTxHash"), body.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionView(tx))
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session"))
		return
	}
	var body signatureBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Engine.Delete(c.Request.Context(), sess, c.Param("chainId"), c.Param("safeTxHash"), body.Signature); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TransactionHandler) Queued(c *gin.Context) {
	txs, err := h.Engine.GetQueue(c.Request.Context(), c.Param("chainId"), c.Param("safeAddress"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, singlePage(newTransactionViews(txs)))
}

func (h *TransactionHandler) History(c *gin.Context) {
	txs, err := h.Engine.GetHistory(c.Request.Context(), c.Param("chainId"), c.Param("safeAddress"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, singlePage(newTransactionViews(txs)))
}
