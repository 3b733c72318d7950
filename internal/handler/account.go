package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/middleware"
	"safe-gateway-lite/internal/model"
	"safe-gateway-lite/internal/store"
)

type AccountHandler struct {
	Store *store.Store
}

type createAccountBody struct {
	Address string  `json:"address" binding:"required"`
	Name    *string `json:"name"`
	GroupID *string `json:"groupId"`
}

func (h *AccountHandler) Create(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "missing session"))
		return
	}
	var body createAccountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	addr, err := address.Checksum(body.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	if addr != sess.Address {
		respondError(c, apperr.Wrap(apperr.ErrUnauthorized, "session does not own this account"))
		return
	}

	acc, err := h.Store.CreateAccount(addr, body.GroupID, body.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountView(acc))
}

func (h *AccountHandler) Get(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	acc, err := h.Store.GetAccount(addr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountView(acc))
}

func (h *AccountHandler) Delete(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	if _, err := h.Store.DeleteAccount(addr); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) DataTypes(c *gin.Context) {
	out := make([]dataTypeView, 0, len(model.DataTypes))
	for _, dt := range model.DataTypes {
		out = append(out, dataTypeView{ID: dt.ID, Name: dt.Name, Description: dt.Description, IsActive: dt.IsActive})
	}
	c.JSON(http.StatusOK, out)
}

func (h *AccountHandler) DataSettings(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	settings, err := h.Store.DataSettings(addr)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDataSettingViews(settings))
}

type upsertDataSettingsBody struct {
	AccountDataSettings []dataSettingView `json:"accountDataSettings" binding:"required"`
}

func (h *AccountHandler) UpsertDataSettings(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	var body upsertDataSettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	in := make([]model.AccountDataSetting, 0, len(body.AccountDataSettings))
	for _, s := range body.AccountDataSettings {
		in = append(in, model.AccountDataSetting{DataTypeID: s.DataTypeID, Enabled: s.Enabled})
	}
	out, err := h.Store.UpsertDataSettings(addr, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDataSettingViews(out))
}
