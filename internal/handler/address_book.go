package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/store"
)

type AddressBookHandler struct {
	Store *store.Store
}

type addressBookItemBody struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

func (h *AddressBookHandler) Get(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	book, err := h.Store.AddressBook(addr, c.Param("chainId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAddressBookView(book))
}

func (h *AddressBookHandler) CreateItem(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	var body addressBookItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.Store.CreateAddressBookItem(addr, c.Param("chainId"), body.Name, body.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAddressBookItemView(item))
}

func (h *AddressBookHandler) UpdateItem(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	var body addressBookItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.Store.UpdateAddressBookItem(addr, c.Param("chainId"), c.Param("itemId"), body.Name, body.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAddressBookItemView(item))
}

func (h *AddressBookHandler) DeleteItem(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteAddressBookItem(addr, c.Param("chainId"), c.Param("itemId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AddressBookHandler) Delete(c *gin.Context) {
	_, addr, ok := sessionFor(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteAddressBook(addr, c.Param("chainId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
