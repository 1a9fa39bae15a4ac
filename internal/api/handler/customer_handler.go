package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/etiya/crm-client/internal/core/ports"
)

// CustomerHandler serves /customers. Every route is ADMIN only.
type CustomerHandler struct {
	customers ports.CustomerGateway
}

func NewCustomerHandler(customers ports.CustomerGateway) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List returns every customer.
//
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Customer
// @Failure      403  {object}  map[string]string
// @Router       /customers [get]
func (h *CustomerHandler) List(c echo.Context) error {
	out, err := h.customers.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one customer.
//
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer id"
// @Success      200  {object}  domain.Customer
// @Failure      404  {object}  map[string]string
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.customers.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds a customer; the server assigns the id.
//
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.CustomerInput  true  "Customer"
// @Success      201   {object}  domain.Customer
// @Failure      422   {object}  map[string]string
// @Router       /customers [post]
func (h *CustomerHandler) Create(c echo.Context) error {
	var req ports.CustomerInput
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.customers.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// Update applies a partial update.
//
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Customer id"
// @Param        body  body      ports.CustomerUpdate  true  "Changed fields"
// @Success      200   {object}  domain.Customer
// @Failure      404   {object}  map[string]string
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ports.CustomerUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := h.customers.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes a customer.
//
// @Summary      Delete customer
// @Tags         customers
// @Security     BearerAuth
// @Param        id   path  int  true  "Customer id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.customers.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
