package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/services/order"
	"github.com/rekberkan/kahade-sub000/internal/utils"
	"github.com/rekberkan/kahade-sub000/internal/validation"
)

type OrderHandler struct {
	orderService order.Service
}

func NewOrderHandler(orderService order.Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func orderID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		CounterpartyID *uint  `json:"counterparty_id"`
		Role           string `json:"role" validate:"required,oneof=buyer seller"`
		Title          string `json:"title" validate:"required"`
		Description    string `json:"description"`
		AmountMinor    int64  `json:"amount_minor" validate:"required,gt=0"`
		FeeMinor       int64  `json:"fee_minor" validate:"gte=0"`
		FeePayer       string `json:"fee_payer" validate:"omitempty,oneof=buyer seller"`
		Currency       string `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	created, err := h.orderService.Create(c.Context(), order.CreateInput{
		InitiatorID:    claims.UserID,
		CounterpartyID: input.CounterpartyID,
		InitiatorRole:  input.Role,
		Title:          input.Title,
		Description:    input.Description,
		AmountMinor:    input.AmountMinor,
		FeeMinor:       input.FeeMinor,
		FeePayer:       input.FeePayer,
		Currency:       input.Currency,
	})
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fiber.Map{"order": created})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := orderID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	o, err := h.orderService.Get(c.Context(), id, claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"order": o})
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	orders, err := h.orderService.List(c.Context(), claims.UserID, c.QueryInt("limit", 50))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"orders": orders})
}

// transition wraps the one-argument lifecycle actions that differ only in
// which service method they call.
func (h *OrderHandler) transition(c *fiber.Ctx, fn func(ctx *fiber.Ctx, id, callerID uint) (*models.Order, error)) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := orderID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	o, err := fn(c, id, claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"order": o})
}

func (h *OrderHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id, callerID uint) (*models.Order, error) {
		return h.orderService.Accept(c.Context(), id, callerID)
	})
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id, callerID uint) (*models.Order, error) {
		return h.orderService.Cancel(c.Context(), id, callerID)
	})
}

// Reject is the counterparty declining an order it has not funded yet. It is
// the same CANCELLED transition as Cancel under a clearer route name.
func (h *OrderHandler) Reject(c *fiber.Ctx) error {
	return h.Cancel(c)
}

func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id, callerID uint) (*models.Order, error) {
		return h.orderService.Pay(c.Context(), id, callerID)
	})
}

func (h *OrderHandler) ConfirmDelivery(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id, callerID uint) (*models.Order, error) {
		return h.orderService.ConfirmDelivery(c.Context(), id, callerID)
	})
}

func (h *OrderHandler) ConfirmReceipt(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id, callerID uint) (*models.Order, error) {
		return h.orderService.ConfirmReceipt(c.Context(), id, callerID)
	})
}
