package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/services/dispute"
	"github.com/rekberkan/kahade-sub000/internal/utils"
	"github.com/rekberkan/kahade-sub000/internal/validation"
)

type DisputeHandler struct {
	disputeService dispute.Service
}

func NewDisputeHandler(disputeService dispute.Service) *DisputeHandler {
	return &DisputeHandler{
		disputeService: disputeService,
	}
}

func disputeID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// Open opens a dispute on an order; routed under /orders/:id/dispute.
func (h *DisputeHandler) Open(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := orderID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	d, err := h.disputeService.Create(c.Context(), id, claims.UserID, input.Reason)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fiber.Map{"dispute": d})
}

func (h *DisputeHandler) Get(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	d, timeline, err := h.disputeService.Get(c.Context(), id, claims.UserID, claims.Role == models.RoleAdmin)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"dispute":  d,
		"timeline": timeline,
	})
}

func (h *DisputeHandler) Respond(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	var input struct {
		Response string `json:"response" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	d, err := h.disputeService.Respond(c.Context(), id, claims.UserID, input.Response)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}

func (h *DisputeHandler) SubmitEvidence(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	var input struct {
		Description string   `json:"description"`
		Attachments []string `json:"attachments"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	d, err := h.disputeService.SubmitEvidence(c.Context(), id, claims.UserID, input.Description, input.Attachments)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}

func (h *DisputeHandler) Appeal(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	var input struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	d, err := h.disputeService.Appeal(c.Context(), id, claims.UserID, input.Reason)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}

// Escalate is an admin action.
func (h *DisputeHandler) Escalate(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	d, err := h.disputeService.Escalate(c.Context(), id, claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}

// AssignArbitrator is an admin action.
func (h *DisputeHandler) AssignArbitrator(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	var input struct {
		ArbitratorID uint `json:"arbitrator_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	d, err := h.disputeService.AssignArbitrator(c.Context(), id, claims.UserID, input.ArbitratorID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}

// Resolve is the arbitrator's decision.
func (h *DisputeHandler) Resolve(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := disputeID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid dispute id")
	}

	var input struct {
		Decision          string `json:"decision" validate:"required"`
		SellerAmountMinor int64  `json:"seller_amount_minor" validate:"gte=0"`
		BuyerRefundMinor  int64  `json:"buyer_refund_minor" validate:"gte=0"`
		Notes             string `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	d, err := h.disputeService.Resolve(c.Context(), id, claims.UserID, dispute.ResolveInput{
		Decision:          input.Decision,
		SellerAmountMinor: input.SellerAmountMinor,
		BuyerRefundMinor:  input.BuyerRefundMinor,
		Notes:             input.Notes,
	})
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"dispute": d})
}
