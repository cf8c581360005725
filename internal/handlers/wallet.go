package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
	"github.com/rekberkan/kahade-sub000/internal/utils"
	"github.com/rekberkan/kahade-sub000/internal/validation"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}

	return utils.Success(c, fiber.Map{
		"wallet": w,
	})
}

func (h *WalletHandler) ListMovements(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	movements, err := h.walletService.ListMovements(c.Context(), claims.UserID, c.QueryInt("limit", 50))
	if err != nil {
		return utils.Error(c, err)
	}

	return utils.Success(c, fiber.Map{
		"movements": movements,
	})
}

func (h *WalletHandler) RequestWithdrawal(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
		ExternalRef string `json:"external_ref" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Error(c, err)
	}

	withdrawal, err := h.walletService.RequestWithdrawal(c.Context(), claims.UserID, input.AmountMinor, input.ExternalRef)
	if err != nil {
		return utils.Error(c, err)
	}

	return utils.Created(c, fiber.Map{
		"withdrawal": withdrawal,
	})
}
