package handlers

import (
	goerrors "errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/services/payment"
	"github.com/rekberkan/kahade-sub000/internal/utils"
)

type WebhookHandler struct {
	paymentService payment.Service
}

func NewWebhookHandler(paymentService payment.Service) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
	}
}

// Handle ingests one provider callback. The response is always 200 so a
// transient failure on our side never triggers a provider retry storm; the
// audit record carries the true outcome.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	provider := c.Params("provider")

	signature := c.Get("X-Callback-Token")
	if signature == "" {
		signature = c.Get("Stripe-Signature")
	}

	event, err := h.paymentService.Ingest(c.Context(), payment.IngestInput{
		Provider:  provider,
		Signature: signature,
		Payload:   c.Body(),
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrDuplicateEvent) {
			return utils.Success(c, fiber.Map{
				"received":  true,
				"duplicate": true,
			})
		}
		log.Printf("webhook ingest failed for provider %s: %v", provider, err)
		return utils.Success(c, fiber.Map{"received": true})
	}

	return utils.Success(c, fiber.Map{
		"received":  true,
		"processed": event.Status == models.PaymentEventProcessed,
	})
}
