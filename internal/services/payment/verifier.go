package payment

import (
	"crypto/subtle"

	"github.com/stripe/stripe-go/v72/webhook"
)

// Verifier authenticates one provider's callback deliveries. Verify must not
// leak timing information about the configured secret.
type Verifier interface {
	Verify(payload []byte, signature string) bool
}

// CallbackTokenVerifier covers providers that send a static callback token in
// a header (the xendit style: the token is compared, the body is not signed).
type CallbackTokenVerifier struct {
	secret []byte
}

func NewCallbackTokenVerifier(secret string) *CallbackTokenVerifier {
	return &CallbackTokenVerifier{secret: []byte(secret)}
}

func (v *CallbackTokenVerifier) Verify(_ []byte, signature string) bool {
	if len(v.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.secret, []byte(signature)) == 1
}

// StripeVerifier checks Stripe's signed webhook header against the payload.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) bool {
	if v.secret == "" {
		return false
	}
	_, err := webhook.ConstructEvent(payload, signature, v.secret)
	return err == nil
}
