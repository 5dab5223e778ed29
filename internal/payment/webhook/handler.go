package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// SignatureHeader carries the gateway's hex-encoded HMAC of the raw body.
const SignatureHeader = "X-Webhook-Signature"

// provider tags ledger rows so a second gateway can share the table later.
const provider = "checkout"

const maxBodyBytes = 1 << 20

// PaymentProcessor is the slice of the order service the webhook needs.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, event *payment.Event) (*order.Order, error)
}

type Handler struct {
	gateway payment.Gateway
	orders  PaymentProcessor
	ledger  payment.Repository
}

func NewHandler(gateway payment.Gateway, orders PaymentProcessor, ledger payment.Repository) *Handler {
	return &Handler{gateway: gateway, orders: orders, ledger: ledger}
}

// ServeHTTP handles gateway event deliveries. Status codes steer the
// sender's retry loop: 400 for requests that will never verify, 200 for
// anything handled (including duplicates and unknown orders), 500 only
// for failures a retry could fix.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	// Verification runs over the exact bytes on the wire. Parsing first
	// and re-encoding would silently break the signature.
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteJSONError(w, "could not read request body", http.StatusBadRequest)
		return
	}

	event, err := h.gateway.VerifyWebhook(rawBody, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			log.Warn("webhook rejected, bad signature", zap.String("remote_addr", r.RemoteAddr))
			utils.WriteJSONError(w, "invalid signature", http.StatusBadRequest)
			return
		}
		// Authentic but unparseable: retrying the same bytes cannot help.
		log.Error("webhook payload unparseable", zap.Error(err))
		utils.WriteJSONError(w, "malformed event payload", http.StatusBadRequest)
		return
	}

	log = log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID()),
	)

	// Short-circuit only deliveries whose earlier attempt completed. A
	// redelivery of an event that previously failed with a 500 must run
	// again, otherwise the retry the 500 asked for could never succeed.
	webhookID, alreadyProcessed, err := h.ledger.SaveWebhookEvent(ctx, provider, event.ID, event.Type, event.OrderID(), rawBody)
	if err != nil {
		log.Error("webhook ledger write failed", zap.Error(err))
		utils.WriteJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if alreadyProcessed {
		log.Info("duplicate webhook delivery acknowledged")
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true, "duplicate": true})
		return
	}

	if event.Type != payment.EventPaymentSucceeded {
		log.Info("ignoring webhook event type")
		if err := h.ledger.MarkWebhookProcessed(ctx, webhookID); err != nil {
			log.Warn("could not mark webhook processed", zap.Error(err))
		}
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true})
		return
	}

	o, err := h.orders.ProcessPayment(ctx, event)
	if err != nil {
		// Retries against cancelled or purged test orders are routine;
		// a 5xx would only make the gateway hammer us with more of them.
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn("webhook references unknown order")
			if markErr := h.ledger.MarkWebhookProcessed(ctx, webhookID); markErr != nil {
				log.Warn("could not mark webhook processed", zap.Error(markErr))
			}
			utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true})
			return
		}

		log.Error("payment processing failed", zap.Error(err))
		if markErr := h.ledger.MarkWebhookFailed(ctx, webhookID, err.Error()); markErr != nil {
			log.Warn("could not mark webhook failed", zap.Error(markErr))
		}
		utils.WriteJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.ledger.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Warn("could not mark webhook processed", zap.Error(err))
	}

	log.Info("webhook processed", zap.String("order_status", string(o.Status)))
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"received": true, "orderId": o.OrderID})
}
