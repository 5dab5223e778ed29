package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront-be/internal/clients"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	orders order.Service
}

func NewHandler(orders order.Service) *Handler {
	return &Handler{orders: orders}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, checkoutURL, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"order":       o,
		"checkoutUrl": checkoutURL,
	})
}

// listOrders returns the caller's own orders; admins may pass ?status= to
// list across users instead.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		if utils.GetUserRoleFromContext(r.Context()) != "admin" {
			utils.WriteJSONError(w, "admin access required", http.StatusForbidden)
			return
		}
		orders, err := h.orders.ListByStatus(r.Context(), order.OrderStatus(status))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	if utils.GetUserRoleFromContext(r.Context()) != "admin" {
		utils.WriteJSONError(w, "admin access required", http.StatusForbidden)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), order.OrderStatus(body.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	if utils.GetUserRoleFromContext(r.Context()) != "admin" {
		utils.WriteJSONError(w, "admin access required", http.StatusForbidden)
		return
	}

	counts, err := h.orders.StatusCounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// writeError maps domain errors onto status codes. Anything unrecognized
// is logged with context and reported opaquely.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var remoteErr *clients.RemoteError

	switch {
	case errors.Is(err, order.ErrInvalidInput), errors.Is(err, order.ErrInvalidStatus):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrCannotCancel):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, order.ErrUnauthorized):
		utils.WriteJSONError(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &remoteErr):
		utils.WriteJSONError(w, remoteErr.Error(), http.StatusBadGateway)
	default:
		logger.FromCtx(r.Context()).Error("unhandled error", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
