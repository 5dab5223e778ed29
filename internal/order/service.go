package order

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"storefront-be/internal/clients"
	"storefront-be/internal/logger"
	"storefront-be/internal/notification"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// CreateOrderInput is the checkout request. Money fields are absent on
// purpose: totals are always recomputed server-side.
type CreateOrderInput struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	GuestEmail      string          `json:"guestEmail,omitempty"`
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, string, error)
	ProcessPayment(ctx context.Context, event *payment.Event) (*Order, error)
	CancelOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, target OrderStatus) (*Order, error)

	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListUserOrders(ctx context.Context) ([]*Order, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	StatusCounts(ctx context.Context) (map[OrderStatus]int64, error)
}

type service struct {
	repo      Repository
	inventory clients.Inventory
	cart      clients.Cart
	identity  clients.Identity
	gateway   payment.Gateway
	mailer    notification.Mailer

	successURL   string
	cancelURL    string
	serviceToken string
}

func NewService(
	repo Repository,
	inventory clients.Inventory,
	cart clients.Cart,
	identity clients.Identity,
	gateway payment.Gateway,
	mailer notification.Mailer,
	successURL, cancelURL, serviceToken string,
) Service {
	return &service{
		repo:         repo,
		inventory:    inventory,
		cart:         cart,
		identity:     identity,
		gateway:      gateway,
		mailer:       mailer,
		successURL:   successURL,
		cancelURL:    cancelURL,
		serviceToken: serviceToken,
	}
}

// callToken picks the caller's bearer token when one is on the context,
// falling back to the service token on tokenless paths (webhooks).
func (s *service) callToken(ctx context.Context) string {
	if token := utils.GetAuthTokenFromContext(ctx); token != "" {
		return token
	}
	return s.serviceToken
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, string, error) {
	log := logger.FromCtx(ctx)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, "", ErrUnauthorized
	}
	if err := validateCreateInput(input); err != nil {
		return nil, "", err
	}

	// Hard dependency: no reservation, no order. Nothing has been written
	// yet so there is nothing to compensate.
	token := s.callToken(ctx)
	if err := s.inventory.ReserveStock(ctx, toReservationItems(input.OrderItems), token); err != nil {
		return nil, "", err
	}

	totals := ComputeTotals(input.OrderItems)
	o := &Order{
		OrderID:         utils.GenerateOrderID(),
		UserID:          userID,
		OrderItems:      input.OrderItems,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		ItemsPrice:      totals.ItemsPrice,
		TaxPrice:        totals.TaxPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
		Status:          StatusNew,
	}

	customerEmail := input.GuestEmail
	if customerEmail == "" {
		customerEmail = utils.GetUserEmailFromContext(ctx)
	}

	// The session is created inside the insert's transaction: if the
	// gateway refuses, the order row is rolled back with it.
	checkoutURL, err := s.repo.CreateOrderTx(ctx, o, func(persisted *Order) (string, error) {
		session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
			LineItems:      toLineItems(persisted.OrderItems),
			ShippingAmount: toMinorUnits(persisted.ShippingPrice),
			SuccessURL:     s.successURL,
			CancelURL:      s.cancelURL,
			CustomerEmail:  customerEmail,
			Metadata: map[string]string{
				payment.MetadataOrderKey: strconv.FormatInt(persisted.ID, 10),
				payment.MetadataOrderID:  persisted.OrderID,
			},
		})
		if err != nil {
			return "", err
		}
		return session.URL, nil
	})
	if err != nil {
		return nil, "", err
	}

	// Cosmetic cleanup, never fails the checkout.
	if err := s.cart.ClearCart(ctx, token); err != nil {
		log.Warn("cart clear failed after order create",
			zap.String("order_id", o.OrderID),
			zap.Error(err),
		)
	}

	log.Info("order created",
		zap.String("order_id", o.OrderID),
		zap.String("user_id", userID),
		zap.Float64("total", o.TotalPrice),
	)
	return o, checkoutURL, nil
}

func (s *service) ProcessPayment(ctx context.Context, event *payment.Event) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("event_id", event.ID),
		zap.String("order_id", event.OrderID()),
	)

	id, err := strconv.ParseInt(event.OrderKey(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad order key in event metadata", ErrOrderNotFound)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	// Gateways redeliver. An already-paid order means a previous delivery
	// completed; return it untouched and skip every side effect.
	if o.IsPaid {
		log.Info("duplicate payment event, order already paid")
		return o, nil
	}

	// The checkout session outlives a cancellation, so a payment can land
	// on an order that already reached a terminal state. The terminal
	// state is the recorded ground truth: never resurrect the order or
	// commit its reservation. The unmatched charge is an operational
	// follow-up, not a state transition.
	if o.Status.IsTerminal() {
		log.Warn("payment event for terminated order ignored",
			zap.String("order_status", string(o.Status)),
		)
		return o, nil
	}

	paidAt := event.Data.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	result := &PaymentResult{
		TransactionID: event.Data.TransactionID,
		Status:        event.Data.Status,
		UpdateTime:    paidAt,
		EmailAddress:  event.Data.PayerEmail,
	}

	updated, err := s.repo.MarkPaid(ctx, o.ID, result, event.Data.ReceiptURL, paidAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		// A racing delivery won the conditional update. Reload and treat
		// this call as the duplicate it is.
		log.Info("lost paid-update race, reloading order")
		return s.repo.GetByID(ctx, o.ID)
	}

	o.IsPaid = true
	o.PaidAt = &paidAt
	o.Status = StatusProcessing
	o.PaymentResult = result
	o.ReceiptURL = event.Data.ReceiptURL

	// Everything below is best-effort: the order is already correctly
	// marked paid, secondary effects may be retried out-of-band.
	token := s.callToken(ctx)
	if err := s.inventory.ConfirmReservation(ctx, o.OrderID, toReservationItems(o.OrderItems), token); err != nil {
		log.Warn("reservation confirm failed", zap.Error(err))
	}

	to, name := s.recipient(ctx, o.UserID, event.Data.PayerEmail, token)
	if to != "" {
		if err := s.mailer.SendOrderConfirmation(ctx, to, name, o.OrderID, o.TotalPrice); err != nil {
			log.Warn("confirmation email failed", zap.Error(err))
		}
	}

	log.Info("order marked paid", zap.String("transaction_id", result.TransactionID))
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	log := logger.FromCtx(ctx).With(zap.String("order_id", orderID))

	o, err := s.getOwned(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Already cancelled: repeatable without error.
	if o.Status == StatusCancelled {
		return o, nil
	}
	if !o.Status.CanCancel() {
		return nil, ErrCannotCancel
	}

	if err := s.repo.UpdateStatus(ctx, o.OrderID, StatusCancelled, nil); err != nil {
		return nil, err
	}
	o.Status = StatusCancelled

	// Compensation: give the stock back. The cancellation is already the
	// recorded ground truth, so a failed release is logged, not surfaced.
	if o.IsPaid {
		token := s.callToken(ctx)
		if err := s.inventory.CancelReservation(ctx, o.OrderID, toReservationItems(o.OrderItems), token); err != nil {
			log.Warn("stock release failed after cancel", zap.Error(err))
		}
	}

	log.Info("order cancelled")
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, target OrderStatus) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", orderID),
		zap.String("target_status", string(target)),
	)

	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	// Cancellation has its own rules and compensation; route it there.
	if target == StatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	o, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	var deliveredAt *time.Time
	if target == StatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, o.OrderID, target, deliveredAt); err != nil {
		return nil, err
	}
	o.Status = target
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}

	token := s.callToken(ctx)
	payerEmail := ""
	if o.PaymentResult != nil {
		payerEmail = o.PaymentResult.EmailAddress
	}
	to, name := s.recipient(ctx, o.UserID, payerEmail, token)
	if to != "" {
		if err := s.mailer.SendStatusUpdate(ctx, to, name, o.OrderID, string(target)); err != nil {
			log.Warn("status email failed", zap.Error(err))
		}
	}

	log.Info("order status updated")
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.getOwned(ctx, orderID)
}

func (s *service) ListUserOrders(ctx context.Context) ([]*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *service) StatusCounts(ctx context.Context) (map[OrderStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

// getOwned loads an order and enforces that non-admin callers only see
// their own. Webhook-path calls carry no user and bypass the check.
func (s *service) getOwned(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	userID, hasUser := utils.GetUserIDFromContext(ctx)
	if hasUser && userID != o.UserID && utils.GetUserRoleFromContext(ctx) != "admin" {
		return nil, ErrUnauthorized
	}
	return o, nil
}

// recipient resolves where a notification goes: the account's registered
// address first, the payer email from the gateway as fallback.
func (s *service) recipient(ctx context.Context, userID, payerEmail, token string) (to, name string) {
	details, err := s.identity.GetUserDetails(ctx, userID, token)
	if err != nil {
		logger.FromCtx(ctx).Warn("user lookup failed for notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return payerEmail, "there"
	}
	return details.Email, details.Name
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.OrderItems) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for i, item := range input.OrderItems {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d is missing a product id", ErrInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has a non-positive quantity", ErrInvalidInput, i)
		}
		if item.Price <= 0 {
			return fmt.Errorf("%w: item %d has a non-positive price", ErrInvalidInput, i)
		}
	}
	addr := input.ShippingAddress
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		return fmt.Errorf("%w: shipping address is incomplete", ErrInvalidInput)
	}
	if input.PaymentMethod == "" {
		return fmt.Errorf("%w: payment method is required", ErrInvalidInput)
	}
	return nil
}

func toReservationItems(items []OrderItem) []clients.ReservationItem {
	out := make([]clients.ReservationItem, len(items))
	for i, item := range items {
		out[i] = clients.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}

func toLineItems(items []OrderItem) []payment.LineItem {
	out := make([]payment.LineItem, len(items))
	for i, item := range items {
		out[i] = payment.LineItem{
			Name:       item.Name,
			UnitAmount: toMinorUnits(item.Price),
			Quantity:   item.Quantity,
			Image:      item.Image,
		}
	}
	return out
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
