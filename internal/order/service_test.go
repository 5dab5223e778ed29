package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-be/internal/clients"
	"storefront-be/internal/notification"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateOrderTx(ctx context.Context, o *Order, createSession func(*Order) (string, error)) (string, error) {
	args := m.Called(ctx, o)
	if err := args.Error(1); err != nil {
		return "", err
	}
	o.ID = args.Get(0).(int64)
	return createSession(o)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	args := m.Called(ctx, id)
	if o := args.Get(0); o != nil {
		return o.(*Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if o := args.Get(0); o != nil {
		return o.(*Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) MarkPaid(ctx context.Context, id int64, result *PaymentResult, receiptURL string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, id, result, receiptURL, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, orderID string, status OrderStatus, deliveredAt *time.Time) error {
	args := m.Called(ctx, orderID, status, deliveredAt)
	return args.Error(0)
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	args := m.Called(ctx, userID)
	if o := args.Get(0); o != nil {
		return o.([]*Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	args := m.Called(ctx, status)
	if o := args.Get(0); o != nil {
		return o.([]*Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) CountByStatus(ctx context.Context) (map[OrderStatus]int64, error) {
	args := m.Called(ctx)
	if o := args.Get(0); o != nil {
		return o.(map[OrderStatus]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) ReserveStock(ctx context.Context, items []clients.ReservationItem, token string) error {
	return m.Called(ctx, items, token).Error(0)
}

func (m *mockInventory) ConfirmReservation(ctx context.Context, orderID string, items []clients.ReservationItem, token string) error {
	return m.Called(ctx, orderID, items, token).Error(0)
}

func (m *mockInventory) CancelReservation(ctx context.Context, orderID string, items []clients.ReservationItem, token string) error {
	return m.Called(ctx, orderID, items, token).Error(0)
}

type mockCart struct {
	mock.Mock
}

func (m *mockCart) ClearCart(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) GetUserDetails(ctx context.Context, userID, token string) (*clients.UserDetails, error) {
	args := m.Called(ctx, userID, token)
	if d := args.Get(0); d != nil {
		return d.(*clients.UserDetails), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if s := args.Get(0); s != nil {
		return s.(*payment.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) VerifyWebhook(rawBody []byte, signature string) (*payment.Event, error) {
	args := m.Called(rawBody, signature)
	if e := args.Get(0); e != nil {
		return e.(*payment.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, to, name, orderID string, total float64) error {
	return m.Called(ctx, to, name, orderID, total).Error(0)
}

func (m *mockMailer) SendStatusUpdate(ctx context.Context, to, name, orderID, status string) error {
	return m.Called(ctx, to, name, orderID, status).Error(0)
}

var _ Repository = (*mockRepo)(nil)
var _ clients.Inventory = (*mockInventory)(nil)
var _ clients.Cart = (*mockCart)(nil)
var _ clients.Identity = (*mockIdentity)(nil)
var _ payment.Gateway = (*mockGateway)(nil)
var _ notification.Mailer = (*mockMailer)(nil)

// --- fixtures ---

type deps struct {
	repo      *mockRepo
	inventory *mockInventory
	cart      *mockCart
	identity  *mockIdentity
	gateway   *mockGateway
	mailer    *mockMailer
}

func newService(t *testing.T) (Service, *deps) {
	t.Helper()
	d := &deps{
		repo:      &mockRepo{},
		inventory: &mockInventory{},
		cart:      &mockCart{},
		identity:  &mockIdentity{},
		gateway:   &mockGateway{},
		mailer:    &mockMailer{},
	}
	svc := NewService(d.repo, d.inventory, d.cart, d.identity, d.gateway, d.mailer,
		"https://shop.test/success", "https://shop.test/cancel", "svc-token")
	return svc, d
}

func userCtx(userID, role string) context.Context {
	ctx := utils.SetUserContext(context.Background(), userID, userID+"@example.com", role)
	return utils.SetAuthToken(ctx, "user-token")
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		OrderItems: []OrderItem{
			{ProductID: "p1", Name: "Mug", Price: 20.00, Quantity: 2},
			{ProductID: "p2", Name: "Plate", Price: 15.00, Quantity: 1},
		},
		ShippingAddress: ShippingAddress{
			Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "card",
	}
}

// --- CreateOrder ---

func TestService_CreateOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, d := newService(t)
		ctx := userCtx("u1", "user")

		d.inventory.On("ReserveStock", mock.Anything, []clients.ReservationItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		}, "user-token").Return(nil)
		d.repo.On("CreateOrderTx", mock.Anything, mock.AnythingOfType("*order.Order")).Return(int64(42), nil)
		d.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p payment.SessionParams) bool {
			return p.Metadata[payment.MetadataOrderKey] == "42" &&
				p.Metadata[payment.MetadataOrderID] != "" &&
				p.ShippingAmount == 1000 &&
				len(p.LineItems) == 2 &&
				p.LineItems[0].UnitAmount == 2000
		})).Return(&payment.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil)
		d.cart.On("ClearCart", mock.Anything, "user-token").Return(nil)

		o, url, err := svc.CreateOrder(ctx, validInput())

		require.NoError(t, err)
		assert.Equal(t, "https://pay.test/cs_1", url)
		assert.Equal(t, StatusNew, o.Status)
		assert.False(t, o.IsPaid)
		assert.Equal(t, 55.00, o.ItemsPrice)
		assert.Equal(t, 8.25, o.TaxPrice)
		assert.Equal(t, 10.00, o.ShippingPrice)
		assert.Equal(t, 73.25, o.TotalPrice)
		assert.NotEmpty(t, o.OrderID)
		d.repo.AssertExpectations(t)
		d.gateway.AssertExpectations(t)
	})

	t.Run("ReservationFailureLeavesNoOrder", func(t *testing.T) {
		svc, d := newService(t)
		ctx := userCtx("u1", "user")

		d.inventory.On("ReserveStock", mock.Anything, mock.Anything, mock.Anything).
			Return(&clients.RemoteError{Service: "inventory", StatusCode: 409, Message: "out of stock"})

		_, _, err := svc.CreateOrder(ctx, validInput())

		require.Error(t, err)
		var remoteErr *clients.RemoteError
		assert.ErrorAs(t, err, &remoteErr)
		d.repo.AssertNotCalled(t, "CreateOrderTx", mock.Anything, mock.Anything)
	})

	t.Run("SessionFailureRollsBack", func(t *testing.T) {
		svc, d := newService(t)
		ctx := userCtx("u1", "user")

		d.inventory.On("ReserveStock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d.repo.On("CreateOrderTx", mock.Anything, mock.Anything).Return(int64(42), nil)
		d.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, errors.New("gateway unavailable"))

		_, _, err := svc.CreateOrder(ctx, validInput())

		assert.Error(t, err)
		d.cart.AssertNotCalled(t, "ClearCart", mock.Anything, mock.Anything)
	})

	t.Run("CartClearFailureIsSwallowed", func(t *testing.T) {
		svc, d := newService(t)
		ctx := userCtx("u1", "user")

		d.inventory.On("ReserveStock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		d.repo.On("CreateOrderTx", mock.Anything, mock.Anything).Return(int64(42), nil)
		d.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&payment.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil)
		d.cart.On("ClearCart", mock.Anything, mock.Anything).Return(errors.New("cart service down"))

		_, url, err := svc.CreateOrder(ctx, validInput())

		require.NoError(t, err)
		assert.Equal(t, "https://pay.test/cs_1", url)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		svc, _ := newService(t)

		_, _, err := svc.CreateOrder(context.Background(), validInput())

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Validation", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*CreateOrderInput)
		}{
			{"EmptyItems", func(in *CreateOrderInput) { in.OrderItems = nil }},
			{"ZeroQuantity", func(in *CreateOrderInput) { in.OrderItems[0].Quantity = 0 }},
			{"NegativePrice", func(in *CreateOrderInput) { in.OrderItems[0].Price = -1 }},
			{"MissingProductID", func(in *CreateOrderInput) { in.OrderItems[0].ProductID = "" }},
			{"MissingCity", func(in *CreateOrderInput) { in.ShippingAddress.City = "" }},
			{"MissingPaymentMethod", func(in *CreateOrderInput) { in.PaymentMethod = "" }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				svc, d := newService(t)
				input := validInput()
				tc.mutate(&input)

				_, _, err := svc.CreateOrder(userCtx("u1", "user"), input)

				assert.ErrorIs(t, err, ErrInvalidInput)
				d.inventory.AssertNotCalled(t, "ReserveStock", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})
}

// --- ProcessPayment ---

func paidEvent() *payment.Event {
	return &payment.Event{
		ID:   "evt_1",
		Type: payment.EventPaymentSucceeded,
		Data: payment.EventData{
			TransactionID: "txn_1",
			Status:        "succeeded",
			PaidAt:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			PayerEmail:    "payer@example.com",
			ReceiptURL:    "https://pay.test/receipts/txn_1",
			Metadata: map[string]string{
				payment.MetadataOrderKey: "42",
				payment.MetadataOrderID:  "ORD-1",
			},
		},
	}
}

func unpaidOrder() *Order {
	return &Order{
		ID:      42,
		OrderID: "ORD-1",
		UserID:  "u1",
		OrderItems: []OrderItem{
			{ProductID: "p1", Price: 20.00, Quantity: 2},
		},
		TotalPrice: 73.25,
		Status:     StatusNew,
	}
}

func TestService_ProcessPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, d := newService(t)
		event := paidEvent()

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(unpaidOrder(), nil)
		d.repo.On("MarkPaid", mock.Anything, int64(42), mock.MatchedBy(func(r *PaymentResult) bool {
			return r.TransactionID == "txn_1" && r.EmailAddress == "payer@example.com"
		}), "https://pay.test/receipts/txn_1", event.Data.PaidAt).Return(true, nil)
		d.inventory.On("ConfirmReservation", mock.Anything, "ORD-1", mock.Anything, "svc-token").Return(nil)
		d.identity.On("GetUserDetails", mock.Anything, "u1", "svc-token").
			Return(&clients.UserDetails{ID: "u1", Name: "Jo", Email: "jo@example.com"}, nil)
		d.mailer.On("SendOrderConfirmation", mock.Anything, "jo@example.com", "Jo", "ORD-1", 73.25).Return(nil)

		o, err := svc.ProcessPayment(context.Background(), event)

		require.NoError(t, err)
		assert.True(t, o.IsPaid)
		assert.Equal(t, StatusProcessing, o.Status)
		require.NotNil(t, o.PaymentResult)
		assert.Equal(t, "txn_1", o.PaymentResult.TransactionID)
		d.inventory.AssertExpectations(t)
		d.mailer.AssertExpectations(t)
	})

	t.Run("DuplicateEventIsNoOp", func(t *testing.T) {
		svc, d := newService(t)
		paid := unpaidOrder()
		paid.IsPaid = true
		paid.Status = StatusProcessing

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(paid, nil)

		o, err := svc.ProcessPayment(context.Background(), paidEvent())

		require.NoError(t, err)
		assert.True(t, o.IsPaid)
		d.repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.inventory.AssertNotCalled(t, "ConfirmReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LostRaceReloads", func(t *testing.T) {
		svc, d := newService(t)
		winner := unpaidOrder()
		winner.IsPaid = true
		winner.Status = StatusProcessing

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(unpaidOrder(), nil).Once()
		d.repo.On("MarkPaid", mock.Anything, int64(42), mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		d.repo.On("GetByID", mock.Anything, int64(42)).Return(winner, nil).Once()

		o, err := svc.ProcessPayment(context.Background(), paidEvent())

		require.NoError(t, err)
		assert.True(t, o.IsPaid)
		d.inventory.AssertNotCalled(t, "ConfirmReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CancelledOrderStaysCancelled", func(t *testing.T) {
		svc, d := newService(t)
		cancelled := unpaidOrder()
		cancelled.Status = StatusCancelled

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(cancelled, nil)

		o, err := svc.ProcessPayment(context.Background(), paidEvent())

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.False(t, o.IsPaid)
		d.repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.inventory.AssertNotCalled(t, "ConfirmReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RejectedOrderStaysRejected", func(t *testing.T) {
		svc, d := newService(t)
		rejected := unpaidOrder()
		rejected.Status = StatusRejected

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(rejected, nil)

		o, err := svc.ProcessPayment(context.Background(), paidEvent())

		require.NoError(t, err)
		assert.Equal(t, StatusRejected, o.Status)
		assert.False(t, o.IsPaid)
		d.repo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OrderNotFound", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

		_, err := svc.ProcessPayment(context.Background(), paidEvent())

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("BadOrderKey", func(t *testing.T) {
		svc, _ := newService(t)
		event := paidEvent()
		event.Data.Metadata[payment.MetadataOrderKey] = "not-a-number"

		_, err := svc.ProcessPayment(context.Background(), event)

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ConfirmFailureIsSwallowed", func(t *testing.T) {
		svc, d := newService(t)
		event := paidEvent()

		d.repo.On("GetByID", mock.Anything, int64(42)).Return(unpaidOrder(), nil)
		d.repo.On("MarkPaid", mock.Anything, int64(42), mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		d.inventory.On("ConfirmReservation", mock.Anything, "ORD-1", mock.Anything, mock.Anything).
			Return(errors.New("inventory down"))
		d.identity.On("GetUserDetails", mock.Anything, "u1", mock.Anything).
			Return(nil, errors.New("identity down"))
		// identity failed, so the payer email from the event is the fallback
		d.mailer.On("SendOrderConfirmation", mock.Anything, "payer@example.com", "there", "ORD-1", 73.25).Return(nil)

		o, err := svc.ProcessPayment(context.Background(), event)

		require.NoError(t, err)
		assert.True(t, o.IsPaid)
		d.mailer.AssertExpectations(t)
	})
}

// --- CancelOrder ---

func TestService_CancelOrder(t *testing.T) {
	t.Run("CancelsUnpaidOrder", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusCancelled, (*time.Time)(nil)).Return(nil)

		got, err := svc.CancelOrder(userCtx("u1", "user"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		d.inventory.AssertNotCalled(t, "CancelReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PaidOrderReleasesStock", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()
		o.IsPaid = true
		o.Status = StatusProcessing

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusCancelled, (*time.Time)(nil)).Return(nil)
		d.inventory.On("CancelReservation", mock.Anything, "ORD-1", mock.Anything, "user-token").Return(nil)

		got, err := svc.CancelOrder(userCtx("u1", "user"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		d.inventory.AssertExpectations(t)
	})

	t.Run("StockReleaseFailureIsSwallowed", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()
		o.IsPaid = true

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusCancelled, (*time.Time)(nil)).Return(nil)
		d.inventory.On("CancelReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("inventory down"))

		got, err := svc.CancelOrder(userCtx("u1", "user"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("RejectsShippedAndDelivered", func(t *testing.T) {
		for _, status := range []OrderStatus{StatusShipped, StatusDelivered} {
			t.Run(string(status), func(t *testing.T) {
				svc, d := newService(t)
				o := unpaidOrder()
				o.Status = status

				d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)

				_, err := svc.CancelOrder(userCtx("u1", "user"), "ORD-1")

				assert.ErrorIs(t, err, ErrCannotCancel)
				d.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("AlreadyCancelledIsIdempotent", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()
		o.Status = StatusCancelled

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)

		got, err := svc.CancelOrder(userCtx("u1", "user"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		d.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OtherUserForbidden", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(unpaidOrder(), nil)

		_, err := svc.CancelOrder(userCtx("u2", "user"), "ORD-1")

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("AdminMayCancelAnyOrder", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(unpaidOrder(), nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusCancelled, (*time.Time)(nil)).Return(nil)

		got, err := svc.CancelOrder(userCtx("admin-1", "admin"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})
}

// --- UpdateStatus ---

func TestService_UpdateStatus(t *testing.T) {
	t.Run("DeliveredSetsTimestamp", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()
		o.Status = StatusShipped

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusDelivered, mock.MatchedBy(func(at *time.Time) bool {
			return at != nil && !at.IsZero()
		})).Return(nil)
		d.identity.On("GetUserDetails", mock.Anything, "u1", mock.Anything).
			Return(&clients.UserDetails{ID: "u1", Name: "Jo", Email: "jo@example.com"}, nil)
		d.mailer.On("SendStatusUpdate", mock.Anything, "jo@example.com", "Jo", "ORD-1", "delivered").Return(nil)

		got, err := svc.UpdateStatus(context.Background(), "ORD-1", StatusDelivered)

		require.NoError(t, err)
		assert.Equal(t, StatusDelivered, got.Status)
		require.NotNil(t, got.DeliveredAt)
	})

	t.Run("NonDeliveredLeavesTimestampAlone", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusShipped, (*time.Time)(nil)).Return(nil)
		d.identity.On("GetUserDetails", mock.Anything, "u1", mock.Anything).
			Return(&clients.UserDetails{ID: "u1", Name: "Jo", Email: "jo@example.com"}, nil)
		d.mailer.On("SendStatusUpdate", mock.Anything, "jo@example.com", "Jo", "ORD-1", "shipped").Return(nil)

		got, err := svc.UpdateStatus(context.Background(), "ORD-1", StatusShipped)

		require.NoError(t, err)
		assert.Nil(t, got.DeliveredAt)
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		svc, d := newService(t)

		_, err := svc.UpdateStatus(context.Background(), "ORD-1", OrderStatus("refunded"))

		assert.ErrorIs(t, err, ErrInvalidStatus)
		d.repo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
	})

	t.Run("CancelledTargetUsesCancelRules", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()
		o.Status = StatusShipped

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)

		_, err := svc.UpdateStatus(context.Background(), "ORD-1", StatusCancelled)

		assert.ErrorIs(t, err, ErrCannotCancel)
	})

	t.Run("EmailFailureDoesNotFailUpdate", func(t *testing.T) {
		svc, d := newService(t)
		o := unpaidOrder()

		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(o, nil)
		d.repo.On("UpdateStatus", mock.Anything, "ORD-1", StatusApproved, (*time.Time)(nil)).Return(nil)
		d.identity.On("GetUserDetails", mock.Anything, "u1", mock.Anything).
			Return(&clients.UserDetails{ID: "u1", Name: "Jo", Email: "jo@example.com"}, nil)
		d.mailer.On("SendStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("mail down"))

		got, err := svc.UpdateStatus(context.Background(), "ORD-1", StatusApproved)

		require.NoError(t, err)
		assert.Equal(t, StatusApproved, got.Status)
	})
}

// --- reads ---

func TestService_Reads(t *testing.T) {
	t.Run("GetOrderOwnedByCaller", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("GetByOrderID", mock.Anything, "ORD-1").Return(unpaidOrder(), nil)

		got, err := svc.GetOrder(userCtx("u1", "user"), "ORD-1")

		require.NoError(t, err)
		assert.Equal(t, "ORD-1", got.OrderID)
	})

	t.Run("GetOrderNotFound", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("GetByOrderID", mock.Anything, "nope").Return(nil, nil)

		_, err := svc.GetOrder(userCtx("u1", "user"), "nope")

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ListUserOrders", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("ListByUser", mock.Anything, "u1").Return([]*Order{unpaidOrder()}, nil)

		orders, err := svc.ListUserOrders(userCtx("u1", "user"))

		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("ListByStatusValidates", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.ListByStatus(context.Background(), OrderStatus("bogus"))

		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("StatusCounts", func(t *testing.T) {
		svc, d := newService(t)
		d.repo.On("CountByStatus", mock.Anything).Return(map[OrderStatus]int64{
			StatusNew:        3,
			StatusProcessing: 1,
		}, nil)

		counts, err := svc.StatusCounts(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(3), counts[StatusNew])
	})
}
