package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx persists the order and invokes createSession inside
	// the same transaction. If the session cannot be created the insert is
	// rolled back: an order row must never exist without a payment path.
	CreateOrderTx(ctx context.Context, o *Order, createSession func(*Order) (string, error)) (string, error)

	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)

	// MarkPaid flips the order to paid/processing only if it is not paid
	// yet and has not reached a terminal state. Returns false when the
	// guard matched no row (racing writer, or a terminated order).
	MarkPaid(ctx context.Context, id int64, result *PaymentResult, receiptURL string, paidAt time.Time) (bool, error)

	UpdateStatus(ctx context.Context, orderID string, status OrderStatus, deliveredAt *time.Time) error

	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	CountByStatus(ctx context.Context) (map[OrderStatus]int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, order_id, user_id, order_items, shipping_address, payment_method,
	payment_result, items_price, tax_price, shipping_price, total_price,
	is_paid, paid_at, status, delivered_at, notes, receipt_url,
	created_at, updated_at`

func (r *repository) CreateOrderTx(ctx context.Context, o *Order, createSession func(*Order) (string, error)) (string, error) {
	itemsJSON, err := json.Marshal(o.OrderItems)
	if err != nil {
		return "", err
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_id, user_id, order_items, shipping_address, payment_method,
			items_price, tax_price, shipping_price, total_price,
			is_paid, status, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE,$10,$11,now(),now())
		RETURNING id, created_at, updated_at
	`,
		o.OrderID, o.UserID, itemsJSON, addressJSON, o.PaymentMethod,
		o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice,
		o.Status, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return "", err
	}

	checkoutURL, err := createSession(o)
	if err != nil {
		logger.FromCtx(ctx).Warn("rolling back order create, checkout session failed",
			zap.String("order_id", o.OrderID),
			zap.Error(err),
		)
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return checkoutURL, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	return scanOrder(row)
}

func (r *repository) MarkPaid(ctx context.Context, id int64, result *PaymentResult, receiptURL string, paidAt time.Time) (bool, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET is_paid = TRUE,
			paid_at = $2,
			status = $3,
			payment_result = $4,
			receipt_url = $5,
			updated_at = now()
		WHERE id = $1 AND is_paid = FALSE
		  AND status NOT IN ('cancelled', 'rejected', 'delivered')
	`, id, paidAt, StatusProcessing, resultJSON, receiptURL)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID string, status OrderStatus, deliveredAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
			delivered_at = COALESCE($3, delivered_at),
			updated_at = now()
		WHERE order_id = $1
	`, orderID, status, deliveredAt)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *repository) ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *repository) CountByStatus(ctx context.Context) (map[OrderStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[OrderStatus]int64)
	for rows.Next() {
		var status OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON, addressJSON []byte
	var resultJSON []byte
	var paidAt, deliveredAt sql.NullTime
	var notes, receiptURL sql.NullString

	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID, &itemsJSON, &addressJSON, &o.PaymentMethod,
		&resultJSON, &o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.IsPaid, &paidAt, &o.Status, &deliveredAt, &notes, &receiptURL,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.OrderItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		var result PaymentResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, err
		}
		o.PaymentResult = &result
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		o.DeliveredAt = &deliveredAt.Time
	}
	o.Notes = notes.String
	o.ReceiptURL = receiptURL.String

	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
