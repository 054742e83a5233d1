package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

const orderColumns = `id, order_number, user_id, status, amount, created_at`

type OrderRepoPG struct {
	db *sql.DB
}

func NewOrderRepoPG(db *sql.DB) *OrderRepoPG {
	return &OrderRepoPG{db: db}
}

func (r *OrderRepoPG) CreateOrder(ctx context.Context, order *models.Order) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, status, amount) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		order.OrderNumber, order.UserID, models.OrderStatusPending, order.Amount,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("error creating order: %w", err)
	}
	order.Status = models.OrderStatusPending
	return nil
}

func (r *OrderRepoPG) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number=$1`, orderNumber).
		Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Amount, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepoPG) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepoPG) GetPendingOrders(ctx context.Context) ([]models.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE status=$1`, models.OrderStatusPending)
}

// UpdateOrderStatus переводит заказ из pending. Подтверждённые и отменённые заказы не меняются.
func (r *OrderRepoPG) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status=$1 WHERE id=$2 AND status=$3`, status, orderID, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("error updating order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepoPG) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching orders: %w", err)
	}
	defer rows.Close()
	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Amount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over orders: %w", err)
	}
	return orders, nil
}
