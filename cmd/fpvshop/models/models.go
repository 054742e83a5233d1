package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

const (
	SpinStatusPending  = "pending"
	SpinStatusApproved = "approved"
	SpinStatusRejected = "rejected"
	SpinStatusPaid     = "paid"
)

type User struct {
	ID           int64     `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type Order struct {
	ID          int64           `db:"id"`
	OrderNumber string          `db:"order_number"`
	UserID      int64           `db:"user_id"`
	Status      string          `db:"status"`
	Amount      decimal.Decimal `db:"amount"`
	CreatedAt   time.Time       `db:"created_at"`
}

// SpinRecord - выданная награда за вращение колеса. Создаётся только сервисом.
type SpinRecord struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	Amount         int64     `db:"amount"`
	Status         string    `db:"status"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

// DayWindow - полуинтервал [Start, End).
type DayWindow struct {
	Start time.Time
	End   time.Time
}

func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// OrderStats - количество и сумма подтверждённых заказов за окно.
type OrderStats struct {
	Count int
	Total decimal.Decimal
}

// Product - позиция каталога. MRP - цена до скидки, 0 если её нет.
type Product struct {
	ID        int64           `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	MRP       decimal.Decimal `db:"mrp"`
	Category  string          `db:"category"`
	Platform  string          `db:"platform"`
	URL       string          `db:"url"`
	Image     string          `db:"image"`
	CreatedAt time.Time       `db:"created_at"`
}

// Discount возвращает скидку в целых процентах от MRP.
// ok == false, если MRP не задана или не больше цены.
func (p Product) Discount() (percent int64, ok bool) {
	if !p.MRP.IsPositive() || !p.MRP.GreaterThan(p.Price) {
		return 0, false
	}
	return p.MRP.Sub(p.Price).Div(p.MRP).Mul(decimal.NewFromInt(100)).Round(0).IntPart(), true
}

// ProductFilter: пустые поля не ограничивают выборку.
type ProductFilter struct {
	Category string
	Query    string
}

// Wallet - суммы наград пользователя по статусам.
type Wallet struct {
	Pending   int64 `json:"pending"`
	Available int64 `json:"available"`
	Withdrawn int64 `json:"withdrawn"`
	Rejected  int64 `json:"rejected"`
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type CreateOrderRequest struct {
	Number string          `json:"number"`
	Amount decimal.Decimal `json:"amount"`
}

type OrderResponse struct {
	Number     string          `json:"number"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	UploadedAt string          `json:"uploaded_at"`
}

type SpinResponse struct {
	Success  bool  `json:"success"`
	Prize    int64 `json:"prize"`
	Replayed bool  `json:"replayed,omitempty"`
}

type SpinErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SpinErrorResponse struct {
	Success bool          `json:"success"`
	Error   SpinErrorBody `json:"error"`
}

type SpinRecordResponse struct {
	ID        int64  `json:"id"`
	Prize     int64  `json:"prize"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type SpinStatusResponse struct {
	OrderCount   int             `json:"order_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	AllowedSpins int             `json:"allowed_spins"`
	UsedSpins    int             `json:"used_spins"`
	Remaining    int             `json:"remaining"`
	Eligible     bool            `json:"eligible"`
	NextPrize    int64           `json:"next_prize,omitempty"`
	WindowStart  string          `json:"window_start"`
	WindowEnd    string          `json:"window_end"`
}

type ProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	MRP      decimal.Decimal `json:"mrp"`
	Category string          `json:"category"`
	Platform string          `json:"platform"`
	URL      string          `json:"url"`
	Image    string          `json:"image"`
}

type ProductResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	MRP       decimal.Decimal `json:"mrp"`
	Discount  int64           `json:"discount,omitempty"`
	Category  string          `json:"category"`
	Platform  string          `json:"platform"`
	URL       string          `json:"url"`
	Image     string          `json:"image,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type SpinReviewRequest struct {
	Status string `json:"status"`
}
