package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/shopspring/decimal"
	"github.com/theplant/luhn"
	"go.uber.org/zap"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	GetPendingOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

type PaymentClient interface {
	OrderStatus(ctx context.Context, number string) (PaymentStatus, error)
}

type OrderService struct {
	OrderRepo     OrderRepo
	PaymentClient PaymentClient
}

func NewOrderService(orderRepo OrderRepo, paymentClient PaymentClient) *OrderService {
	return &OrderService{OrderRepo: orderRepo, PaymentClient: paymentClient}
}

var (
	ErrOrderAlreadyUploadedByUser    = errors.New("order already uploaded by this user")
	ErrOrderAlreadyUploadedByAnother = errors.New("order already uploaded by another user")
	ErrInvalidOrderFormat            = errors.New("invalid order format")
	ErrInvalidOrderNumber            = errors.New("invalid order number")
	ErrInvalidOrderAmount            = errors.New("order amount must be positive")
)

// maxOrderDigits: более длинный номер не помещается в int.
const maxOrderDigits = 18

func validateOrderNumber(number string) error {
	if number == "" || len(number) > maxOrderDigits {
		return ErrInvalidOrderFormat
	}
	for _, c := range number {
		if c < '0' || c > '9' {
			return ErrInvalidOrderFormat
		}
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return ErrInvalidOrderFormat
	}
	if !luhn.Valid(n) {
		return ErrInvalidOrderNumber
	}
	return nil
}

func (s *OrderService) CreateOrder(ctx context.Context, userID int64, orderNumber string, amount decimal.Decimal) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if err := validateOrderNumber(orderNumber); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidOrderAmount
	}

	existing, err := s.OrderRepo.GetOrderByNumber(ctx, orderNumber)
	if err == nil {
		return nil, duplicateOrderErr(existing, userID)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	order := &models.Order{OrderNumber: orderNumber, UserID: userID, Amount: amount.Round(2)}
	if err := s.OrderRepo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// номер заняли параллельным запросом
			existing, getErr := s.OrderRepo.GetOrderByNumber(ctx, orderNumber)
			if getErr != nil {
				return nil, getErr
			}
			return nil, duplicateOrderErr(existing, userID)
		}
		return nil, err
	}
	return order, nil
}

func duplicateOrderErr(existing *models.Order, userID int64) error {
	if existing.UserID == userID {
		return ErrOrderAlreadyUploadedByUser
	}
	return ErrOrderAlreadyUploadedByAnother
}

func (s *OrderService) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.OrderRepo.GetOrdersByUserID(ctx, userID)
}

// StartConfirmationWorker периодически спрашивает систему оплаты о статусе
// заказов в pending и переводит их в confirmed или cancelled.
func (s *OrderService) StartConfirmationWorker(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("order confirmation worker stopped")
				return
			case <-timer.C:
				next := interval
				if pause := s.ConfirmPendingOrders(ctx, logger); pause > next {
					next = pause
				}
				timer.Reset(next)
			}
		}
	}()
}

// ConfirmPendingOrders проходит по заказам в pending. Если система оплаты
// просит подождать, проход прерывается и возвращается пауза.
func (s *OrderService) ConfirmPendingOrders(ctx context.Context, logger *zap.Logger) time.Duration {
	orders, err := s.OrderRepo.GetPendingOrders(ctx)
	if err != nil {
		logger.Error("error fetching pending orders", zap.Error(err))
		return 0
	}
	for _, order := range orders {
		if ctx.Err() != nil {
			return 0
		}
		err := s.confirmOrder(ctx, order)
		var rateLimit *RateLimitError
		switch {
		case errors.As(err, &rateLimit):
			logger.Warn("payment system rate limit", zap.Duration("retry_after", rateLimit.RetryAfter))
			return rateLimit.RetryAfter
		case err != nil:
			logger.Error("error confirming order", zap.String("order", order.OrderNumber), zap.Error(err))
		}
	}
	return 0
}

func (s *OrderService) confirmOrder(ctx context.Context, order models.Order) error {
	orderCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := s.PaymentClient.OrderStatus(orderCtx, order.OrderNumber)
	if err != nil {
		return err
	}

	var next string
	switch status {
	case PaymentConfirmed:
		next = models.OrderStatusConfirmed
	case PaymentCancelled, PaymentUnknown:
		next = models.OrderStatusCancelled
	default:
		return nil
	}
	err = s.OrderRepo.UpdateOrderStatus(ctx, order.ID, next)
	if errors.Is(err, db.ErrNotFound) {
		// заказ уже вышел из pending
		return nil
	}
	return err
}
