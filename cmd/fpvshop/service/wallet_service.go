package service

import (
	"context"
	"errors"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"go.uber.org/zap"
)

type WalletRepo interface {
	SpinTotalsByStatus(ctx context.Context, userID int64) (map[string]int64, error)
	UpdateSpinStatus(ctx context.Context, spinID int64, from, to string) (*models.SpinRecord, error)
}

var (
	ErrInvalidSpinStatus     = errors.New("unknown spin status")
	ErrInvalidSpinTransition = errors.New("spin is not found or its status does not allow this change")
)

// reviewFrom: в какой статус (ключ) из какого (значение) можно перевести награду.
var reviewFrom = map[string]string{
	models.SpinStatusApproved: models.SpinStatusPending,
	models.SpinStatusRejected: models.SpinStatusPending,
	models.SpinStatusPaid:     models.SpinStatusApproved,
}

type WalletService struct {
	Spins  WalletRepo
	Admin  *AdminPolicy
	Logger *zap.Logger
}

func NewWalletService(spins WalletRepo, admin *AdminPolicy, logger *zap.Logger) *WalletService {
	return &WalletService{Spins: spins, Admin: admin, Logger: logger}
}

// Wallet сводит награды пользователя по статусам. Историю отдаёт SpinService.History.
func (s *WalletService) Wallet(ctx context.Context, userID int64) (models.Wallet, error) {
	if userID <= 0 {
		return models.Wallet{}, ErrUnauthenticated
	}
	totals, err := s.Spins.SpinTotalsByStatus(ctx, userID)
	if err != nil {
		return models.Wallet{}, err
	}
	return models.Wallet{
		Pending:   totals[models.SpinStatusPending],
		Available: totals[models.SpinStatusApproved],
		Withdrawn: totals[models.SpinStatusPaid],
		Rejected:  totals[models.SpinStatusRejected],
	}, nil
}

// ReviewSpin меняет статус награды. Только для администратора.
// Деньги не двигаются: paid лишь отмечает выплату, сделанную вне сервиса.
func (s *WalletService) ReviewSpin(ctx context.Context, adminID, spinID int64, status string) (*models.SpinRecord, error) {
	if err := s.Admin.Check(ctx, adminID); err != nil {
		return nil, err
	}
	from, ok := reviewFrom[status]
	if !ok {
		return nil, ErrInvalidSpinStatus
	}
	rec, err := s.Spins.UpdateSpinStatus(ctx, spinID, from, status)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidSpinTransition
		}
		return nil, err
	}
	s.Logger.Info("spin reviewed",
		zap.Int64("spin_id", spinID),
		zap.Int64("user_id", rec.UserID),
		zap.String("from", from),
		zap.String("to", status))
	return rec, nil
}
