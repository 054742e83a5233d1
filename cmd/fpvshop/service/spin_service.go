package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnauthenticated       = errors.New("user must be logged in")
	ErrNotEligible           = errors.New("not eligible for spin")
	ErrSpinsExhausted        = errors.New("no spins left for today")
	ErrStoreUnavailable      = errors.New("store unavailable, try again later")
	ErrInvalidIdempotencyKey = errors.New("idempotency key must be a UUID")
)

// Виды ошибок, которые видит клиент.
const (
	KindUnauthenticated  = "Unauthenticated"
	KindNotEligible      = "NotEligible"
	KindSpinsExhausted   = "SpinsExhausted"
	KindStoreUnavailable = "StoreUnavailable"
	KindInvalidArgument  = "InvalidArgument"
)

func SpinErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrNotEligible):
		return KindNotEligible
	case errors.Is(err, ErrSpinsExhausted):
		return KindSpinsExhausted
	case errors.Is(err, ErrInvalidIdempotencyKey):
		return KindInvalidArgument
	default:
		return KindStoreUnavailable
	}
}

type SpinStore interface {
	InSpinTx(ctx context.Context, userID int64, fn func(tx db.SpinTx) error) error
	ReadSpins(ctx context.Context, userID int64, fn func(rd db.SpinReader) error) error
	SpinsByUserID(ctx context.Context, userID int64) ([]models.SpinRecord, error)
}

// ReplayCache хранит результаты уже выполненных вращений по ключу идемпотентности.
type ReplayCache interface {
	Get(ctx context.Context, userID int64, key string) (prize int64, ok bool, err error)
	Put(ctx context.Context, userID int64, key string, prize int64) error
}

type SpinResult struct {
	Prize    int64
	Record   models.SpinRecord
	Replayed bool
}

type Eligibility struct {
	Window       models.DayWindow
	OrderCount   int
	TotalAmount  decimal.Decimal
	AllowedSpins int
	UsedSpins    int
	Remaining    int
	Eligible     bool
	NextPrize    int64
}

type SpinService struct {
	Store    SpinStore
	Cache    ReplayCache
	Location *time.Location
	// Retries - сколько раз повторять попытку, если хранилище не ответило до записи.
	Retries int
	Now     func() time.Time
	Logger  *zap.Logger

	inflight singleflight.Group
}

func NewSpinService(store SpinStore, cache ReplayCache, loc *time.Location, retries int, logger *zap.Logger) *SpinService {
	if loc == nil {
		loc = time.UTC
	}
	return &SpinService{
		Store:    store,
		Cache:    cache,
		Location: loc,
		Retries:  retries,
		Now:      time.Now,
		Logger:   logger,
	}
}

// Spin решает, положено ли пользователю вращение, и если да - сохраняет
// награду со статусом pending. Проверка лимита и запись выполняются
// атомарно относительно других вращений того же пользователя.
func (s *SpinService) Spin(ctx context.Context, userID int64, idempotencyKey string) (*SpinResult, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	if idempotencyKey == "" {
		return s.spinWithRetry(ctx, userID, "")
	}

	if _, err := uuid.Parse(idempotencyKey); err != nil {
		return nil, ErrInvalidIdempotencyKey
	}
	if s.Cache != nil {
		prize, ok, err := s.Cache.Get(ctx, userID, idempotencyKey)
		if err != nil {
			s.Logger.Warn("replay cache lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if ok {
			return &SpinResult{Prize: prize, Replayed: true}, nil
		}
	}

	// Общий вызов не отменяется вместе с первым клиентом, его результат
	// ждут все запросы с тем же ключом.
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(strconv.FormatInt(userID, 10)+":"+idempotencyKey, func() (interface{}, error) {
		return s.spinWithRetry(shared, userID, idempotencyKey)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*SpinResult)
		return &res, nil
	}
}

func (s *SpinService) spinWithRetry(ctx context.Context, userID int64, key string) (*SpinResult, error) {
	for attempt := 0; ; attempt++ {
		res, err := s.spinOnce(ctx, userID, key)
		if err == nil {
			s.remember(ctx, userID, key, res)
			return res, nil
		}
		if !s.retryable(ctx, err, key) || attempt >= s.Retries {
			s.Logger.Info("spin rejected",
				zap.Int64("user_id", userID),
				zap.String("kind", SpinErrorKind(err)),
				zap.Error(err),
			)
			return nil, err
		}
		s.Logger.Warn("spin store failure, retrying",
			zap.Int64("user_id", userID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
}

// retryable: бизнес-отказы окончательны. Если исход коммита неизвестен,
// повтор допустим только с ключом идемпотентности: повторная попытка
// сначала найдёт уже сохранённую запись.
func (s *SpinService) retryable(ctx context.Context, err error, key string) bool {
	if ctx.Err() != nil || !errors.Is(err, ErrStoreUnavailable) {
		return false
	}
	if errors.Is(err, db.ErrCommitUnknown) {
		return key != ""
	}
	return true
}

func (s *SpinService) spinOnce(ctx context.Context, userID int64, key string) (*SpinResult, error) {
	now := s.Now()
	window := DayWindowAt(now, s.Location)

	var (
		rec      *models.SpinRecord
		replayed bool
	)
	err := s.Store.InSpinTx(ctx, userID, func(tx db.SpinTx) error {
		if key != "" {
			existing, err := tx.SpinByIdempotencyKey(ctx, userID, key)
			if err == nil {
				rec, replayed = existing, true
				return nil
			}
			if !errors.Is(err, db.ErrNotFound) {
				return storeErr(err)
			}
		}

		stats, err := tx.ConfirmedOrderStats(ctx, userID, window)
		if err != nil {
			return storeErr(err)
		}
		allowed := AllowedSpins(stats.Count)
		if !Eligible(stats) {
			return fmt.Errorf("%w: %d confirmed orders, %s spent today", ErrNotEligible, stats.Count, stats.Total.StringFixed(2))
		}

		used, err := tx.CountSpins(ctx, userID, window)
		if err != nil {
			return storeErr(err)
		}
		if used >= allowed {
			return fmt.Errorf("%w: %d of %d used", ErrSpinsExhausted, used, allowed)
		}

		rec = &models.SpinRecord{
			UserID:         userID,
			Amount:         PrizeFor(stats.Total),
			Status:         models.SpinStatusPending,
			IdempotencyKey: key,
			CreatedAt:      now,
		}
		if err := tx.InsertSpin(ctx, rec); err != nil {
			return storeErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}

	if !replayed {
		s.Logger.Info("spin issued",
			zap.Int64("user_id", userID),
			zap.Int64("prize", rec.Amount),
			zap.Int64("spin_id", rec.ID),
		)
	}
	return &SpinResult{Prize: rec.Amount, Record: *rec, Replayed: replayed}, nil
}

func (s *SpinService) classify(err error) error {
	switch {
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrSpinsExhausted), errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, db.ErrNotFound):
		// токен валиден, но пользователя больше нет
		return ErrUnauthenticated
	default:
		return storeErr(err)
	}
}

func (s *SpinService) remember(ctx context.Context, userID int64, key string, res *SpinResult) {
	if key == "" || s.Cache == nil {
		return
	}
	if err := s.Cache.Put(ctx, userID, key, res.Prize); err != nil {
		s.Logger.Warn("replay cache store failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Status показывает текущее состояние лимита без записи и без блокировки
// пользователя, поэтому результат может отстать от параллельного вращения.
func (s *SpinService) Status(ctx context.Context, userID int64) (*Eligibility, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	window := DayWindowAt(s.Now(), s.Location)
	e := &Eligibility{Window: window}
	err := s.Store.ReadSpins(ctx, userID, func(rd db.SpinReader) error {
		stats, err := rd.ConfirmedOrderStats(ctx, userID, window)
		if err != nil {
			return storeErr(err)
		}
		used, err := rd.CountSpins(ctx, userID, window)
		if err != nil {
			return storeErr(err)
		}
		e.OrderCount = stats.Count
		e.TotalAmount = stats.Total
		e.AllowedSpins = AllowedSpins(stats.Count)
		e.UsedSpins = used
		e.Eligible = Eligible(stats)
		if e.Eligible && used < e.AllowedSpins {
			e.Remaining = e.AllowedSpins - used
			e.NextPrize = PrizeFor(stats.Total)
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return e, nil
}

// History - все награды пользователя, новые первыми.
func (s *SpinService) History(ctx context.Context, userID int64) ([]models.SpinRecord, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	spins, err := s.Store.SpinsByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return spins, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
