package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/db"
	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"go.uber.org/zap"
)

// addSpins записывает вращения пользователя напрямую через хранилище.
func addSpins(t *testing.T, store *db.MemoryStore, userID int64, prizes ...int64) []int64 {
	t.Helper()
	var ids []int64
	for _, prize := range prizes {
		err := store.InSpinTx(context.Background(), userID, func(tx db.SpinTx) error {
			return tx.InsertSpin(context.Background(), &models.SpinRecord{
				UserID:    userID,
				Amount:    prize,
				Status:    models.SpinStatusPending,
				CreatedAt: time.Now(),
			})
		})
		if err != nil {
			t.Fatalf("InsertSpin: %v", err)
		}
	}
	spins, err := store.SpinsByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("SpinsByUserID: %v", err)
	}
	for i := len(spins) - 1; i >= 0; i-- {
		ids = append(ids, spins[i].ID)
	}
	return ids
}

func TestWalletAndReview(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	adminID, _ := store.CreateUser(ctx, "admin", "hash")
	userID, _ := store.CreateUser(ctx, "pilot", "hash")
	svc := NewWalletService(store, NewAdminPolicy(store, "admin"), zap.NewNop())

	ids := addSpins(t, store, userID, 10, 20, 50, 100)

	steps := []struct {
		name   string
		userID int64
		spinID int64
		status string
		want   error
	}{
		{"approve", adminID, ids[0], models.SpinStatusApproved, nil},
		{"approve second", adminID, ids[1], models.SpinStatusApproved, nil},
		{"pay approved", adminID, ids[1], models.SpinStatusPaid, nil},
		{"reject", adminID, ids[2], models.SpinStatusRejected, nil},
		{"pay pending", adminID, ids[3], models.SpinStatusPaid, ErrInvalidSpinTransition},
		{"approve rejected", adminID, ids[2], models.SpinStatusApproved, ErrInvalidSpinTransition},
		{"back to pending", adminID, ids[3], models.SpinStatusPending, ErrInvalidSpinStatus},
		{"unknown status", adminID, ids[3], "lost", ErrInvalidSpinStatus},
		{"unknown spin", adminID, 999, models.SpinStatusApproved, ErrInvalidSpinTransition},
		{"not admin", userID, ids[3], models.SpinStatusApproved, ErrForbidden},
	}
	for _, st := range steps {
		rec, err := svc.ReviewSpin(ctx, st.userID, st.spinID, st.status)
		if !errors.Is(err, st.want) {
			t.Fatalf("%s: err = %v, want %v", st.name, err, st.want)
		}
		if err == nil && rec.Status != st.status {
			t.Fatalf("%s: status = %s", st.name, rec.Status)
		}
	}

	w, err := svc.Wallet(ctx, userID)
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	want := models.Wallet{Pending: 100, Available: 10, Withdrawn: 20, Rejected: 50}
	if w != want {
		t.Fatalf("wallet = %+v, want %+v", w, want)
	}

	empty, err := svc.Wallet(ctx, adminID)
	if err != nil || empty != (models.Wallet{}) {
		t.Fatalf("empty wallet = %+v, %v", empty, err)
	}
	if _, err := svc.Wallet(ctx, 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous: err = %v", err)
	}
}
