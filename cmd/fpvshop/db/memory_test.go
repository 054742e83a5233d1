package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/shopspring/decimal"
)

var day = models.DayWindow{
	Start: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
}

func TestMemoryStoreOrderStatsCountsOnlyConfirmedInWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, err := m.CreateUser(ctx, "pilot", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	add := func(number string, amount int64, at time.Time, status string) {
		t.Helper()
		m.Now = func() time.Time { return at }
		o := &models.Order{OrderNumber: number, UserID: userID, Amount: decimal.NewFromInt(amount)}
		if err := m.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if status != models.OrderStatusPending {
			if err := m.UpdateOrderStatus(ctx, o.ID, status); err != nil {
				t.Fatalf("UpdateOrderStatus: %v", err)
			}
		}
	}
	add("1", 500, day.Start, models.OrderStatusConfirmed)
	add("2", 700, day.End.Add(-time.Millisecond), models.OrderStatusConfirmed)
	add("3", 900, day.End, models.OrderStatusConfirmed)
	add("4", 900, day.Start.Add(time.Hour), models.OrderStatusCancelled)
	add("5", 900, day.Start.Add(time.Hour), models.OrderStatusPending)

	err = m.InSpinTx(ctx, userID, func(tx SpinTx) error {
		stats, err := tx.ConfirmedOrderStats(ctx, userID, day)
		if err != nil {
			return err
		}
		if stats.Count != 2 {
			t.Errorf("Count = %d, want 2", stats.Count)
		}
		if !stats.Total.Equal(decimal.NewFromInt(1200)) {
			t.Errorf("Total = %s, want 1200", stats.Total)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InSpinTx: %v", err)
	}
}

func TestMemoryStoreInSpinTxDiscardsWritesOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")
	boom := errors.New("boom")

	err := m.InSpinTx(ctx, userID, func(tx SpinTx) error {
		if err := tx.InsertSpin(ctx, &models.SpinRecord{UserID: userID, Amount: 10, Status: models.SpinStatusPending, CreatedAt: day.Start}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	spins, _ := m.SpinsByUserID(ctx, userID)
	if len(spins) != 0 {
		t.Fatalf("len(spins) = %d, want 0", len(spins))
	}
}

func TestMemoryStoreInSpinTxSerializesPerUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.InSpinTx(ctx, userID, func(tx SpinTx) error {
				n, err := tx.CountSpins(ctx, userID, day)
				if err != nil || n >= 1 {
					return err
				}
				return tx.InsertSpin(ctx, &models.SpinRecord{UserID: userID, Amount: 10, Status: models.SpinStatusPending, CreatedAt: day.Start})
			})
		}()
	}
	wg.Wait()

	spins, _ := m.SpinsByUserID(ctx, userID)
	if len(spins) != 1 {
		t.Fatalf("len(spins) = %d, want 1", len(spins))
	}
}

func TestMemoryStoreUnknownUser(t *testing.T) {
	m := NewMemoryStore()
	err := m.InSpinTx(context.Background(), 99, func(tx SpinTx) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreConfirmedOrderIsImmutable(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")
	o := &models.Order{OrderNumber: "1", UserID: userID, Amount: decimal.NewFromInt(1)}
	_ = m.CreateOrder(ctx, o)
	if err := m.UpdateOrderStatus(ctx, o.ID, models.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := m.UpdateOrderStatus(ctx, o.ID, models.OrderStatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreReadSpinsDoesNotWaitForSpin(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.InSpinTx(ctx, userID, func(tx SpinTx) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	read := make(chan error, 1)
	go func() {
		read <- m.ReadSpins(ctx, userID, func(rd SpinReader) error {
			_, err := rd.CountSpins(ctx, userID, day)
			return err
		})
	}()
	select {
	case err := <-read:
		if err != nil {
			t.Fatalf("ReadSpins: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadSpins blocked behind InSpinTx")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("InSpinTx: %v", err)
	}
}

func TestMemoryStoreSpinStatusTransitions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")
	for _, amount := range []int64{10, 20, 50} {
		err := m.InSpinTx(ctx, userID, func(tx SpinTx) error {
			return tx.InsertSpin(ctx, &models.SpinRecord{UserID: userID, Amount: amount, Status: models.SpinStatusPending, CreatedAt: day.Start})
		})
		if err != nil {
			t.Fatalf("InSpinTx: %v", err)
		}
	}
	spins, _ := m.SpinsByUserID(ctx, userID)
	ids := map[int64]int64{}
	for _, s := range spins {
		ids[s.Amount] = s.ID
	}

	if _, err := m.UpdateSpinStatus(ctx, ids[50], models.SpinStatusPending, models.SpinStatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := m.UpdateSpinStatus(ctx, ids[20], models.SpinStatusPending, models.SpinStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := m.UpdateSpinStatus(ctx, ids[20], models.SpinStatusPending, models.SpinStatusApproved); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second transition: err = %v, want ErrNotFound", err)
	}

	totals, err := m.SpinTotalsByStatus(ctx, userID)
	if err != nil {
		t.Fatalf("SpinTotalsByStatus: %v", err)
	}
	want := map[string]int64{models.SpinStatusPending: 10, models.SpinStatusApproved: 50, models.SpinStatusRejected: 20}
	for status, sum := range want {
		if totals[status] != sum {
			t.Errorf("totals[%s] = %d, want %d", status, totals[status], sum)
		}
	}
}

func TestMemoryStoreProductsAndFavourites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	userID, _ := m.CreateUser(ctx, "pilot", "hash")

	base := day.Start
	add := func(name, category, platform string, offset time.Duration) int64 {
		t.Helper()
		m.Now = func() time.Time { return base.Add(offset) }
		p := &models.Product{Name: name, Price: decimal.NewFromInt(100), Category: category, Platform: platform, URL: "https://shop/" + name}
		if err := m.CreateProduct(ctx, p); err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
		return p.ID
	}
	motor := add("2207 Motor", "motors", "amazon", 0)
	esc := add("45A ESC", "electronics", "robu", time.Minute)
	add("Prop 5inch", "props", "amazon", 2*time.Minute)

	tests := []struct {
		name   string
		filter models.ProductFilter
		want   int
	}{
		{"all", models.ProductFilter{}, 3},
		{"category", models.ProductFilter{Category: "motors"}, 1},
		{"query by name", models.ProductFilter{Query: "esc"}, 1},
		{"query by platform", models.ProductFilter{Query: "AMAZON"}, 2},
		{"category and query", models.ProductFilter{Category: "props", Query: "motor"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ListProducts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListProducts: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := m.ListProducts(ctx, models.ProductFilter{})
	if all[0].Name != "Prop 5inch" {
		t.Fatalf("first = %s, want newest product", all[0].Name)
	}

	m.Now = func() time.Time { return base.Add(time.Hour) }
	if err := m.AddFavourite(ctx, userID, motor); err != nil {
		t.Fatalf("AddFavourite: %v", err)
	}
	m.Now = func() time.Time { return base.Add(2 * time.Hour) }
	if err := m.AddFavourite(ctx, userID, esc); err != nil {
		t.Fatalf("AddFavourite: %v", err)
	}
	if err := m.AddFavourite(ctx, userID, esc); err != nil {
		t.Fatalf("AddFavourite twice: %v", err)
	}
	if err := m.AddFavourite(ctx, userID, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown product: err = %v, want ErrNotFound", err)
	}

	favs, _ := m.ListFavourites(ctx, userID)
	if len(favs) != 2 || favs[0].ID != esc {
		t.Fatalf("favourites = %+v", favs)
	}
	if err := m.RemoveFavourite(ctx, userID, esc); err != nil {
		t.Fatalf("RemoveFavourite: %v", err)
	}
	favs, _ = m.ListFavourites(ctx, userID)
	if len(favs) != 1 || favs[0].ID != motor {
		t.Fatalf("favourites after remove = %+v", favs)
	}
}
