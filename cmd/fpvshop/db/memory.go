package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
	"github.com/shopspring/decimal"
)

// MemoryStore хранит данные в памяти процесса. Используется в тестах
// и при запуске без DATABASE_URI.
type MemoryStore struct {
	Now func() time.Time

	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
	orders []models.Order
	spins  []models.SpinRecord

	products   []models.Product
	favourites map[int64][]favourite

	locksMu   sync.Mutex
	userLocks map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Now:       time.Now,
		users:      make(map[int64]models.User),
		favourites: make(map[int64][]favourite),
		userLocks:  make(map[int64]*sync.Mutex),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreateUser(_ context.Context, login, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == login {
			return 0, ErrConflict
		}
	}
	u := models.User{ID: m.id(), Login: login, PasswordHash: passwordHash, CreatedAt: m.Now()}
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *MemoryStore) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Login == login {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByID(_ context.Context, userID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == order.OrderNumber {
			return ErrConflict
		}
	}
	order.ID = m.id()
	order.Status = models.OrderStatusPending
	order.CreatedAt = m.Now()
	m.orders = append(m.orders, *order)
	return nil
}

func (m *MemoryStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetOrdersByUserID(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sortNewestFirst(orders, func(o models.Order) (time.Time, int64) { return o.CreatedAt, o.ID })
	return orders, nil
}

func (m *MemoryStore) GetPendingOrders(_ context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []models.Order
	for _, o := range m.orders {
		if o.Status == models.OrderStatusPending {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == orderID && m.orders[i].Status == models.OrderStatusPending {
			m.orders[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) userLock(userID int64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.userLocks[userID] = l
	}
	return l
}

// InSpinTx сериализует вызовы по пользователю. Вставки применяются
// только если fn завершилась без ошибки.
func (m *MemoryStore) InSpinTx(ctx context.Context, userID int64, fn func(tx SpinTx) error) error {
	m.mu.RLock()
	_, ok := m.users[userID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memSpinTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range tx.pending {
		tx.pending[i].ID = m.id()
		m.spins = append(m.spins, *tx.pending[i])
	}
	return nil
}

// ReadSpins читает без блокировки пользователя и не ждёт идущих вращений.
func (m *MemoryStore) ReadSpins(ctx context.Context, userID int64, fn func(rd SpinReader) error) error {
	m.mu.RLock()
	_, ok := m.users[userID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memSpinTx{store: m})
}

func (m *MemoryStore) SpinTotalsByStatus(_ context.Context, userID int64) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[string]int64)
	for _, s := range m.spins {
		if s.UserID == userID {
			totals[s.Status] += s.Amount
		}
	}
	return totals, nil
}

func (m *MemoryStore) UpdateSpinStatus(_ context.Context, spinID int64, from, to string) (*models.SpinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.spins {
		if m.spins[i].ID == spinID && m.spins[i].Status == from {
			m.spins[i].Status = to
			s := m.spins[i]
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SpinsByUserID(_ context.Context, userID int64) ([]models.SpinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var spins []models.SpinRecord
	for _, s := range m.spins {
		if s.UserID == userID {
			spins = append(spins, s)
		}
	}
	sortNewestFirst(spins, func(s models.SpinRecord) (time.Time, int64) { return s.CreatedAt, s.ID })
	return spins, nil
}

type memSpinTx struct {
	store   *MemoryStore
	pending []*models.SpinRecord
}

func (t *memSpinTx) ConfirmedOrderStats(_ context.Context, userID int64, window models.DayWindow) (models.OrderStats, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	stats := models.OrderStats{Total: decimal.Zero}
	for _, o := range t.store.orders {
		if o.UserID == userID && o.Status == models.OrderStatusConfirmed && window.Contains(o.CreatedAt) {
			stats.Count++
			stats.Total = stats.Total.Add(o.Amount)
		}
	}
	return stats, nil
}

func (t *memSpinTx) CountSpins(_ context.Context, userID int64, window models.DayWindow) (int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n := 0
	for _, s := range t.store.spins {
		if s.UserID == userID && window.Contains(s.CreatedAt) {
			n++
		}
	}
	for _, s := range t.pending {
		if window.Contains(s.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func (t *memSpinTx) SpinByIdempotencyKey(_ context.Context, userID int64, key string) (*models.SpinRecord, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, s := range t.store.spins {
		if s.UserID == userID && s.IdempotencyKey != "" && s.IdempotencyKey == key {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memSpinTx) InsertSpin(_ context.Context, rec *models.SpinRecord) error {
	if rec.IdempotencyKey != "" {
		t.store.mu.RLock()
		for _, s := range t.store.spins {
			if s.UserID == rec.UserID && s.IdempotencyKey == rec.IdempotencyKey {
				t.store.mu.RUnlock()
				return ErrConflict
			}
		}
		t.store.mu.RUnlock()
	}
	t.pending = append(t.pending, rec)
	return nil
}

type favourite struct {
	productID int64
	addedAt   time.Time
}

func (m *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = m.Now()
	m.products = append(m.products, *p)
	return nil
}

func (m *MemoryStore) GetProductByID(_ context.Context, productID int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == productID {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListProducts(_ context.Context, f models.ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(f.Query)
	var products []models.Product
	for _, p := range m.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Category), q) &&
			!strings.Contains(strings.ToLower(p.Platform), q) {
			continue
		}
		products = append(products, p)
	}
	sortNewestFirst(products, func(p models.Product) (time.Time, int64) { return p.CreatedAt, p.ID })
	return products, nil
}

func (m *MemoryStore) AddFavourite(_ context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	found := false
	for _, p := range m.products {
		if p.ID == productID {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	for _, f := range m.favourites[userID] {
		if f.productID == productID {
			return nil
		}
	}
	m.favourites[userID] = append(m.favourites[userID], favourite{productID: productID, addedAt: m.Now()})
	return nil
}

func (m *MemoryStore) RemoveFavourite(_ context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	favs := m.favourites[userID]
	for i, f := range favs {
		if f.productID == productID {
			m.favourites[userID] = append(favs[:i:i], favs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) ListFavourites(_ context.Context, userID int64) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	favs := make([]favourite, len(m.favourites[userID]))
	copy(favs, m.favourites[userID])
	sortNewestFirst(favs, func(f favourite) (time.Time, int64) { return f.addedAt, f.productID })
	var products []models.Product
	for _, f := range favs {
		for _, p := range m.products {
			if p.ID == f.productID {
				products = append(products, p)
				break
			}
		}
	}
	return products, nil
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}
