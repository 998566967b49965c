package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

// MemoryStore keeps products, addresses and orders in memory under one lock.
type MemoryStore struct {
	mu            sync.RWMutex
	productsByID  map[string]domain.Product
	addressesByID map[string]domain.Address
	ordersByID    map[string]domain.Order
	now           func() time.Time
	newID         func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID:  make(map[string]domain.Product),
		addressesByID: make(map[string]domain.Address),
		ordersByID:    make(map[string]domain.Order),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// NewMemory returns a Store backed by a fresh MemoryStore.
func NewMemory() *Store {
	m := NewMemoryStore()
	orders := NewMemoryOrders(m)
	return &Store{
		Products:  m,
		Addresses: NewMemoryAddresses(m),
		Orders:    orders,
		Receipts:  orders,
		Tx:        NewMemoryTx(m),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

var _ ProductRepository = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.newID()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type MemoryAddresses struct{ store *MemoryStore }

func NewMemoryAddresses(store *MemoryStore) *MemoryAddresses { return &MemoryAddresses{store: store} }

var _ AddressRepository = (*MemoryAddresses)(nil)

func (ma *MemoryAddresses) Create(ctx context.Context, a *domain.Address) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	a.ID = ma.store.newID()
	ma.store.addressesByID[a.ID] = *a
	return nil
}

func (ma *MemoryAddresses) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	ma.store.rlock(ctx)
	defer ma.store.runlock(ctx)
	a, ok := ma.store.addressesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// MemoryOrders stores orders and serves the receipt join.
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var (
	_ OrderRepository = (*MemoryOrders)(nil)
	_ ReceiptReader   = (*MemoryOrders)(nil)
)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.newID()
	o.CreatedAt = mo.store.now()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = mo.store.now()
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetReceiptOrder(ctx context.Context, id string) (*domain.ReceiptOrder, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	ro := &domain.ReceiptOrder{
		ID:          o.ID,
		Status:      o.Status,
		PaymentMode: o.PaymentMode,
		CreatedAt:   o.CreatedAt,
		Items:       make([]domain.ReceiptItem, 0, len(o.Items)),
	}
	if o.Gateway != nil {
		g := *o.Gateway
		ro.Gateway = &g
	}
	if a, ok := mo.store.addressesByID[o.AddressID]; ok {
		ro.Address = &a
	}
	for _, it := range o.Items {
		ri := domain.ReceiptItem{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity}
		if p, ok := mo.store.productsByID[it.ProductID]; ok {
			ri.Product = &domain.ProductSummary{Name: p.Name}
		}
		ro.Items = append(ro.Items, ri)
	}
	return ro, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.Gateway != nil {
		g := *o.Gateway
		o.Gateway = &g
	}
	return o
}

// MemoryTx holds the write lock for the whole transaction.
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// mark the context so repositories skip their own locking
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
