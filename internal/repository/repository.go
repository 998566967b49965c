package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ProductFilter narrows a product listing.
type ProductFilter struct {
	NameSubstring string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

func (f ProductFilter) match(p domain.Product) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

type AddressRepository interface {
	Create(ctx context.Context, a *domain.Address) error
	GetByID(ctx context.Context, id string) (*domain.Address, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
}

// ReceiptReader loads an order with its address and product names joined.
// Missing references are left nil instead of failing the lookup.
type ReceiptReader interface {
	GetReceiptOrder(ctx context.Context, id string) (*domain.ReceiptOrder, error)
}

// TxManager runs fn in a transaction. Repositories called with the
// context passed to fn take part in it.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Products  ProductRepository
	Addresses AddressRepository
	Orders    OrderRepository
	Receipts  ReceiptReader
	Tx        TxManager

	close func(ctx context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver   string
	URL      string
	Database string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverMongo:
		return OpenMongo(ctx, opts.URL, opts.Database)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
