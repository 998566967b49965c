package service

import (
	"context"
	"errors"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

// OrderService implements order placement, status changes and cancellation.
type OrderService struct {
	products  repository.ProductRepository
	addresses repository.AddressRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
}

func NewOrderService(products repository.ProductRepository, addresses repository.AddressRepository, orders repository.OrderRepository, tx repository.TxManager) *OrderService {
	return &OrderService{products: products, addresses: addresses, orders: orders, tx: tx}
}

var (
	ErrNotEnoughStock = errors.New("not enough stock")
	ErrInvalidState   = errors.New("invalid state")
)

// OrderLine is one requested product and quantity.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CreateOrderInput struct {
	AddressID   string
	PaymentMode domain.PaymentMode
	Gateway     *domain.GatewayRef
	Items       []OrderLine
}

func (in CreateOrderInput) validate() error {
	if in.AddressID == "" || !in.PaymentMode.Valid() || len(in.Items) == 0 {
		return ErrInvalidInput
	}
	if in.Gateway != nil && (in.PaymentMode != domain.PaymentModeOnline || in.Gateway.PaymentID == "") {
		return ErrInvalidInput
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return ErrInvalidInput
		}
	}
	return nil
}

// CreateOrder checks stock, reserves it and stores the order with the
// current unit prices, all in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.addresses.GetByID(ctx, in.AddressID); err != nil {
			return err
		}

		// keyed by the stored id; a store may accept more than one spelling
		// of the same id
		reserved := make(map[string]*domain.Product)
		items := make([]domain.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, ok := reserved[it.ProductID]
			if !ok {
				fetched, err := s.products.GetByID(ctx, it.ProductID)
				if err != nil {
					return err
				}
				if p, ok = reserved[fetched.ID]; !ok {
					p = fetched
					reserved[p.ID] = p
				}
			}
			if p.Stock < it.Quantity {
				return ErrNotEnoughStock
			}
			p.Stock -= it.Quantity
			items = append(items, domain.OrderItem{ProductID: p.ID, Quantity: it.Quantity, Price: p.Price})
		}
		for _, p := range reserved {
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}

		o := domain.Order{
			AddressID:   in.AddressID,
			Items:       items,
			Status:      domain.OrderStatusPlaced,
			PaymentMode: in.PaymentMode,
		}
		if in.Gateway != nil {
			g := *in.Gateway
			o.Gateway = &g
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// CancelOrder returns the reserved stock and marks the order Cancelled.
// Only orders that have not shipped can be cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return ErrInvalidState
		}
		for _, it := range o.Items {
			p, err := s.products.GetByID(ctx, it.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				// product left the catalogue; nothing to restock
				continue
			}
			if err != nil {
				return err
			}
			p.Stock += it.Quantity
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}
		o.Status = domain.OrderStatusCancelled
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus moves an order along Placed -> Shipped -> Delivered.
// Cancelling goes through CancelOrder so stock is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	if id == "" || !next.Valid() {
		return nil, ErrInvalidInput
	}
	if next == domain.OrderStatusCancelled {
		return s.CancelOrder(ctx, id)
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return ErrInvalidState
		}
		o.Status = next
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AttachPayment records the gateway references of a captured online payment.
func (s *OrderService) AttachPayment(ctx context.Context, id string, ref domain.GatewayRef) (*domain.Order, error) {
	if id == "" || ref.PaymentID == "" || ref.OrderID == "" {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.PaymentMode != domain.PaymentModeOnline {
			return ErrInvalidInput
		}
		if o.Status == domain.OrderStatusCancelled || o.Gateway != nil {
			return ErrInvalidState
		}
		o.Gateway = &ref
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
