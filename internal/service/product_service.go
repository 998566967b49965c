package service

import (
	"context"
	"errors"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

// ProductService wraps catalogue validation around the product repository.
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var ErrInvalidInput = errors.New("invalid input")

// Prices carry at most two decimal places.
func validProduct(p domain.Product) bool {
	return p.Name != "" && !p.Price.IsNegative() && p.Price.Equal(p.Price.Round(2)) && p.Stock >= 0
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" || !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}
