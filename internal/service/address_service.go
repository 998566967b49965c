package service

import (
	"context"
	"strings"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

type AddressService struct {
	repo repository.AddressRepository
}

func NewAddressService(repo repository.AddressRepository) *AddressService {
	return &AddressService{repo: repo}
}

// Create stores a delivery address. Every field a receipt prints is required.
func (s *AddressService) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	for _, f := range []string{a.Name, a.Phone, a.AddressType, a.StreetAddress, a.City, a.State, a.Pincode} {
		if strings.TrimSpace(f) == "" {
			return nil, ErrInvalidInput
		}
	}
	cp := a
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *AddressService) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}
