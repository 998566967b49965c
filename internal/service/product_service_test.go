package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupPS(t *testing.T) *ProductService {
	t.Helper()
	return NewProductService(repository.NewMemoryStore())
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Milk 1L", Unit: "1L", Price: dec("60.00"), Stock: 10})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected id assigned")
	}
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	for _, p := range []domain.Product{
		{Name: "", Price: dec("1"), Stock: 1},
		{Name: "N", Price: dec("-0.01"), Stock: 1},
		{Name: "N", Price: dec("1"), Stock: -1},
		{Name: "N", Price: dec("1.005"), Stock: 1},
	} {
		if _, err := ps.Create(ctx, p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected validation error for %+v, got %v", p, err)
		}
	}
}

func TestProduct_PricePrecision(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	for _, price := range []string{"35.5", "35.50", "35.500", "60"} {
		if _, err := ps.Create(ctx, domain.Product{Name: "Curd 500g", Price: dec(price), Stock: 1}); err != nil {
			t.Fatalf("price %s: unexpected err: %v", price, err)
		}
	}

	p, _ := ps.Create(ctx, domain.Product{Name: "Paneer 200g", Price: dec("90"), Stock: 1})
	p.Price = dec("89.999")
	if _, err := ps.Update(ctx, *p); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for sub-paisa price, got %v", err)
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, _ := ps.Create(ctx, domain.Product{Name: "Curd 500g", Price: dec("35.50"), Stock: 5})

	p.Price = dec("36")
	if _, err := ps.Update(ctx, *p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := ps.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(dec("36")) {
		t.Fatalf("price not updated: %s", got.Price)
	}

	if _, err := ps.Update(ctx, domain.Product{Name: "x", Price: dec("1")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("update without id: %v", err)
	}

	if err := ps.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ps.GetByID(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := ps.GetByID(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	for _, p := range []domain.Product{
		{Name: "Milk 1L", Price: dec("60"), Stock: 1},
		{Name: "Buttermilk", Price: dec("20"), Stock: 1},
		{Name: "Ghee 500ml", Price: dec("310"), Stock: 1},
	} {
		if _, err := ps.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	max := dec("100")
	list, err := ps.List(ctx, repository.ProductFilter{NameSubstring: "milk", MaxPrice: &max})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %+v", list)
	}
}
