package service

import (
	"context"
	"io"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/receipt"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

// DocumentRenderer is the part of *receipt.Renderer the service uses.
type DocumentRenderer interface {
	Layout(o *domain.ReceiptOrder) (*receipt.Document, error)
	Draw(w io.Writer, doc *receipt.Document) error
}

// ReceiptService fetches a resolved order and turns it into a receipt.
type ReceiptService struct {
	orders   repository.ReceiptReader
	renderer DocumentRenderer
}

func NewReceiptService(orders repository.ReceiptReader, renderer DocumentRenderer) *ReceiptService {
	return &ReceiptService{orders: orders, renderer: renderer}
}

// Prepare loads order id and lays out its receipt. A missing order returns
// repository.ErrNotFound without touching the renderer.
func (s *ReceiptService) Prepare(ctx context.Context, id string) (*receipt.Document, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetReceiptOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Layout(o)
}

// Draw writes a prepared receipt to w.
func (s *ReceiptService) Draw(w io.Writer, doc *receipt.Document) error {
	return s.renderer.Draw(w, doc)
}

// Write prepares and draws the receipt of order id in one go.
func (s *ReceiptService) Write(ctx context.Context, id string, w io.Writer) error {
	doc, err := s.Prepare(ctx, id)
	if err != nil {
		return err
	}
	return s.Draw(w, doc)
}
