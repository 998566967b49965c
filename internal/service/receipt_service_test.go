package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/receipt"
	"github.com/ujjwalpatil07/MilkProductsDairy/internal/repository"
)

// spyRenderer counts calls and delegates to a real renderer.
type spyRenderer struct {
	inner   *receipt.Renderer
	layouts int
	draws   int
}

func (s *spyRenderer) Layout(o *domain.ReceiptOrder) (*receipt.Document, error) {
	s.layouts++
	return s.inner.Layout(o)
}

func (s *spyRenderer) Draw(w io.Writer, doc *receipt.Document) error {
	s.draws++
	return s.inner.Draw(w, doc)
}

func setupReceipts(t *testing.T) (*fixture, *ReceiptService, *spyRenderer) {
	t.Helper()
	f := setup(t)
	inner, err := receipt.NewRenderer(receipt.Options{Location: time.UTC})
	require.NoError(t, err)
	spy := &spyRenderer{inner: inner}
	return f, NewReceiptService(f.store.Receipts, spy), spy
}

func TestReceipt_Write(t *testing.T) {
	ctx := context.Background()
	f, rs, spy := setupReceipts(t)
	milk := f.product(t, "Milk 1L", "60.00", 10)
	curd := f.product(t, "Curd 500g", "35.50", 10)
	o, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		AddressID:   f.addressID,
		PaymentMode: domain.PaymentModeCash,
		Items:       []OrderLine{{ProductID: milk.ID, Quantity: 2}, {ProductID: curd.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	doc, err := rs.Prepare(ctx, o.ID)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines(), "Total Amount: ₹155.50")
	assert.Equal(t, "Order_"+o.ID+"_Receipt.pdf", doc.FileName())

	var buf bytes.Buffer
	require.NoError(t, rs.Write(ctx, o.ID, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, 2, spy.layouts)
	assert.Equal(t, 1, spy.draws)
}

func TestReceipt_MissingOrderSkipsRenderer(t *testing.T) {
	ctx := context.Background()
	_, rs, spy := setupReceipts(t)

	var buf bytes.Buffer
	err := rs.Write(ctx, "no-such-order", &buf)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, spy.layouts)
	assert.Zero(t, spy.draws)
	assert.Zero(t, buf.Len())

	_, err = rs.Prepare(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, spy.layouts)
}

func TestReceipt_DeletedProductIsIncomplete(t *testing.T) {
	ctx := context.Background()
	f, rs, spy := setupReceipts(t)
	p := f.product(t, "Seasonal Kulfi", "25", 5)
	o, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		AddressID:   f.addressID,
		PaymentMode: domain.PaymentModeCash,
		Items:       []OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, p.ID))

	var buf bytes.Buffer
	err = rs.Write(ctx, o.ID, &buf)
	assert.ErrorIs(t, err, receipt.ErrRenderDataIncomplete)
	assert.Zero(t, spy.draws)
	assert.Zero(t, buf.Len())
}

func TestReceipt_OnlineOrderShowsGateway(t *testing.T) {
	ctx := context.Background()
	f, rs, _ := setupReceipts(t)
	p := f.product(t, "Milk 1L", "60", 5)
	o, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		AddressID:   f.addressID,
		PaymentMode: domain.PaymentModeOnline,
		Gateway:     &domain.GatewayRef{PaymentID: "pay_Nx81", OrderID: "order_Nx81"},
		Items:       []OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	doc, err := rs.Prepare(ctx, o.ID)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines(), "Razorpay Payment ID: pay_Nx81")
	assert.Contains(t, doc.Lines(), "Razorpay Order ID: order_Nx81")
}
