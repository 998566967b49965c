package receipt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Options{})
	require.NoError(t, err)
	return r
}

func item(id, name, price string, qty int64) domain.ReceiptItem {
	return domain.ReceiptItem{
		ProductID: id,
		Product:   &domain.ProductSummary{Name: name},
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func sampleOrder() *domain.ReceiptOrder {
	return &domain.ReceiptOrder{
		ID:          "665f1c2ab8e4a1d2c3f40001",
		Status:      domain.OrderStatusPlaced,
		PaymentMode: domain.PaymentModeCash,
		CreatedAt:   time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		Address: &domain.Address{
			Name:          "Asha Patil",
			Phone:         "9876543210",
			AddressType:   "Home",
			StreetAddress: "12 Gangapur Road",
			City:          "Nashik",
			State:         "Maharashtra",
			Pincode:       "422013",
		},
		Items: []domain.ReceiptItem{
			item("p-milk", "Milk 1L", "60.00", 2),
			item("p-curd", "Curd 500g", "35.50", 1),
		},
	}
}

func countPrefix(lines []string, prefix string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func TestLayout_SubtotalsAndTotal(t *testing.T) {
	doc, err := newTestRenderer(t).Layout(sampleOrder())
	require.NoError(t, err)

	lines := doc.Lines()
	assert.Contains(t, lines, "₹120.00")
	assert.Contains(t, lines, "₹35.50")
	assert.Contains(t, lines, "Total Amount: ₹155.50")
	assert.True(t, doc.Total.Equal(decimal.RequireFromString("155.50")))
	assert.Equal(t, 1, doc.Pages)
	assert.Equal(t, "Order_665f1c2ab8e4a1d2c3f40001_Receipt.pdf", doc.FileName())
}

func TestLayout_Sections(t *testing.T) {
	doc, err := newTestRenderer(t).Layout(sampleOrder())
	require.NoError(t, err)

	lines := doc.Lines()
	assert.Equal(t, "Madhur Dairy & Daily Needs", lines[0])
	for _, want := range []string{
		"Order Details",
		"Order ID: 665f1c2ab8e4a1d2c3f40001",
		"Status: Placed",
		"Payment Mode: Cash",
		"Date: 6/1/2024, 10:30:00 AM",
		"Delivery Address",
		"Asha Patil (Home)",
		"Phone: 9876543210",
		"12 Gangapur Road, Nashik, Maharashtra - 422013",
		"Ordered Items",
		"Product", "Qty", "Price", "Subtotal",
		"Milk 1L", "2", "₹60.00",
		"Thank you for shopping with Madhur Dairy & Daily Needs.",
	} {
		assert.Contains(t, lines, want)
	}
}

func TestLayout_CashHasNoGatewayBlock(t *testing.T) {
	o := sampleOrder()
	o.Gateway = &domain.GatewayRef{PaymentID: "pay_1", OrderID: "order_1"}

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Zero(t, countPrefix(doc.Lines(), "Razorpay"))
}

func TestLayout_OnlineGatewayBlock(t *testing.T) {
	o := sampleOrder()
	o.PaymentMode = domain.PaymentModeOnline
	o.Gateway = &domain.GatewayRef{PaymentID: "pay_Nx81", OrderID: "order_Nx81"}

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)

	lines := doc.Lines()
	assert.Equal(t, 1, countPrefix(lines, "Razorpay Payment ID: "))
	assert.Equal(t, 1, countPrefix(lines, "Razorpay Order ID: "))
	assert.Contains(t, lines, "Razorpay Payment ID: pay_Nx81")
	assert.Contains(t, lines, "Razorpay Order ID: order_Nx81")
}

func TestLayout_OnlineWithoutPaymentID(t *testing.T) {
	o := sampleOrder()
	o.PaymentMode = domain.PaymentModeOnline

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Zero(t, countPrefix(doc.Lines(), "Razorpay"))

	o.Gateway = &domain.GatewayRef{OrderID: "order_only"}
	doc, err = newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Zero(t, countPrefix(doc.Lines(), "Razorpay"))
}

func TestLayout_UnresolvedData(t *testing.T) {
	cases := map[string]func(o *domain.ReceiptOrder){
		"nil product":     func(o *domain.ReceiptOrder) { o.Items[1].Product = nil },
		"empty name":      func(o *domain.ReceiptOrder) { o.Items[0].Product.Name = "" },
		"nil address":     func(o *domain.ReceiptOrder) { o.Address = nil },
		"missing pincode": func(o *domain.ReceiptOrder) { o.Address.Pincode = "" },
		"zero quantity":   func(o *domain.ReceiptOrder) { o.Items[0].Quantity = 0 },
		"negative price":  func(o *domain.ReceiptOrder) { o.Items[0].Price = decimal.NewFromInt(-1) },
		"no created at":   func(o *domain.ReceiptOrder) { o.CreatedAt = time.Time{} },
	}
	r := newTestRenderer(t)
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := sampleOrder()
			mutate(o)
			doc, err := r.Layout(o)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrRenderDataIncomplete), "got %v", err)
		})
	}

	_, err := r.Layout(nil)
	assert.ErrorIs(t, err, ErrRenderDataIncomplete)
}

func TestLayout_ExactDecimalTotal(t *testing.T) {
	o := sampleOrder()
	o.Items = nil
	for i := 0; i < 1000; i++ {
		o.Items = append(o.Items, item("p", "Toffee", "0.10", 1))
	}

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines(), "Total Amount: ₹100.00")

	o.Items = []domain.ReceiptItem{item("a", "A", "0.1", 1), item("b", "B", "0.2", 1)}
	doc, err = newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines(), "Total Amount: ₹0.30")
}

func TestLayout_EmptyItems(t *testing.T) {
	o := sampleOrder()
	o.Items = nil

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines(), "Total Amount: ₹0.00")
}

func TestLayout_PreservesItemOrder(t *testing.T) {
	o := sampleOrder()
	o.Items = []domain.ReceiptItem{
		item("z", "Zebra Cheese", "1", 1),
		item("a", "Apple Lassi", "1", 1),
		item("m", "Mango Shrikhand", "1", 1),
	}

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)

	var names []string
	for _, op := range doc.Ops {
		if op.Kind == OpText && op.X == columns[0].x && op.Style == tableRow {
			names = append(names, op.Text)
		}
	}
	assert.Equal(t, []string{"Zebra Cheese", "Apple Lassi", "Mango Shrikhand"}, names)
}

func TestLayout_PageBreakRepeatsTableHeader(t *testing.T) {
	o := sampleOrder()
	o.Items = nil
	for i := 0; i < 60; i++ {
		o.Items = append(o.Items, item("p", "Paneer 200g", "90", 1))
	}

	doc, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)
	require.GreaterOrEqual(t, doc.Pages, 2)

	headers := 0
	for _, op := range doc.Ops {
		if op.Kind == OpText && op.Text == "Subtotal" {
			headers++
		}
		assert.LessOrEqual(t, op.Y, pageHeight-pageMargin)
		assert.LessOrEqual(t, op.Page, doc.Pages)
	}
	assert.Equal(t, doc.Pages, headers)
	assert.Contains(t, doc.Lines(), "Total Amount: ₹5400.00")
}

func TestLayout_DoesNotModifyInput(t *testing.T) {
	o := sampleOrder()
	before := *o
	beforeItems := append([]domain.ReceiptItem(nil), o.Items...)
	beforeAddr := *o.Address

	_, err := newTestRenderer(t).Layout(o)
	require.NoError(t, err)

	assert.Equal(t, before.ID, o.ID)
	assert.Equal(t, beforeItems, o.Items)
	assert.Equal(t, beforeAddr, *o.Address)
}

func TestLayout_Options(t *testing.T) {
	r, err := NewRenderer(Options{
		Letterhead: Letterhead{
			Organization: "Test Dairy",
			Lines:        []string{"Somewhere"},
			Closing:      []string{"Bye"},
		},
		CurrencySymbol: "Rs.",
		GatewayName:    "Stripe",
		Location:       time.FixedZone("IST", 5*3600+1800),
	})
	require.NoError(t, err)

	o := sampleOrder()
	o.PaymentMode = domain.PaymentModeOnline
	o.Gateway = &domain.GatewayRef{PaymentID: "pi_1", OrderID: "ord_1"}

	doc, err := r.Layout(o)
	require.NoError(t, err)

	lines := doc.Lines()
	assert.Equal(t, "Test Dairy", lines[0])
	assert.Contains(t, lines, "Date: 6/1/2024, 4:00:00 PM")
	assert.Contains(t, lines, "Stripe Payment ID: pi_1")
	assert.Contains(t, lines, "Total Amount: Rs.155.50")
	assert.Equal(t, "Bye", lines[len(lines)-1])
}

func TestNewRenderer_MissingFontDir(t *testing.T) {
	_, err := NewRenderer(Options{FontDir: t.TempDir()})
	assert.Error(t, err)
}
