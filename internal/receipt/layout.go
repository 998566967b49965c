package receipt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

var (
	// ErrRenderDataIncomplete means a joined field the receipt prints was
	// not resolved. It is a data-integrity fault, not bad client input.
	ErrRenderDataIncomplete = errors.New("receipt data incomplete")
	// ErrStreamWrite means the output stream failed before the document
	// was fully written.
	ErrStreamWrite = errors.New("receipt stream write failed")
	// ErrUnsupportedText means a line holds characters the receipt fonts
	// cannot draw.
	ErrUnsupportedText = errors.New("receipt text not supported by font")
)

const dateLayout = "1/2/2006, 3:04:05 PM"

// Letterhead is the store identity printed at the top and bottom.
type Letterhead struct {
	Organization string
	Lines        []string
	Closing      []string
}

func DefaultLetterhead() Letterhead {
	return Letterhead{
		Organization: "Madhur Dairy & Daily Needs",
		Lines: []string{
			"Shed no. A-31, Datri Mala, Ambad,",
			"MIDC Ambad, Nashik, Maharashtra 422010",
			"+91 92091 43657 | contact@madhurdairy.com",
		},
		Closing: []string{
			"Thank you for shopping with Madhur Dairy & Daily Needs.",
			"We look forward to serving you again!",
		},
	}
}

type Options struct {
	Letterhead     Letterhead
	CurrencySymbol string
	GatewayName    string
	Location       *time.Location
	// FontDir holds DejaVuSans.ttf, DejaVuSans-Bold.ttf and
	// DejaVuSans-Oblique.ttf to use instead of the embedded faces.
	FontDir string
	// CoreFonts draws with the built-in cp1252 Helvetica instead of
	// embedding a font.
	CoreFonts bool
}

// Renderer lays out and draws order receipts. It is immutable and safe
// for concurrent use.
type Renderer struct {
	opts  Options
	fonts *fontSet
}

func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Letterhead.Organization == "" {
		opts.Letterhead = DefaultLetterhead()
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	if opts.GatewayName == "" {
		opts.GatewayName = "Razorpay"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	fonts, err := newFontSet(opts.FontDir, opts.CoreFonts)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, fonts: fonts}, nil
}

var (
	titleStyle   = Style{Font: Bold, Size: 20, Color: charcoal}
	contactStyle = Style{Font: Regular, Size: 10, Color: gray}
	headingStyle = Style{Font: Bold, Size: 14, Color: black, Underline: true}
	bodyStyle    = Style{Font: Regular, Size: 12, Color: black}
	gatewayStyle = Style{Font: Regular, Size: 11, Color: gray}
	tableHead    = Style{Font: Regular, Size: 12, Color: black}
	tableRow     = Style{Font: Regular, Size: 11, Color: black}
	totalStyle   = Style{Font: Bold, Size: 13, Color: black}
	closingStyle = Style{Font: Italic, Size: 10, Color: gray}
)

type column struct {
	x     float64
	width float64
	align Align
}

// Product, Qty, Price, Subtotal.
var columns = [4]column{
	{x: 50, width: 210, align: AlignLeft},
	{x: 270, width: 40, align: AlignRight},
	{x: 340, width: 60, align: AlignRight},
	{x: 440, width: 80, align: AlignRight},
}

const (
	ruleEnd   = 550.0
	rowHeight = 20.0
)

// layout carries the state of one Layout call. Each step takes the cursor
// where the previous block ended and returns where its own block ends.
type layout struct {
	r     *Renderer
	order *domain.ReceiptOrder
	doc   *Document
	total decimal.Decimal
}

type step func(*layout, Cursor) Cursor

var steps = []step{
	(*layout).header,
	(*layout).orderMeta,
	(*layout).gateway,
	(*layout).date,
	(*layout).address,
	(*layout).itemsTable,
	(*layout).grandTotal,
	(*layout).footer,
	(*layout).finalize,
}

// Layout positions every element of the receipt for o. It fails with
// ErrRenderDataIncomplete before producing anything when a joined field
// is missing. o is not modified.
func (r *Renderer) Layout(o *domain.ReceiptOrder) (*Document, error) {
	if err := checkResolved(o); err != nil {
		return nil, err
	}
	l := &layout{
		r:     r,
		order: o,
		total: decimal.Zero,
		doc: &Document{
			OrderID:   o.ID,
			CreatedAt: o.CreatedAt,
			Width:     pageWidth,
			Height:    pageHeight,
			Margin:    pageMargin,
		},
	}
	c := Cursor{Page: 1, Y: pageMargin}
	for _, s := range steps {
		c = s(l, c)
	}
	return l.doc, nil
}

func checkResolved(o *domain.ReceiptOrder) error {
	if o == nil {
		return fmt.Errorf("%w: no order", ErrRenderDataIncomplete)
	}
	if o.CreatedAt.IsZero() {
		return fmt.Errorf("%w: order %s: no creation time", ErrRenderDataIncomplete, o.ID)
	}
	a := o.Address
	if a == nil {
		return fmt.Errorf("%w: order %s: address not resolved", ErrRenderDataIncomplete, o.ID)
	}
	fields := []struct{ name, value string }{
		{"name", a.Name},
		{"phone", a.Phone},
		{"addressType", a.AddressType},
		{"streetAddress", a.StreetAddress},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: order %s: address %s missing", ErrRenderDataIncomplete, o.ID, f.name)
		}
	}
	for i, it := range o.Items {
		if it.Product == nil || it.Product.Name == "" {
			return fmt.Errorf("%w: order %s: item %d: product %s not resolved", ErrRenderDataIncomplete, o.ID, i, it.ProductID)
		}
		if it.Quantity <= 0 || it.Price.IsNegative() {
			return fmt.Errorf("%w: order %s: item %d: invalid price or quantity", ErrRenderDataIncomplete, o.ID, i)
		}
	}
	return nil
}

func (l *layout) money(d decimal.Decimal) string {
	return l.r.opts.CurrencySymbol + d.StringFixed(2)
}

// text sets one full-width line and advances past it, breaking the page
// first if the line does not fit.
func (l *layout) text(c Cursor, st Style, align Align, s string) Cursor {
	h := lineHeight(st.Size)
	if !c.fits(h) {
		c = c.nextPage()
	}
	l.doc.Ops = append(l.doc.Ops, Op{
		Kind: OpText, Page: c.Page, X: pageMargin, Y: c.Y, Width: contentWidth,
		Align: align, Style: st, Text: s,
	})
	c.Y += h
	return c
}

func (l *layout) rule(c Cursor) {
	l.doc.Ops = append(l.doc.Ops, Op{Kind: OpRule, Page: c.Page, X: columns[0].x, X2: ruleEnd, Y: c.Y})
}

// row places four cells at the table columns without advancing.
func (l *layout) row(c Cursor, st Style, cells [4]string) {
	for i, col := range columns {
		l.doc.Ops = append(l.doc.Ops, Op{
			Kind: OpText, Page: c.Page, X: col.x, Y: c.Y, Width: col.width,
			Align: col.align, Style: st, Text: cells[i],
		})
	}
}

func (l *layout) header(c Cursor) Cursor {
	lh := l.r.opts.Letterhead
	c = l.text(c, titleStyle, AlignCenter, lh.Organization).down(0.3, titleStyle.Size)
	for _, line := range lh.Lines {
		c = l.text(c, contactStyle, AlignCenter, line)
	}
	return c.down(1, contactStyle.Size)
}

func (l *layout) orderMeta(c Cursor) Cursor {
	o := l.order
	c = l.text(c, headingStyle, AlignLeft, "Order Details").down(0.5, headingStyle.Size)
	c = l.text(c, bodyStyle, AlignLeft, "Order ID: "+o.ID)
	c = l.text(c, bodyStyle, AlignLeft, "Status: "+string(o.Status))
	return l.text(c, bodyStyle, AlignLeft, "Payment Mode: "+string(o.PaymentMode))
}

func (l *layout) gateway(c Cursor) Cursor {
	o := l.order
	if o.PaymentMode != domain.PaymentModeOnline || o.Gateway == nil || o.Gateway.PaymentID == "" {
		return c
	}
	name := l.r.opts.GatewayName
	c = l.text(c, gatewayStyle, AlignLeft, name+" Payment ID: "+o.Gateway.PaymentID)
	return l.text(c, gatewayStyle, AlignLeft, name+" Order ID: "+o.Gateway.OrderID)
}

func (l *layout) date(c Cursor) Cursor {
	when := l.order.CreatedAt.In(l.r.opts.Location).Format(dateLayout)
	return l.text(c, bodyStyle, AlignLeft, "Date: "+when).down(1, bodyStyle.Size)
}

func (l *layout) address(c Cursor) Cursor {
	a := l.order.Address
	c = l.text(c, headingStyle, AlignLeft, "Delivery Address").down(0.3, headingStyle.Size)
	c = l.text(c, bodyStyle, AlignLeft, fmt.Sprintf("%s (%s)", a.Name, a.AddressType))
	c = l.text(c, bodyStyle, AlignLeft, "Phone: "+a.Phone)
	c = l.text(c, bodyStyle, AlignLeft, fmt.Sprintf("%s, %s, %s - %s", a.StreetAddress, a.City, a.State, a.Pincode))
	return c.down(1, bodyStyle.Size)
}

// tableHeader sets the column titles and the rule below them.
func (l *layout) tableHeader(c Cursor) Cursor {
	h := lineHeight(tableHead.Size)
	if !c.fits(h + 6 + rowHeight) {
		c = c.nextPage()
	}
	l.row(c, tableHead, [4]string{"Product", "Qty", "Price", "Subtotal"})
	c.Y += h + 2
	l.rule(c)
	c.Y += 4
	return c
}

// itemsTable emits one row per item in stored order and accumulates the
// grand total on the way.
func (l *layout) itemsTable(c Cursor) Cursor {
	c = l.text(c, headingStyle, AlignLeft, "Ordered Items").down(0.5, headingStyle.Size)
	c = l.tableHeader(c)
	for _, it := range l.order.Items {
		if !c.fits(rowHeight) {
			c = l.tableHeader(c.nextPage())
		}
		subtotal := it.Subtotal()
		l.total = l.total.Add(subtotal)
		l.row(c, tableRow, [4]string{
			it.Product.Name,
			strconv.FormatInt(it.Quantity, 10),
			l.money(it.Price),
			l.money(subtotal),
		})
		c.Y += rowHeight
	}
	return c
}

func (l *layout) grandTotal(c Cursor) Cursor {
	h := lineHeight(totalStyle.Size)
	if !c.fits(5 + h) {
		c = c.nextPage()
	}
	l.rule(c)
	c.Y += 5
	// right edge of the Subtotal column
	x := columns[1].x
	l.doc.Ops = append(l.doc.Ops, Op{
		Kind: OpText, Page: c.Page, X: x, Y: c.Y, Width: columns[3].x + columns[3].width - x,
		Align: AlignRight, Style: totalStyle, Text: "Total Amount: " + l.money(l.total),
	})
	c.Y += h
	return c
}

func (l *layout) footer(c Cursor) Cursor {
	c = c.down(3, closingStyle.Size)
	for _, line := range l.r.opts.Letterhead.Closing {
		c = l.text(c, closingStyle, AlignCenter, line)
	}
	return c
}

func (l *layout) finalize(c Cursor) Cursor {
	l.doc.Pages = c.Page
	l.doc.Total = l.total
	return c
}
