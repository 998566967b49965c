package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Page geometry in points (US Letter).
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	pageMargin = 50.0

	contentWidth = pageWidth - 2*pageMargin
)

type FontStyle int

const (
	Regular FontStyle = iota
	Bold
	Italic
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type Color struct{ R, G, B uint8 }

var (
	black    = Color{0, 0, 0}
	charcoal = Color{0x33, 0x33, 0x33}
	gray     = Color{0x80, 0x80, 0x80}
)

type Style struct {
	Font      FontStyle
	Size      float64
	Color     Color
	Underline bool
}

// lineHeight is the vertical advance of one line set in a font of size pt.
func lineHeight(size float64) float64 { return size * 1.2 }

type OpKind int

const (
	OpText OpKind = iota
	OpRule
)

// Op is one drawing instruction at an absolute position on a page.
// Text ops occupy [X, X+Width) and align within it; rules run from X to X2.
type Op struct {
	Kind  OpKind
	Page  int
	X     float64
	Y     float64
	Width float64
	X2    float64
	Align Align
	Style Style
	Text  string
}

// Document is a laid-out receipt, ready to be drawn.
type Document struct {
	OrderID   string
	CreatedAt time.Time
	Width     float64
	Height    float64
	Margin    float64
	Pages     int
	Ops       []Op
	Total     decimal.Decimal
}

// Lines returns the text of every text op in drawing order.
func (d *Document) Lines() []string {
	out := make([]string, 0, len(d.Ops))
	for _, op := range d.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// FileName is the suggested download name of the receipt.
func (d *Document) FileName() string { return FileName(d.OrderID) }

func FileName(orderID string) string { return "Order_" + orderID + "_Receipt.pdf" }

// Cursor is the layout position: the page being filled and the Y offset
// of the next line on it.
type Cursor struct {
	Page int
	Y    float64
}

func (c Cursor) down(lines, size float64) Cursor {
	c.Y += lines * lineHeight(size)
	return c
}

// fits reports whether h more points fit above the bottom margin.
func (c Cursor) fits(h float64) bool { return c.Y+h <= pageHeight-pageMargin }

func (c Cursor) nextPage() Cursor { return Cursor{Page: c.Page + 1, Y: pageMargin} }
