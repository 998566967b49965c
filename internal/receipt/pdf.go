package receipt

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

func alignStr(a Align) string {
	switch a {
	case AlignCenter:
		return "C"
	case AlignRight:
		return "R"
	default:
		return "L"
	}
}

// failFastWriter remembers the first write error and refuses further
// writes, so a closed stream stops the output immediately.
type failFastWriter struct {
	w   io.Writer
	err error
}

func (fw *failFastWriter) Write(p []byte) (int, error) {
	if fw.err != nil {
		return 0, fw.err
	}
	n, err := fw.w.Write(p)
	if err != nil {
		fw.err = err
	}
	return n, err
}

// Render lays out o and writes it to w as a PDF. Nothing is written when
// layout fails.
func (r *Renderer) Render(w io.Writer, o *domain.ReceiptOrder) error {
	doc, err := r.Layout(o)
	if err != nil {
		return err
	}
	return r.Draw(w, doc)
}

// Draw writes doc to w as a PDF. The whole file is composed before the
// first byte is written. Metadata dates come from the order so the same
// document always produces the same bytes.
func (r *Renderer) Draw(w io.Writer, doc *Document) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: doc.Width, Ht: doc.Height},
	})
	pdf.SetMargins(doc.Margin, doc.Margin, doc.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.CreatedAt)
	pdf.SetModificationDate(doc.CreatedAt)
	pdf.SetTitle("Order "+doc.OrderID+" Receipt", true)
	pdf.SetCreator(r.opts.Letterhead.Organization, true)

	family, encode := r.fonts.register(pdf)
	page := 0
	for _, op := range doc.Ops {
		for page < op.Page {
			pdf.AddPage()
			page++
		}
		switch op.Kind {
		case OpText:
			c := op.Style.Color
			pdf.SetFont(family, fontStyle(op.Style), op.Style.Size)
			pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
			text, err := encode(op.Style, op.Text)
			if err != nil {
				return fmt.Errorf("order %s: %w", doc.OrderID, err)
			}
			pdf.SetXY(op.X, op.Y)
			pdf.CellFormat(op.Width, lineHeight(op.Style.Size), text, "", 0, alignStr(op.Align), false, 0, "")
		case OpRule:
			pdf.SetDrawColor(0, 0, 0)
			pdf.SetLineWidth(1)
			pdf.Line(op.X, op.Y, op.X2, op.Y)
		}
	}
	for page < doc.Pages {
		pdf.AddPage()
		page++
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to compose receipt %s: %w", doc.OrderID, err)
	}

	fw := &failFastWriter{w: w}
	if err := pdf.Output(fw); err != nil {
		if fw.err != nil {
			return fmt.Errorf("%w: order %s: %v", ErrStreamWrite, doc.OrderID, fw.err)
		}
		return fmt.Errorf("failed to write receipt %s: %w", doc.OrderID, err)
	}
	return nil
}
