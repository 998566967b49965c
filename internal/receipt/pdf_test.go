package receipt

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujjwalpatil07/MilkProductsDairy/internal/domain"
)

type brokenWriter struct{ calls int }

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("connection reset by peer")
}

var streamRe = regexp.MustCompile(`(?s)\nstream\n(.*?)\nendstream`)

// pageContent inflates every compressed stream of a PDF produced by Draw.
func pageContent(t *testing.T, pdf []byte) []byte {
	t.Helper()
	var out []byte
	for _, m := range streamRe.FindAllSubmatch(pdf, -1) {
		zr, err := zlib.NewReader(bytes.NewReader(m[1]))
		if err != nil {
			continue
		}
		data, err := io.ReadAll(zr)
		if err != nil {
			continue
		}
		out = append(out, data...)
	}
	require.NotEmpty(t, out)
	return out
}

// utf16be is how text set in an embedded font appears in a content stream.
func utf16be(s string) []byte {
	var b []byte
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u>>8), byte(u))
	}
	return b
}

func TestRender_WritesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestRenderer(t).Render(&buf, sampleOrder()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestRender_Deterministic(t *testing.T) {
	r := newTestRenderer(t)
	o := sampleOrder()
	o.PaymentMode = domain.PaymentModeOnline
	o.Gateway = &domain.GatewayRef{PaymentID: "pay_1", OrderID: "order_1"}

	var first, second bytes.Buffer
	require.NoError(t, r.Render(&first, o))
	require.NoError(t, r.Render(&second, o))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestRender_MultiPage(t *testing.T) {
	o := sampleOrder()
	o.Items = nil
	for i := 0; i < 80; i++ {
		o.Items = append(o.Items, item("p", "Ghee 500ml", "310", 1))
	}

	var buf bytes.Buffer
	require.NoError(t, newTestRenderer(t).Render(&buf, o))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRender_EmbeddedFontPrintsRupee(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestRenderer(t).Render(&buf, sampleOrder()))

	content := pageContent(t, buf.Bytes())
	assert.True(t, bytes.Contains(content, utf16be("Total Amount: ₹155.50")))
	assert.True(t, bytes.Contains(content, utf16be("₹35.50")))
	assert.False(t, bytes.Contains(content, utf16be("Rs.")))
}

func TestRender_UnsupportedTextFails(t *testing.T) {
	o := sampleOrder()
	o.Items[0].Product.Name = "दूध 1L"

	var buf bytes.Buffer
	err := newTestRenderer(t).Render(&buf, o)
	assert.ErrorIs(t, err, ErrUnsupportedText)
	assert.Zero(t, buf.Len())
}

func TestRender_CoreFonts(t *testing.T) {
	r, err := NewRenderer(Options{CoreFonts: true})
	require.NoError(t, err)

	o := sampleOrder()
	o.Items[1].Product.Name = "Crème fraîche"
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, o))
	content := pageContent(t, buf.Bytes())
	assert.Contains(t, string(content), "(Total Amount: Rs.155.50)")
	assert.True(t, bytes.Contains(content, []byte("(Cr\xe8me fra\xeeche)")))
	assert.Contains(t, string(content), "(Rs.35.50)")

	o.Items[0].Product.Name = "दूध 1L"
	buf.Reset()
	err = r.Render(&buf, o)
	assert.ErrorIs(t, err, ErrUnsupportedText)
	assert.Zero(t, buf.Len())
}

func TestRender_FontDirOverride(t *testing.T) {
	dir := t.TempDir()
	for _, f := range faceFiles {
		data, err := embeddedFonts.ReadFile(f.embedded)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.file), data, 0o644))
	}
	r, err := NewRenderer(Options{FontDir: dir})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleOrder()))
	assert.True(t, bytes.Contains(pageContent(t, buf.Bytes()), utf16be("Total Amount: ₹155.50")))
}

func TestRender_IncompleteWritesNothing(t *testing.T) {
	o := sampleOrder()
	o.Items[0].Product = nil

	var buf bytes.Buffer
	err := newTestRenderer(t).Render(&buf, o)
	assert.ErrorIs(t, err, ErrRenderDataIncomplete)
	assert.Zero(t, buf.Len())
}

func TestDraw_StreamFailure(t *testing.T) {
	r := newTestRenderer(t)
	doc, err := r.Layout(sampleOrder())
	require.NoError(t, err)

	w := &brokenWriter{}
	err = r.Draw(w, doc)
	assert.ErrorIs(t, err, ErrStreamWrite)
	assert.Equal(t, 1, w.calls)
}

func TestFailFastWriter(t *testing.T) {
	w := &brokenWriter{}
	fw := &failFastWriter{w: w}

	_, err := fw.Write([]byte("a"))
	assert.Error(t, err)
	_, err = fw.Write([]byte("b"))
	assert.Error(t, err)
	assert.Equal(t, 1, w.calls)
}

func TestFontStyle(t *testing.T) {
	assert.Equal(t, "", fontStyle(bodyStyle))
	assert.Equal(t, "B", fontStyle(totalStyle))
	assert.Equal(t, "BU", fontStyle(headingStyle))
	assert.Equal(t, "I", fontStyle(closingStyle))
}
