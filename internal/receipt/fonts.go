package receipt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/sfnt"
)

//go:embed fonts/*.ttf
var embeddedFonts embed.FS

const (
	coreFamily = "Helvetica"
	ttfFamily  = "DejaVuSans"
)

// face files for the regular, bold and italic styles, first embedded and
// then as looked up in Options.FontDir.
var faceFiles = []struct {
	style    string
	embedded string
	file     string
}{
	{"", "fonts/DejaVuSansCondensed.ttf", "DejaVuSans.ttf"},
	{"B", "fonts/DejaVuSansCondensed-Bold.ttf", "DejaVuSans-Bold.ttf"},
	{"I", "fonts/DejaVuSansCondensed-Oblique.ttf", "DejaVuSans-Oblique.ttf"},
}

type fontFace struct {
	style  string
	data   []byte
	glyphs *sfnt.Font
}

// fontSet is the set of faces a receipt is drawn with. Text is checked
// against the face before it is set, so characters the face has no
// glyph for fail the draw instead of printing as boxes or dots.
type fontSet struct {
	core  bool
	faces map[string]fontFace
}

func newFontSet(dir string, core bool) (*fontSet, error) {
	if core {
		return &fontSet{core: true}, nil
	}
	fs := &fontSet{faces: make(map[string]fontFace, len(faceFiles))}
	for _, f := range faceFiles {
		var (
			data []byte
			err  error
		)
		if dir == "" {
			data, err = embeddedFonts.ReadFile(f.embedded)
		} else {
			data, err = os.ReadFile(filepath.Join(dir, f.file))
		}
		if err != nil {
			return nil, fmt.Errorf("receipt font %s: %w", f.file, err)
		}
		glyphs, err := sfnt.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("receipt font %s: %w", f.file, err)
		}
		fs.faces[f.style] = fontFace{style: f.style, data: data, glyphs: glyphs}
	}
	return fs, nil
}

// encoder turns a line of text into what fpdf should be given for the
// style it is set in.
type encoder func(st Style, s string) (string, error)

func (fs *fontSet) register(pdf *fpdf.Fpdf) (string, encoder) {
	if fs.core {
		return coreFamily, coreEncoder(pdf.UnicodeTranslatorFromDescriptor(""))
	}
	for _, ff := range faceFiles {
		face := fs.faces[ff.style]
		// fpdf subsets straight out of the slice it is given; each document gets its own.
		pdf.AddUTF8FontFromBytes(ttfFamily, face.style, bytes.Clone(face.data))
	}
	return ttfFamily, fs.encodeTTF
}

func (fs *fontSet) encodeTTF(st Style, s string) (string, error) {
	face := fs.faces[faceStyle(st)]
	var buf sfnt.Buffer
	for _, r := range s {
		gi, err := face.glyphs.GlyphIndex(&buf, r)
		if err != nil {
			return "", fmt.Errorf("receipt font lookup %q: %w", r, err)
		}
		if gi == 0 {
			return "", fmt.Errorf("%w: %q has no glyph for %q", ErrUnsupportedText, s, r)
		}
	}
	return s, nil
}

// coreEncoder maps text to cp1252 for the PDF core fonts. The rupee sign
// is spelled out; anything else outside the code page is an error.
func coreEncoder(tr func(string) string) encoder {
	return func(_ Style, s string) (string, error) {
		s = strings.ReplaceAll(s, "₹", "Rs.")
		for _, r := range s {
			if r >= 0x80 && tr(string(r)) == "." {
				return "", fmt.Errorf("%w: %q has no cp1252 form for %q", ErrUnsupportedText, s, r)
			}
		}
		return tr(s), nil
	}
}

func fontStyle(st Style) string {
	s := faceStyle(st)
	if st.Underline {
		s += "U"
	}
	return s
}

func faceStyle(st Style) string {
	switch st.Font {
	case Bold:
		return "B"
	case Italic:
		return "I"
	default:
		return ""
	}
}
