// image.go renders a raster attachment onto a single A4 PDF page,
// scaled to fit inside the margins with aspect ratio preserved.
// Formats the PDF writer cannot embed directly are transcoded to PNG
// first.

package convert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
	pageMarginMM = 10.0
)

// imageToPDF converts one decodable raster image into a one-page PDF.
// format is the name reported by image.DecodeConfig.
func imageToPDF(data []byte, format string) ([]byte, error) {
	switch format {
	case "png", "jpeg", "gif":
		// Embedded natively.
	default:
		// bmp, tiff, webp and friends go through a PNG transcode.
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s image: %w", format, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("transcode %s to png: %w", format, err)
		}
		data = buf.Bytes()
		format = "png"
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: format, ReadDpi: true}
	info := doc.RegisterImageOptionsReader("attachment", opts, bytes.NewReader(data))
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("register image: %w", err)
	}

	w, h := info.Extent()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no extent")
	}

	maxW := pageWidthMM - 2*pageMarginMM
	maxH := pageHeightMM - 2*pageMarginMM
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	w *= scale
	h *= scale

	// Center on the page.
	x := (pageWidthMM - w) / 2
	y := (pageHeightMM - h) / 2
	doc.ImageOptions("attachment", x, y, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("write image page: %w", err)
	}
	return out.Bytes(), nil
}
