// assemble.go stitches the rendered body and the attachment fragments
// into the final document. The planner already validated every
// fragment source, so an invalid fragment here is an internal contract
// violation, not a per-attachment problem.

package convert

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	pdfConfOnce sync.Once
	pdfConf     *model.Configuration
)

// pdfConfig returns the shared pdfcpu configuration. The on-disk
// config dir is disabled so conversion never writes outside the
// output directory.
func pdfConfig() *model.Configuration {
	pdfConfOnce.Do(func() {
		model.ConfigPath = "disable"
		pdfConf = model.NewDefaultConfiguration()
		pdfConf.ValidationMode = model.ValidationRelaxed
	})
	return pdfConf
}

// fragment is one attachment-derived PDF queued for merging.
type fragment struct {
	name string
	data []byte
}

// assemble merges banner (optional), body, and fragments in order and
// returns the final PDF with its page count.
func assemble(banner, body []byte, frags []fragment) ([]byte, int, error) {
	conf := pdfConfig()

	if err := api.Validate(bytes.NewReader(body), conf); err != nil {
		return nil, 0, failf(AssemblyFailed, "body render produced invalid pdf: %v", err)
	}

	parts := make([]io.ReadSeeker, 0, len(frags)+2)
	if len(banner) > 0 {
		parts = append(parts, bytes.NewReader(banner))
	}
	parts = append(parts, bytes.NewReader(body))

	for _, f := range frags {
		if err := api.Validate(bytes.NewReader(f.data), conf); err != nil {
			return nil, 0, failf(AssemblyFailed, "fragment for %q is not a well-formed pdf: %v", f.name, err)
		}
		parts = append(parts, bytes.NewReader(f.data))
	}

	var merged bytes.Buffer
	if len(parts) == 1 {
		// Nothing to merge with; pdfcpu refuses single-input merges.
		if _, err := parts[0].Seek(0, io.SeekStart); err != nil {
			return nil, 0, failf(AssemblyFailed, "rewind body: %v", err)
		}
		if _, err := io.Copy(&merged, parts[0]); err != nil {
			return nil, 0, failf(AssemblyFailed, "copy body: %v", err)
		}
	} else {
		if err := api.MergeRaw(parts, &merged, false, conf); err != nil {
			return nil, 0, failf(AssemblyFailed, "merge document: %v", err)
		}
	}

	pages, err := api.PageCount(bytes.NewReader(merged.Bytes()), conf)
	if err != nil {
		return nil, 0, failf(AssemblyFailed, "count pages: %v", err)
	}
	return merged.Bytes(), pages, nil
}

// bannerPDF renders the leading source banner page. It deliberately
// carries no timestamps so repeated conversions of the same input are
// byte-stable.
func bannerPDF(sourceName, subject string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMarginMM, pageMarginMM, pageMarginMM)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr("Converted Email"), "", 1, "L", false, 0, "")
	doc.Ln(4)
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 7, tr("Source file: "+sourceName), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 7, tr("Subject: "+subject), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("write banner page: %w", err)
	}
	return out.Bytes(), nil
}
