// plan.go decides what happens to each attachment that was not
// consumed as an inline image: PDFs merge as-is, decodable raster
// images become single-page PDF fragments, and everything else is
// listed in the body by name only.

package convert

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg"
)

// Disposition is the planned fate of one attachment.
type Disposition int

const (
	// ListOnly records the attachment in the body listing without
	// producing a PDF fragment.
	ListOnly Disposition = iota
	// MergeAsPDF appends the attachment bytes as ready-made PDF pages.
	MergeAsPDF
	// ConvertToPDF renders a raster image onto a single PDF page.
	ConvertToPDF
)

func (d Disposition) String() string {
	switch d {
	case MergeAsPDF:
		return "merge_as_pdf"
	case ConvertToPDF:
		return "convert_to_pdf"
	default:
		return "list_only"
	}
}

// PlannedAttachment pairs an attachment with its disposition. Format
// carries the probed image format for ConvertToPDF entries.
type PlannedAttachment struct {
	Attachment  *msg.Attachment
	Disposition Disposition
	Format      string
}

// planAttachments classifies every attachment in input order. A
// declared MIME type decides first; application/octet-stream and empty
// types defer to the filename extension. Candidate images are probed
// with image.DecodeConfig so undecodable payloads downgrade to
// ListOnly before the body listing is rendered. The returned warnings
// describe each downgrade.
func planAttachments(atts []*msg.Attachment) ([]PlannedAttachment, []string) {
	plan := make([]PlannedAttachment, 0, len(atts))
	var warnings []string

	for _, a := range atts {
		p := PlannedAttachment{Attachment: a, Disposition: classify(a)}
		switch p.Disposition {
		case MergeAsPDF:
			if err := api.Validate(bytes.NewReader(a.Data), pdfConfig()); err != nil {
				warnings = append(warnings,
					fmt.Sprintf("attachment %q is not a well-formed PDF (%v), listing only", a.Filename(), err))
				p.Disposition = ListOnly
			}
		case ConvertToPDF:
			format, err := probeImage(a.Data)
			if err != nil {
				warnings = append(warnings,
					fmt.Sprintf("attachment %q is not a decodable image (%v), listing only", a.Filename(), err))
				p.Disposition = ListOnly
			} else {
				p.Format = format
			}
		}
		plan = append(plan, p)
	}
	return plan, warnings
}

// classify picks the disposition from declared type and extension.
func classify(a *msg.Attachment) Disposition {
	if a.IsEmbeddedMessage() || len(a.Data) == 0 {
		return ListOnly
	}
	// OLE attachments wrap their payload in an OLE storage, not a
	// usable file format.
	if a.Method == msg.AttachOLE {
		return ListOnly
	}

	mime := strings.ToLower(strings.TrimSpace(a.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "application/pdf":
		return MergeAsPDF
	case strings.HasPrefix(mime, "image/"):
		if mime == "image/svg+xml" {
			return ListOnly
		}
		return ConvertToPDF
	case mime != "" && mime != "application/octet-stream":
		return ListOnly
	}

	e := ext(a.Filename())
	if e == "" && a.Extension != "" {
		// PR_ATTACH_EXTENSION covers attachments whose display name
		// carries no extension.
		e = strings.ToLower(a.Extension)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
	}
	switch e {
	case ".pdf":
		return MergeAsPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return ConvertToPDF
	default:
		return ListOnly
	}
}

// probeImage checks that the payload decodes with a registered codec
// without decoding full pixel data.
func probeImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}
