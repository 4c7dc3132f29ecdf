// Package convert turns Outlook .msg files into standalone PDF
// documents: the message header and body render as the leading pages,
// inline images are embedded, and PDF or image attachments are
// appended as additional pages.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg"
)

// Options configures a Converter. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// OutputDir receives the generated PDFs. Empty means next to the
	// source file.
	OutputDir string
	// MergeAttachments appends PDF and image attachments as pages.
	// When false, attachments only appear in the body listing.
	MergeAttachments bool
	// ShowSourceBanner prepends a page naming the source file.
	ShowSourceBanner bool
	// InlineRemoteImages fetches http(s) images referenced by the
	// body. Off by default; conversion is offline unless asked.
	InlineRemoteImages bool
	// Engine overrides the HTML-to-PDF engine. Nil picks the default.
	Engine Engine
	// Logger receives per-stage diagnostics.
	Logger zerolog.Logger
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		MergeAttachments: true,
		ShowSourceBanner: true,
		Logger:           zerolog.Nop(),
	}
}

// Converter runs the msg-to-pdf pipeline. It is safe for concurrent
// use by multiple goroutines.
type Converter struct {
	opts    Options
	engine  Engine
	inliner *ImageInliner
	log     zerolog.Logger
}

// New builds a Converter from opts.
func New(opts Options) *Converter {
	c := &Converter{opts: opts, engine: opts.Engine, log: opts.Logger}
	if c.engine == nil {
		c.engine = DefaultEngine()
	}
	if opts.InlineRemoteImages {
		c.inliner = NewImageInliner()
	}
	return c
}

// Result describes the outcome of converting one source file.
type Result struct {
	Source   string        `json:"source"`
	Output   string        `json:"output,omitempty"`
	Pages    int           `json:"pages,omitempty"`
	Size     int64         `json:"size,omitempty"`
	Duration time.Duration `json:"-"`
	Warnings []string      `json:"warnings,omitempty"`
	Err      error         `json:"-"`
}

// Failed reports whether the conversion ended in a terminal error.
func (r *Result) Failed() bool { return r.Err != nil }

// Status returns the stable outcome name for reports.
func (r *Result) Status() string {
	if r.Err == nil {
		return "ok"
	}
	return KindOf(r.Err).String()
}

// Convert reads the .msg file at path, converts it, and writes the
// PDF next to it (or into OutputDir). The output name is the source
// base name with the extension swapped to .pdf.
func (c *Converter) Convert(ctx context.Context, path string) *Result {
	start := time.Now()
	res := &Result{Source: path}
	defer func() { res.Duration = time.Since(start) }()

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = failf(MalformedContainer, "read %s: %v", path, err)
		return res
	}

	pdf, pages, warnings, err := c.run(ctx, data, filepath.Base(path))
	res.Warnings = warnings
	if err != nil {
		res.Err = err
		return res
	}

	out := c.outputPath(path)
	if err := writeFileAtomic(out, pdf); err != nil {
		res.Err = failf(WriteFailed, "write %s: %v", out, err)
		return res
	}

	res.Output = out
	res.Pages = pages
	res.Size = int64(len(pdf))
	c.log.Debug().Str("source", path).Str("output", out).
		Int("pages", pages).Dur("took", res.Duration).Msg("converted")
	return res
}

// ConvertData converts in-memory .msg bytes and returns the PDF.
// sourceName is used for the banner page and diagnostics only.
func (c *Converter) ConvertData(ctx context.Context, data []byte, sourceName string) ([]byte, *Result) {
	start := time.Now()
	res := &Result{Source: sourceName}

	pdf, pages, warnings, err := c.run(ctx, data, sourceName)
	res.Duration = time.Since(start)
	res.Warnings = warnings
	if err != nil {
		res.Err = err
		return nil, res
	}
	res.Pages = pages
	res.Size = int64(len(pdf))
	return pdf, res
}

// run is the conversion pipeline shared by file and in-memory entry
// points.
func (c *Converter) run(ctx context.Context, data []byte, sourceName string) (pdf []byte, pages int, warnings []string, err error) {
	if err := cancelErr(ctx); err != nil {
		return nil, 0, nil, err
	}

	email, err := msg.Decode(data)
	if err != nil {
		if errors.Is(err, msg.ErrNestingTooDeep) {
			return nil, 0, nil, failf(AttachmentTooDeep, "%s: %v", sourceName, err)
		}
		return nil, 0, nil, failf(MalformedContainer, "%s: %v", sourceName, err)
	}

	body := email.BodyHTML
	if c.inliner != nil && len(body) > 0 {
		body = c.inliner.Inline(ctx, body)
	}
	resolved, consumed := resolveInlineImages(body, email.Attachments)

	remaining := make([]*msg.Attachment, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		if !consumed[a] {
			remaining = append(remaining, a)
		}
	}

	plan, warnings := planAttachments(remaining)
	if !c.opts.MergeAttachments {
		for i := range plan {
			plan[i].Disposition = ListOnly
		}
	}

	if err := cancelErr(ctx); err != nil {
		return nil, 0, warnings, err
	}

	doc := composeDocument(email, resolved, plan)
	bodyPDF, err := c.engine.Render(ctx, doc)
	if err != nil {
		if cerr := cancelErr(ctx); cerr != nil {
			return nil, 0, warnings, cerr
		}
		return nil, 0, warnings, failf(RenderingFailed, "%s engine: %v", c.engine.Name(), err)
	}

	var frags []fragment
	for _, p := range plan {
		if err := cancelErr(ctx); err != nil {
			return nil, 0, warnings, err
		}
		name := p.Attachment.Filename()
		switch p.Disposition {
		case MergeAsPDF:
			frags = append(frags, fragment{name: name, data: p.Attachment.Data})
		case ConvertToPDF:
			page, err := imageToPDF(p.Attachment.Data, p.Format)
			if err != nil {
				warnings = append(warnings,
					fmt.Sprintf("attachment %q could not be converted (%v), listed only", name, err))
				c.log.Warn().Str("source", sourceName).Str("attachment", name).
					Err(err).Msg("attachment conversion failed")
				continue
			}
			frags = append(frags, fragment{name: name, data: page})
		}
	}

	var banner []byte
	if c.opts.ShowSourceBanner {
		banner, err = bannerPDF(sourceName, email.DisplaySubject())
		if err != nil {
			return nil, 0, warnings, failf(AssemblyFailed, "banner: %v", err)
		}
	}

	merged, pages, err := assemble(banner, bodyPDF, frags)
	if err != nil {
		return nil, 0, warnings, err
	}
	return merged, pages, warnings, nil
}

// cancelErr maps a context cancellation to the tagged failure.
func cancelErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return failf(Cancelled, "conversion cancelled: %v", err)
	}
	return nil
}

// outputPath derives the destination path: source base name with the
// extension swapped to .pdf, sanitized, in OutputDir or next to the
// source.
func (c *Converter) outputPath(source string) string {
	base := filepath.Base(source)
	if e := ext(base); e != "" {
		base = base[:len(base)-len(e)]
	}
	base = SanitizeFilename(base) + ".pdf"

	dir := c.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, base)
}

// writeFileAtomic writes data to a temp file in the destination
// directory and renames it into place, so readers never observe a
// partial PDF.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".msg2pdf-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// SanitizeFilename strips path separators and control characters from
// a user-supplied name so it is safe to create in the output
// directory.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteByte('_')
		case r < 0x20 || r == 0x7F:
			// drop
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "unnamed"
	}
	return out
}

// Inspection is the read-only view of a message produced without
// rendering anything.
type Inspection struct {
	Class       string           `json:"message_class,omitempty"`
	Subject     string           `json:"subject"`
	Sender      string           `json:"sender"`
	SenderEmail string           `json:"sender_email,omitempty"`
	To          string           `json:"to,omitempty"`
	Cc          string           `json:"cc,omitempty"`
	Date        string           `json:"date,omitempty"`
	HasHTMLBody bool             `json:"has_html_body"`
	BodyChars   int              `json:"body_chars"`
	Attachments []AttachmentInfo `json:"attachments"`
}

// AttachmentInfo summarises one attachment and its planned fate.
type AttachmentInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int    `json:"size"`
	Disposition string `json:"disposition"`
	Embedded    bool   `json:"embedded,omitempty"`
}

// Inspect decodes .msg bytes and reports the header fields and the
// attachment plan without producing a PDF.
func Inspect(data []byte) (*Inspection, error) {
	email, err := msg.Decode(data)
	if err != nil {
		if errors.Is(err, msg.ErrNestingTooDeep) {
			return nil, failf(AttachmentTooDeep, "%v", err)
		}
		return nil, failf(MalformedContainer, "%v", err)
	}

	body := email.BodyText
	if len(email.BodyHTML) > 0 {
		body = string(bytes.TrimSpace(email.BodyHTML))
	}

	insp := &Inspection{
		Class:       email.Class,
		Subject:     email.DisplaySubject(),
		Sender:      email.DisplaySender(),
		SenderEmail: email.SenderEmail,
		To:          email.DisplayTo(),
		Cc:          email.DisplayCc(),
		Date:        displayDate(email),
		HasHTMLBody: len(email.BodyHTML) > 0,
		BodyChars:   len(body),
	}

	plan, _ := planAttachments(email.Attachments)
	for _, p := range plan {
		insp.Attachments = append(insp.Attachments, AttachmentInfo{
			Name:        p.Attachment.Filename(),
			Type:        displayType(p.Attachment),
			Size:        len(p.Attachment.Data),
			Disposition: p.Disposition.String(),
			Embedded:    p.Attachment.IsEmbeddedMessage(),
		})
	}
	return insp, nil
}
