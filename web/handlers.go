package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/adam2504/conversion-msg-to-pdf/convert"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Status   string   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
}

// batchEntry is one line of the report.json included in batch output.
type batchEntry struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Output   string   `json:"output,omitempty"`
	Pages    int      `json:"pages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "msg2pdf",
	})
}

// handleConvert converts a single uploaded .msg and returns the PDF.
func (s *Server) handleConvert(c *fiber.Ctx) error {
	name, data, err := uploadedFile(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: err.Error(), Status: "bad_request",
		})
	}

	pdf, res := s.conv.ConvertData(c.UserContext(), data, name)
	if res.Failed() {
		s.log.Warn().Str("file", name).Err(res.Err).Msg("conversion rejected")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error:    res.Err.Error(),
			Status:   res.Status(),
			Warnings: res.Warnings,
		})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, pdfName(name)))
	c.Set("X-Page-Count", fmt.Sprint(res.Pages))
	return c.Send(pdf)
}

// handleBatch converts every uploaded file and returns a zip archive
// holding the PDFs plus a report.json. Per-file failures appear in the
// report without failing the request.
func (s *Server) handleBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "multipart form required", Status: "bad_request",
		})
	}
	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	ctx := c.UserContext()
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "no files uploaded", Status: "bad_request",
		})
	}

	type outcome struct {
		entry batchEntry
		pdf   []byte
	}
	outcomes := make([]outcome, len(files))

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			data, err := readUpload(fh)
			if err != nil {
				outcomes[i].entry = batchEntry{
					Name: fh.Filename, Status: "bad_request", Error: err.Error(),
				}
				return nil
			}
			pdf, res := s.conv.ConvertData(ctx, data, fh.Filename)
			entry := batchEntry{
				Name:     fh.Filename,
				Status:   res.Status(),
				Warnings: res.Warnings,
			}
			if res.Failed() {
				entry.Error = res.Err.Error()
			} else {
				entry.Output = pdfName(fh.Filename)
				entry.Pages = res.Pages
				outcomes[i].pdf = pdf
			}
			outcomes[i].entry = entry
			return nil
		})
	}
	g.Wait()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)
	entries := make([]batchEntry, 0, len(outcomes))
	for _, o := range outcomes {
		entries = append(entries, o.entry)
		if o.pdf == nil {
			continue
		}
		w, err := zw.Create(uniqueName(used, o.entry.Output))
		if err == nil {
			_, err = w.Write(o.pdf)
		}
		if err != nil {
			zw.Close()
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
				Error: "archive write failed", Status: "internal",
			})
		}
	}

	report, _ := json.MarshalIndent(entries, "", "  ")
	if w, err := zw.Create("report.json"); err == nil {
		w.Write(report)
	}
	if err := zw.Close(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "archive write failed", Status: "internal",
		})
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="converted.zip"`)
	return c.Send(buf.Bytes())
}

// handleInspect returns the message summary and attachment plan
// without rendering anything.
func (s *Server) handleInspect(c *fiber.Ctx) error {
	name, data, err := uploadedFile(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: err.Error(), Status: "bad_request",
		})
	}

	insp, err := convert.Inspect(data)
	if err != nil {
		s.log.Warn().Str("file", name).Err(err).Msg("inspect rejected")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error: err.Error(), Status: convert.KindOf(err).String(),
		})
	}
	return c.JSON(insp)
}

// uploadedFile extracts the single uploaded file from the request.
func uploadedFile(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("upload a .msg file in the %q form field", "file")
	}
	data, err := readUpload(fh)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// pdfName swaps the uploaded name's extension for .pdf, sanitized.
func pdfName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return convert.SanitizeFilename(name) + ".pdf"
}

// uniqueName suffixes duplicate archive member names.
func uniqueName(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	base := strings.TrimSuffix(name, ".pdf")
	return fmt.Sprintf("%s-%d.pdf", base, n)
}
