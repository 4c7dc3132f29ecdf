// engine.go binds the external HTML-to-PDF rendering capability. The
// preferred engine shells out to wkhtmltopdf found on the system; when
// no binary is installed, a pure-Go engine renders the extracted text
// so conversion still produces a readable PDF.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
)

// Engine renders one self-contained HTML document into PDF bytes.
// Implementations must not require network or local file access: all
// images arrive as data URIs.
type Engine interface {
	Name() string
	Render(ctx context.Context, doc []byte) ([]byte, error)
}

// DefaultEngine returns the wkhtmltopdf engine when the binary is
// installed, falling back to the built-in text engine.
func DefaultEngine() Engine {
	if path, ok := findBinary("wkhtmltopdf"); ok {
		return &wkhtmlEngine{path: path}
	}
	return TextEngine{}
}

// wkhtmlEngine pipes HTML through the wkhtmltopdf binary.
type wkhtmlEngine struct {
	path string
}

func (e *wkhtmlEngine) Name() string { return "wkhtmltopdf" }

func (e *wkhtmlEngine) Render(ctx context.Context, doc []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.path,
		"--quiet",
		"--encoding", "utf-8",
		"--disable-local-file-access",
		"-", "-")
	cmd.Stdin = bytes.NewReader(doc)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	out := stdout.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		return nil, fmt.Errorf("wkhtmltopdf produced no PDF output")
	}
	return out, nil
}

// TextEngine renders the document's visible text with a core PDF font.
// It ignores images and layout but always yields at least one page.
type TextEngine struct{}

func (TextEngine) Name() string { return "builtin-text" }

func (TextEngine) Render(ctx context.Context, doc []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := extractText(doc)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range strings.Split(text, "\n") {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("text engine: %w", err)
	}
	return buf.Bytes(), nil
}

// blockTags force a line break in text extraction.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true,
	"table": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "blockquote": true, "pre": true, "hr": true,
}

// extractText flattens an HTML document into plain text, one line per
// block element. A parse failure degrades to the raw bytes rather than
// failing the render.
func extractText(doc []byte) string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return string(doc)
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "title":
				return
			}
			if blockTags[n.Data] {
				sb.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// findBinary locates an executable on the system PATH, then in the
// well-known install directories for the current OS.
func findBinary(name string) (string, bool) {
	if runtime.GOOS == "windows" && filepath.Ext(name) != ".exe" {
		name += ".exe"
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, true
	}
	for _, dir := range defaultBinaryDirs() {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// defaultBinaryDirs lists common install locations per OS.
func defaultBinaryDirs() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"/usr/bin", "/usr/local/bin", "/snap/bin"}
	case "darwin":
		// Homebrew on Apple Silicon, Intel Macs, then MacPorts.
		return []string{"/opt/homebrew/bin", "/usr/local/bin", "/opt/local/bin"}
	case "windows":
		pf := os.Getenv("ProgramFiles")
		if pf == "" {
			pf = `C:\Program Files`
		}
		return []string{filepath.Join(pf, "wkhtmltopdf", "bin")}
	default:
		return nil
	}
}
