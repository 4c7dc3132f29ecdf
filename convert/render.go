// render.go composes the message body section: a formatted header
// block, the attachment listing, and the body itself with cid:
// references resolved against attachment payloads, so the rendering
// engine needs no external resources.

package convert

import (
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/msg"
)

// cidRe matches cid: references in HTML bodies. The identifier is
// matched case-insensitively against attachment content IDs.
var cidRe = regexp.MustCompile(`(?i)cid:([^"'\s>)]+)`)

// resolveInlineImages substitutes every cid: reference that matches an
// attachment's content ID with a base64 data URI of the attachment
// bytes. Unmatched references are left untouched; the engine shows a
// broken-image placeholder for them, which is acceptable degraded
// output. The returned set holds the attachments consumed as inline
// images.
func resolveInlineImages(body []byte, atts []*msg.Attachment) ([]byte, map[*msg.Attachment]bool) {
	consumed := make(map[*msg.Attachment]bool)
	if len(body) == 0 {
		return body, consumed
	}

	byCID := make(map[string]*msg.Attachment)
	for _, a := range atts {
		if a.ContentID == "" || len(a.Data) == 0 {
			continue
		}
		key := strings.ToLower(a.ContentID)
		if _, dup := byCID[key]; !dup {
			byCID[key] = a
		}
	}
	if len(byCID) == 0 {
		return body, consumed
	}

	out := cidRe.ReplaceAllFunc(body, func(ref []byte) []byte {
		id := strings.ToLower(string(ref[len("cid:"):]))
		att, ok := byCID[id]
		if !ok {
			return ref
		}
		consumed[att] = true
		uri := "data:" + imageMimeType(att) + ";base64," +
			base64.StdEncoding.EncodeToString(att.Data)
		return []byte(uri)
	})
	return out, consumed
}

// imageMimeType picks the MIME type for an inline image data URI,
// preferring the declared type and falling back to the extension.
func imageMimeType(a *msg.Attachment) string {
	if t := strings.ToLower(strings.TrimSpace(a.MimeType)); strings.HasPrefix(t, "image/") {
		return t
	}
	switch strings.ToLower(ext(a.Filename())) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

const docStyle = `
body { font-family: Helvetica, Arial, sans-serif; font-size: 11pt; color: #1a1a1a; }
.header h1 { font-size: 14pt; margin: 0 0 8px 0; }
.header table { border-collapse: collapse; font-size: 10pt; }
.header td { padding: 1px 10px 1px 0; vertical-align: top; }
.header td.k { color: #555; white-space: nowrap; }
.attachments { font-size: 9pt; color: #333; margin: 10px 0; }
.attachments li { margin: 1px 0; }
hr { border: none; border-top: 1px solid #999; margin: 10px 0; }
pre.plain { font-family: Helvetica, Arial, sans-serif; white-space: pre-wrap; }
`

// composeDocument builds the full HTML document handed to the engine:
// header block, attachment listing, then the authoritative body (HTML
// preferred, plain text otherwise).
func composeDocument(email *msg.Email, resolvedHTML []byte, plan []PlannedAttachment) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString(docStyle)
	b.WriteString("</style></head>\n<body>\n")

	b.WriteString("<div class=\"header\">\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n<table>\n", html.EscapeString(email.DisplaySubject()))
	headerRow(&b, "From:", email.DisplaySender())
	headerRow(&b, "To:", email.DisplayTo())
	headerRow(&b, "Cc:", email.DisplayCc())
	headerRow(&b, "Date:", displayDate(email))
	b.WriteString("</table>\n</div>\n")

	if len(plan) > 0 {
		fmt.Fprintf(&b, "<div class=\"attachments\"><b>Attachments (%d):</b><ul>\n", len(plan))
		for _, p := range plan {
			note := ""
			if p.Attachment.IsEmbeddedMessage() {
				note = " [embedded message]"
			}
			fmt.Fprintf(&b, "<li>%s (%s, %s)%s</li>\n",
				html.EscapeString(p.Attachment.Filename()),
				html.EscapeString(displayType(p.Attachment)),
				humanSize(len(p.Attachment.Data)),
				note)
		}
		b.WriteString("</ul></div>\n")
	}

	b.WriteString("<hr>\n<div class=\"body\">\n")
	if len(resolvedHTML) > 0 {
		b.Write(resolvedHTML)
	} else {
		fmt.Fprintf(&b, "<pre class=\"plain\">%s</pre>", html.EscapeString(email.BodyText))
	}
	b.WriteString("\n</div>\n</body></html>\n")
	return []byte(b.String())
}

func headerRow(b *strings.Builder, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(b, "<tr><td class=\"k\">%s</td><td>%s</td></tr>\n",
		html.EscapeString(key), html.EscapeString(val))
}

// displayDate prefers the sent timestamp over delivery.
func displayDate(email *msg.Email) string {
	t := email.SentAt
	if t.IsZero() {
		t = email.ReceivedAt
	}
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006 at 3:04 PM MST")
}

// displayType returns a printable content type for the listing.
func displayType(a *msg.Attachment) string {
	if a.IsEmbeddedMessage() {
		return "message/rfc822"
	}
	if t := strings.TrimSpace(a.MimeType); t != "" {
		return t
	}
	return "application/octet-stream"
}

// humanSize formats a byte count for the attachment listing.
func humanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ext returns the lowercase filename extension including the dot.
func ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}
