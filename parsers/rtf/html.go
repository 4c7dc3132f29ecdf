// html.go recovers original HTML from RTF produced by Outlook's
// \fromhtml1 encapsulation. The markup survives inside {\*\htmltag}
// groups; visible text sits between them; \htmlrtf...\htmlrtf0 regions
// are Outlook-added RTF formatting and carry no HTML content.

package rtf

import (
	"bytes"
	"strings"
)

// ExtractHTML returns the HTML embedded in an encapsulated RTF stream,
// or nil when the stream is not \fromhtml1 encapsulated (plain RTF
// bodies have no HTML to recover).
func ExtractHTML(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\fromhtml`)) {
		return nil
	}
	x := extractor{src: data}
	x.run()
	html := strings.TrimSpace(x.out.String())
	if html == "" {
		return nil
	}
	return []byte(html)
}

type extractor struct {
	src     []byte
	pos     int
	out     bytes.Buffer
	inRTF   bool // inside \htmlrtf ... \htmlrtf0
	started bool // past the RTF preamble (first \*\htmltag seen)
}

func (x *extractor) run() {
	x.out.Grow(len(x.src))
	for x.pos < len(x.src) {
		switch {
		case x.atHTMLTag():
			x.emitHTMLTag()
		case x.atControl(`\htmlrtf0`):
			x.inRTF = false
			x.skipControlTail(9)
		case x.atControl(`\htmlrtf`):
			x.inRTF = true
			x.skipControlTail(8)
		case x.inRTF:
			if x.src[x.pos] == '\\' {
				x.pos = skipControlWord(x.src, x.pos)
			} else {
				x.pos++
			}
		case x.src[x.pos] == '{' || x.src[x.pos] == '}' ||
			x.src[x.pos] == '\r' || x.src[x.pos] == '\n':
			x.pos++
		case x.src[x.pos] == '\\':
			x.emitEscape()
		default:
			if x.started {
				x.out.WriteByte(x.src[x.pos])
			}
			x.pos++
		}
	}
}

// atHTMLTag reports whether the cursor sits on a {\*\htmltag group.
func (x *extractor) atHTMLTag() bool {
	return bytes.HasPrefix(x.src[x.pos:], []byte(`{\*\htmltag`))
}

// atControl reports whether the cursor sits on the exact control word
// (not a longer word sharing the prefix).
func (x *extractor) atControl(word string) bool {
	if !bytes.HasPrefix(x.src[x.pos:], []byte(word)) {
		return false
	}
	rest := x.src[x.pos+len(word):]
	return len(rest) == 0 || !isAlpha(rest[0])
}

// skipControlTail advances past a control word of n bytes plus its
// optional numeric parameter and delimiter space.
func (x *extractor) skipControlTail(n int) {
	i := x.pos + n
	for i < len(x.src) && x.src[i] >= '0' && x.src[i] <= '9' {
		i++
	}
	if i < len(x.src) && x.src[i] == ' ' {
		i++
	}
	x.pos = i
}

// emitHTMLTag decodes one {\*\htmltag<N> ...} group into the output.
func (x *extractor) emitHTMLTag() {
	j := x.pos + len(`{\*\htmltag`)
	for j < len(x.src) && x.src[j] >= '0' && x.src[j] <= '9' {
		j++
	}
	if j < len(x.src) && x.src[j] == ' ' {
		j++
	}
	content := groupContent(x.src, j)
	x.out.WriteString(decodeFragment(content))
	x.pos = skipGroup(x.src, x.pos)
	x.started = true
}

// emitEscape handles a control word or symbol in visible-content
// position.
func (x *extractor) emitEscape() {
	src, n := x.src, len(x.src)
	if x.pos+1 >= n {
		x.pos++
		return
	}
	if !x.started {
		// RTF preamble before any htmltag: formatting only.
		x.pos = skipControlWord(src, x.pos)
		return
	}
	switch src[x.pos+1] {
	case '\\', '{', '}':
		x.out.WriteByte(src[x.pos+1])
		x.pos += 2
	case '~':
		x.out.WriteString("&nbsp;")
		x.pos += 2
	case '_':
		x.out.WriteString("&#8209;")
		x.pos += 2
	case '-', '\r', '\n':
		x.pos += 2
	case '\'':
		if x.pos+3 < n {
			hi, lo := unhex(src[x.pos+2]), unhex(src[x.pos+3])
			if hi >= 0 && lo >= 0 {
				x.out.WriteByte(byte(hi<<4 | lo))
			}
			x.pos += 4
		} else {
			x.pos += 2
		}
	default:
		x.pos = skipControlWord(src, x.pos)
	}
}

// groupContent collects raw bytes from start to the matching close
// brace, keeping nested braces.
func groupContent(data []byte, start int) string {
	var buf bytes.Buffer
	depth := 1
	for i := start; i < len(data) && depth > 0; i++ {
		switch data[i] {
		case '{':
			depth++
			buf.WriteByte('{')
		case '}':
			depth--
			if depth > 0 {
				buf.WriteByte('}')
			}
		default:
			buf.WriteByte(data[i])
		}
	}
	return buf.String()
}

// decodeFragment interprets RTF escapes inside htmltag content.
func decodeFragment(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\r' || c == '\n' {
			i++
			continue
		}
		if c != '\\' {
			buf.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case '\\', '{', '}':
			buf.WriteByte(s[i])
			i++
		case '\'':
			if i+2 < len(s) {
				hi, lo := unhex(s[i+1]), unhex(s[i+2])
				if hi >= 0 && lo >= 0 {
					buf.WriteByte(byte(hi<<4 | lo))
				}
				i += 3
			} else {
				i++
			}
		case '\r', '\n':
			i++
		default:
			word, param, next := controlWord(s, i)
			switch word {
			case "par", "line":
				buf.WriteString("\r\n")
			case "tab":
				buf.WriteByte('\t')
			}
			_ = param
			i = next
		}
	}
	return buf.String()
}

// controlWord reads an alphabetic control word with optional numeric
// parameter starting at i, returning the word, the raw parameter, and
// the position after the trailing delimiter.
func controlWord(s string, i int) (string, string, int) {
	start := i
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	word := s[start:i]
	pstart := i
	if i < len(s) && (s[i] == '-' || (s[i] >= '0' && s[i] <= '9')) {
		if s[i] == '-' {
			i++
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	param := s[pstart:i]
	if i < len(s) && s[i] == ' ' {
		i++
	}
	return word, param, i
}

// skipGroup advances past the brace group starting at pos.
func skipGroup(data []byte, pos int) int {
	if pos >= len(data) || data[pos] != '{' {
		return pos + 1
	}
	depth := 0
	for i := pos; i < len(data); i++ {
		switch data[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(data)
}

// skipControlWord advances past a backslash-introduced control word or
// symbol, including any numeric parameter and delimiter space.
func skipControlWord(data []byte, pos int) int {
	i := pos + 1
	if i >= len(data) {
		return len(data)
	}
	if !isAlpha(data[i]) {
		return i + 1 // control symbol
	}
	for i < len(data) && isAlpha(data[i]) {
		i++
	}
	if i < len(data) && (data[i] == '-' || (data[i] >= '0' && data[i] <= '9')) {
		if data[i] == '-' {
			i++
		}
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
	}
	if i < len(data) && data[i] == ' ' {
		i++
	}
	return i
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
