// Package rtf handles the compressed RTF bodies found in Outlook
// messages (PR_RTF_COMPRESSED): LZFu decompression per MS-OXRTFCP and
// recovery of the original HTML from \fromhtml1 encapsulation per
// MS-OXRTFEX.
package rtf

import (
	"encoding/binary"
	"errors"
)

// Header signatures of a PR_RTF_COMPRESSED stream.
const (
	magicCompressed   = 0x75465A4C // "LZFu"
	magicUncompressed = 0x414C454D // "MELA"
)

// ErrInvalid is returned for streams that are not compressed RTF.
var ErrInvalid = errors.New("invalid compressed RTF stream")

// windowSize is the LZFu circular dictionary size.
const windowSize = 4096

// initialWindow is the fixed 207-byte dictionary seed defined by
// MS-OXRTFCP. It occupies window positions 0-206; the write cursor
// starts at 207.
var initialWindow = []byte(
	"{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
		"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript " +
		"\\fdecor MS Sans SerifSymbolArialTimes New Roman" +
		"Courier{\\colortbl\\red0\\green0\\blue0\r\n\\par " +
		"\\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx",
)

// Decompress expands a PR_RTF_COMPRESSED stream into raw RTF. Both the
// LZFu-compressed and the raw MELA layout are handled. The header CRC
// is not enforced: real-world files routinely carry nonstandard values
// and the bounds checks below make a bad payload safe to walk anyway.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 16 {
		return nil, ErrInvalid
	}
	rawSize := int(binary.LittleEndian.Uint32(data[4:8]))

	switch binary.LittleEndian.Uint32(data[8:12]) {
	case magicUncompressed:
		end := 16 + rawSize
		if end > len(data) || end < 16 {
			end = len(data)
		}
		return append([]byte(nil), data[16:end]...), nil
	case magicCompressed:
		return expand(data[16:], rawSize)
	default:
		return nil, ErrInvalid
	}
}

// expand runs the LZFu loop: a control byte announces eight tokens,
// each either a literal byte or a 12-bit-offset/4-bit-length reference
// into the circular window.
func expand(in []byte, rawSize int) ([]byte, error) {
	window := make([]byte, windowSize)
	copy(window, initialWindow)
	cursor := len(initialWindow)

	// Cap the allocation; crafted headers may claim absurd sizes.
	const maxRawSize = 64 << 20
	capSize := rawSize
	if capSize < 0 || capSize > maxRawSize {
		capSize = maxRawSize
	}
	out := make([]byte, 0, capSize)

	pos := 0
	for pos < len(in) && len(out) < rawSize {
		control := in[pos]
		pos++

		for bit := 0; bit < 8 && pos < len(in) && len(out) < rawSize; bit++ {
			if control&(1<<uint(bit)) == 0 {
				b := in[pos]
				pos++
				out = append(out, b)
				window[cursor] = b
				cursor = (cursor + 1) % windowSize
				continue
			}

			if pos+1 >= len(in) {
				return out, nil
			}
			hi, lo := int(in[pos]), int(in[pos+1])
			pos += 2
			offset := hi<<4 | lo>>4
			length := lo&0x0F + 2

			// A reference to the current cursor ends the stream.
			if offset == cursor {
				return out, nil
			}
			for i := 0; i < length && len(out) < rawSize; i++ {
				b := window[(offset+i)%windowSize]
				out = append(out, b)
				window[cursor] = b
				cursor = (cursor + 1) % windowSize
			}
		}
	}
	return out, nil
}
