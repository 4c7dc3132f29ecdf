// props.go implements the typed property accessor layer: raw property
// streams and fixed records are collected per storage, then read
// through accessors that return an explicit "absent" flag instead of
// letting missing values flow through the pipeline as zero values.

package msg

import (
	"encoding/binary"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb"
)

type propValue struct {
	typ  uint16
	data []byte
}

// propertySet holds every property found in one storage (message,
// attachment, or recipient), keyed by property ID.
type propertySet struct {
	values map[uint16]propValue
}

func newPropertySet() *propertySet {
	return &propertySet{values: make(map[uint16]propValue)}
}

// addStream records a __substg1.0_XXXXTTTT stream's payload.
func (p *propertySet) addStream(name string, data []byte) {
	hex := strings.TrimPrefix(name, streamPrefix)
	if len(hex) < 8 {
		return
	}
	id, ok1 := parseHex16(hex[0:4])
	typ, ok2 := parseHex16(hex[4:8])
	if !ok1 || !ok2 {
		return
	}
	// First occurrence wins; duplicates indicate a malformed directory.
	if _, dup := p.values[id]; !dup {
		p.values[id] = propValue{typ: typ, data: data}
	}
}

// addFixed parses the __properties_version1.0 stream, which carries
// fixed-width values (ints, booleans, timestamps) as 16-byte records
// after a header whose size depends on the storage kind.
func (p *propertySet) addFixed(data []byte, headerSize int) {
	for off := headerSize; off+16 <= len(data); off += 16 {
		typ := binary.LittleEndian.Uint16(data[off : off+2])
		id := binary.LittleEndian.Uint16(data[off+2 : off+4])
		switch typ {
		case TypeInt32, TypeBoolean, TypeTime:
			if _, dup := p.values[id]; !dup {
				v := make([]byte, 8)
				copy(v, data[off+8:off+16])
				p.values[id] = propValue{typ: typ, data: v}
			}
		}
		// Variable-length records only carry sizes here; the values
		// live in their own streams and were collected separately.
	}
}

// GetString returns a string property, decoding UTF-16LE for unicode
// properties and windows-1252 for legacy 8-bit ones. The bool is false
// when the property is absent or not a string.
func (p *propertySet) GetString(id uint16) (string, bool) {
	v, ok := p.values[id]
	if !ok {
		return "", false
	}
	switch v.typ {
	case TypeUnicode:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(v.data)
		if err != nil {
			return "", false
		}
		return cleanString(string(out)), true
	case TypeString8:
		out, err := charmap.Windows1252.NewDecoder().Bytes(v.data)
		if err != nil {
			return "", false
		}
		return cleanString(string(out)), true
	default:
		return "", false
	}
}

// GetBytes returns a binary property's raw payload.
func (p *propertySet) GetBytes(id uint16) ([]byte, bool) {
	v, ok := p.values[id]
	if !ok || v.typ != TypeBinary {
		return nil, false
	}
	return v.data, true
}

// GetInt32 returns a 32-bit integer property from the fixed records.
func (p *propertySet) GetInt32(id uint16) (int32, bool) {
	v, ok := p.values[id]
	if !ok || v.typ != TypeInt32 || len(v.data) < 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(v.data[:4])), true
}

// GetTime returns a PT_SYSTIME property as UTC time. FILETIME counts
// 100ns ticks since 1601-01-01.
func (p *propertySet) GetTime(id uint16) (time.Time, bool) {
	v, ok := p.values[id]
	if !ok || v.typ != TypeTime || len(v.data) < 8 {
		return time.Time{}, false
	}
	ticks := binary.LittleEndian.Uint64(v.data[:8])
	if ticks == 0 {
		return time.Time{}, false
	}
	const epochDelta = 11644473600 // seconds from 1601-01-01 to 1970-01-01
	secs := int64(ticks/10_000_000) - epochDelta
	nanos := int64(ticks%10_000_000) * 100
	return time.Unix(secs, nanos).UTC(), true
}

// collectProperties walks one storage and gathers its property streams
// and fixed records.
func collectProperties(f *cfb.File, h cfb.Handle, headerSize int) *propertySet {
	props := newPropertySet()
	for _, c := range f.Children(h) {
		e := f.Entry(c)
		if e == nil || !e.IsStream() {
			continue
		}
		switch {
		case strings.HasPrefix(e.Name, streamPrefix):
			data, err := f.StreamData(c)
			if err != nil {
				continue // unreadable optional stream: treat as absent
			}
			props.addStream(e.Name, data)
		case e.Name == propertiesStream:
			data, err := f.StreamData(c)
			if err != nil {
				continue
			}
			props.addFixed(data, headerSize)
		}
	}
	return props
}

// cleanString strips null terminators and surrounding whitespace.
func cleanString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// parseHex16 parses exactly four uppercase/lowercase hex digits.
func parseHex16(s string) (uint16, bool) {
	var v uint16
	for i := 0; i < 4; i++ {
		var d uint16
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			d = uint16(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint16(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint16(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}
