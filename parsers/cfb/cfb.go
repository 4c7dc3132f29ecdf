// Package cfb parses OLE2 / CFB compound files (MS-CFB), the container
// format used by Outlook .msg files. It exposes the directory as a flat
// arena of entries navigated by handle, and reads stream contents by
// following FAT and mini-FAT chains.
//
// The parser is lenient about anything that is not structural: unknown
// entries, unused sectors, and odd directory names are passed through.
// Only a bad signature or a corrupt FAT/directory is an error.
package cfb

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// cfbSignature is the 8-byte magic at offset 0 (D0 CF 11 E0 A1 B1 1A E1).
const cfbSignature = 0xE11AB1A1E011CFD0

// Special sector values in FAT/DIFAT entries.
const (
	maxRegSector = 0xFFFFFFFA
	difatSector  = 0xFFFFFFFC
	fatSector    = 0xFFFFFFFD
	endOfChain   = 0xFFFFFFFE
	freeSector   = 0xFFFFFFFF
)

const dirEntrySize = 128

// Open parses raw compound-file bytes. It returns ErrNotCompoundFile if
// the signature is missing and an error wrapping ErrMalformed if the
// header, FAT, or directory is structurally invalid.
func Open(data []byte) (*File, error) {
	if len(data) < 512 || binary.LittleEndian.Uint64(data[0:8]) != cfbSignature {
		return nil, ErrNotCompoundFile
	}

	sectorShift := binary.LittleEndian.Uint16(data[30:32])
	if sectorShift != 9 && sectorShift != 12 {
		return nil, fmt.Errorf("%w: sector shift %d", ErrMalformed, sectorShift)
	}

	f := &File{
		data:       data,
		sectorSize: 1 << sectorShift,
		miniCutoff: binary.LittleEndian.Uint32(data[56:60]),
	}
	if f.miniCutoff == 0 {
		f.miniCutoff = 4096
	}

	if err := f.readFAT(); err != nil {
		return nil, err
	}
	if err := f.readDirectory(binary.LittleEndian.Uint32(data[48:52])); err != nil {
		return nil, err
	}
	if err := f.readMiniFAT(); err != nil {
		return nil, err
	}
	return f, nil
}

// sector returns the raw bytes of sector n, or nil when n lies past the
// end of the file.
func (f *File) sector(n uint32) []byte {
	start := (int(n) + 1) * f.sectorSize
	end := start + f.sectorSize
	if start < 0 || end > len(f.data) {
		return nil
	}
	return f.data[start:end]
}

// readFAT assembles the full FAT from the header DIFAT array and any
// chained DIFAT sectors.
func (f *File) readFAT() error {
	var fatSectors []uint32
	for off := 76; off < 512; off += 4 {
		s := binary.LittleEndian.Uint32(f.data[off : off+4])
		if s <= maxRegSector {
			fatSectors = append(fatSectors, s)
		}
	}

	// Chained DIFAT sectors: each holds sectorSize/4 - 1 FAT sector
	// ids, with the chain pointer in the last slot.
	next := binary.LittleEndian.Uint32(f.data[68:72])
	maxDIFAT := len(f.data)/f.sectorSize + 1
	for i := 0; next <= maxRegSector; i++ {
		if i > maxDIFAT {
			return fmt.Errorf("%w: DIFAT chain cycle", ErrMalformed)
		}
		sec := f.sector(next)
		if sec == nil {
			return fmt.Errorf("%w: DIFAT sector %d out of range", ErrMalformed, next)
		}
		for off := 0; off < f.sectorSize-4; off += 4 {
			s := binary.LittleEndian.Uint32(sec[off : off+4])
			if s <= maxRegSector {
				fatSectors = append(fatSectors, s)
			}
		}
		next = binary.LittleEndian.Uint32(sec[f.sectorSize-4:])
	}

	if len(fatSectors) == 0 {
		return fmt.Errorf("%w: no FAT sectors", ErrMalformed)
	}
	f.fat = make([]uint32, 0, len(fatSectors)*f.sectorSize/4)
	for _, s := range fatSectors {
		sec := f.sector(s)
		if sec == nil {
			return fmt.Errorf("%w: FAT sector %d out of range", ErrMalformed, s)
		}
		for off := 0; off < f.sectorSize; off += 4 {
			f.fat = append(f.fat, binary.LittleEndian.Uint32(sec[off:off+4]))
		}
	}
	return nil
}

// chain follows a FAT chain from start and returns the concatenated
// sector contents, capped at size bytes when size > 0.
func (f *File) chain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	cur := start
	for step := 0; cur <= maxRegSector; step++ {
		if step > len(f.fat) {
			return nil, fmt.Errorf("%w: FAT chain cycle at sector %d", ErrMalformed, cur)
		}
		sec := f.sector(cur)
		if sec == nil {
			return nil, fmt.Errorf("%w: sector %d out of range", ErrMalformed, cur)
		}
		out = append(out, sec...)
		if int(cur) >= len(f.fat) {
			return nil, fmt.Errorf("%w: sector %d past FAT", ErrMalformed, cur)
		}
		cur = f.fat[cur]
	}
	if size > 0 && uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// readDirectory parses the directory chain into the entry arena.
func (f *File) readDirectory(firstSector uint32) error {
	raw, err := f.chain(firstSector, 0)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	n := len(raw) / dirEntrySize
	if n == 0 {
		return fmt.Errorf("%w: empty directory", ErrMalformed)
	}

	f.entries = make([]DirEntry, 0, n)
	for i := 0; i < n; i++ {
		d := raw[i*dirEntrySize : (i+1)*dirEntrySize]
		e := DirEntry{
			Type:        d[66],
			Left:        binary.LittleEndian.Uint32(d[68:72]),
			Right:       binary.LittleEndian.Uint32(d[72:76]),
			Child:       binary.LittleEndian.Uint32(d[76:80]),
			StartSector: binary.LittleEndian.Uint32(d[116:120]),
			Size:        binary.LittleEndian.Uint64(d[120:128]),
		}
		// Version 3 files only define the low 32 bits of the size.
		if f.sectorSize == 512 {
			e.Size &= 0xFFFFFFFF
		}
		e.Name = decodeEntryName(d[0:64], binary.LittleEndian.Uint16(d[64:66]))
		f.entries = append(f.entries, e)
	}

	if f.entries[0].Type != ObjectRoot {
		return fmt.Errorf("%w: first directory entry is not the root storage", ErrMalformed)
	}
	return nil
}

// readMiniFAT loads the mini-FAT and the root mini-stream that backs
// streams smaller than the mini cutoff. An absent mini-FAT is fine; it
// just means every stream lives in regular sectors.
func (f *File) readMiniFAT() error {
	count := binary.LittleEndian.Uint32(f.data[64:68])
	first := binary.LittleEndian.Uint32(f.data[60:64])
	if count == 0 || first > maxRegSector {
		return nil
	}
	raw, err := f.chain(first, 0)
	if err != nil {
		return fmt.Errorf("mini-FAT: %w", err)
	}
	f.miniFAT = make([]uint32, 0, len(raw)/4)
	for off := 0; off+4 <= len(raw); off += 4 {
		f.miniFAT = append(f.miniFAT, binary.LittleEndian.Uint32(raw[off:off+4]))
	}

	root := f.entries[0]
	if root.StartSector <= maxRegSector && root.Size > 0 {
		ms, err := f.chain(root.StartSector, root.Size)
		if err != nil {
			return fmt.Errorf("mini-stream: %w", err)
		}
		f.miniStream = ms
	}
	return nil
}

// StreamData reads the full contents of the stream entry h. Streams
// below the mini cutoff come from the mini-stream; larger ones follow
// the regular FAT.
func (f *File) StreamData(h Handle) ([]byte, error) {
	e := f.Entry(h)
	if e == nil {
		return nil, fmt.Errorf("%w: no such entry %d", ErrMalformed, h)
	}
	if !e.IsStream() {
		return nil, fmt.Errorf("%w: %q is not a stream", ErrMalformed, e.Name)
	}
	if e.Size == 0 {
		return nil, nil
	}

	if uint64(e.Size) < uint64(f.miniCutoff) {
		return f.miniChain(e.StartSector, e.Size)
	}
	return f.chain(e.StartSector, e.Size)
}

// miniChain follows a mini-FAT chain through the root mini-stream.
func (f *File) miniChain(start uint32, size uint64) ([]byte, error) {
	const miniSectorSize = 64
	var out []byte
	cur := start
	for step := 0; cur <= maxRegSector; step++ {
		if step > len(f.miniFAT) {
			return nil, fmt.Errorf("%w: mini-FAT chain cycle at sector %d", ErrMalformed, cur)
		}
		off := int(cur) * miniSectorSize
		end := off + miniSectorSize
		if off < 0 || end > len(f.miniStream) {
			return nil, fmt.Errorf("%w: mini sector %d out of range", ErrMalformed, cur)
		}
		out = append(out, f.miniStream[off:end]...)
		if int(cur) >= len(f.miniFAT) {
			return nil, fmt.Errorf("%w: mini sector %d past mini-FAT", ErrMalformed, cur)
		}
		cur = f.miniFAT[cur]
	}
	if uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// decodeEntryName converts the UTF-16LE directory entry name field.
// nameLen counts bytes including the terminating null.
func decodeEntryName(raw []byte, nameLen uint16) string {
	if nameLen < 2 || int(nameLen) > len(raw) {
		return ""
	}
	n := int(nameLen)/2 - 1 // drop trailing null
	u := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		u = append(u, binary.LittleEndian.Uint16(raw[i*2:i*2+2]))
	}
	return string(utf16.Decode(u))
}
