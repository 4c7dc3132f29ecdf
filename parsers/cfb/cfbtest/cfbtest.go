// Package cfbtest builds minimal in-memory OLE2 compound files for
// tests. The writer produces version 3 files (512-byte sectors) with a
// mini-stream for small streams, which is enough structure to exercise
// the parser and to assemble synthetic .msg fixtures.
package cfbtest

import "encoding/binary"

// Node is a directory node to serialize: a stream when Stream is
// non-nil, otherwise a storage holding Children.
type Node struct {
	Name     string
	Stream   []byte
	Children []*Node
}

// Storage returns a storage node with the given children.
func Storage(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// Stream returns a stream node carrying data.
func Stream(name string, data []byte) *Node {
	if data == nil {
		data = []byte{}
	}
	return &Node{Name: name, Stream: data}
}

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	endOfChain     = 0xFFFFFFFE
	freeSector     = 0xFFFFFFFF
	fatSectorMark  = 0xFFFFFFFD
	noStream       = 0xFFFFFFFF
)

type flatEntry struct {
	name     string
	typ      byte
	right    uint32
	child    uint32
	start    uint32
	size     uint64
	stream   []byte
	mini     bool
	chainIdx int // index into mini or big stream order
}

// Build serializes the tree under the implicit root storage. The nodes
// passed in become the root's direct children.
func Build(children ...*Node) []byte {
	entries := []*flatEntry{{name: "Root Entry", typ: 5, right: noStream, child: noStream}}

	var addLevel func(nodes []*Node) uint32
	addLevel = func(nodes []*Node) uint32 {
		if len(nodes) == 0 {
			return noStream
		}
		first := uint32(len(entries))
		var prev *flatEntry
		for _, n := range nodes {
			e := &flatEntry{name: n.Name, right: noStream, child: noStream}
			entries = append(entries, e)
			if prev != nil {
				prev.right = uint32(len(entries) - 1)
			}
			prev = e
			if n.Stream != nil {
				e.typ = 2
				e.stream = n.Stream
				e.size = uint64(len(n.Stream))
				e.mini = len(n.Stream) < miniCutoff
			} else {
				e.typ = 1
				e.child = addLevel(n.Children)
			}
		}
		return first
	}
	entries[0].child = addLevel(children)

	// Lay out the mini-stream and mini-FAT.
	var miniStream []byte
	var miniFAT []uint32
	for _, e := range entries {
		if e.typ != 2 || !e.mini || len(e.stream) == 0 {
			continue
		}
		e.start = uint32(len(miniFAT))
		sectors := (len(e.stream) + miniSectorSize - 1) / miniSectorSize
		for s := 0; s < sectors; s++ {
			if s == sectors-1 {
				miniFAT = append(miniFAT, endOfChain)
			} else {
				miniFAT = append(miniFAT, uint32(len(miniFAT)+1))
			}
		}
		miniStream = append(miniStream, pad(e.stream, sectors*miniSectorSize)...)
	}
	entries[0].size = uint64(len(miniStream))

	// Directory sectors.
	dirData := make([]byte, 0, len(entries)*128)
	for _, e := range entries {
		dirData = append(dirData, encodeEntry(e)...)
	}
	dirData = pad(dirData, roundUp(len(dirData), sectorSize))
	dirSectors := len(dirData) / sectorSize

	miniFATData := encodeUint32s(miniFAT)
	miniFATData = pad(miniFATData, roundUp(len(miniFATData), sectorSize))
	miniFATSectors := len(miniFATData) / sectorSize

	miniStream = pad(miniStream, roundUp(len(miniStream), sectorSize))
	miniStreamSectors := len(miniStream) / sectorSize

	var bigStreams []*flatEntry
	bigTotal := 0
	for _, e := range entries {
		if e.typ == 2 && !e.mini {
			bigStreams = append(bigStreams, e)
			bigTotal += roundUp(len(e.stream), sectorSize) / sectorSize
		}
	}

	// Iterate until the FAT is large enough to cover itself.
	payload := dirSectors + miniFATSectors + miniStreamSectors + bigTotal
	fatSectors := 1
	for {
		need := roundUp(fatSectors+payload, sectorSize/4) / (sectorSize / 4)
		if need == fatSectors {
			break
		}
		fatSectors = need
	}
	fat := make([]uint32, fatSectors*(sectorSize/4))
	for i := range fat {
		fat[i] = freeSector
	}
	next := uint32(0)
	alloc := func(n int) uint32 {
		first := next
		for i := 0; i < n; i++ {
			if i == n-1 {
				fat[next] = endOfChain
			} else {
				fat[next] = next + 1
			}
			next++
		}
		return first
	}
	for i := 0; i < fatSectors; i++ {
		fat[next] = fatSectorMark
		next++
	}
	dirStart := alloc(dirSectors)
	miniFATStart := uint32(endOfChain)
	if miniFATSectors > 0 {
		miniFATStart = alloc(miniFATSectors)
	}
	if miniStreamSectors > 0 {
		entries[0].start = alloc(miniStreamSectors)
	} else {
		entries[0].start = endOfChain
	}
	for _, e := range bigStreams {
		e.start = alloc(roundUp(len(e.stream), sectorSize) / sectorSize)
	}

	// Directory entries were encoded before stream sectors were
	// assigned, so re-encode with final start sectors.
	dirData = dirData[:0]
	for _, e := range entries {
		dirData = append(dirData, encodeEntry(e)...)
	}
	dirData = pad(dirData, dirSectors*sectorSize)

	// Header.
	out := make([]byte, sectorSize)
	copy(out, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(out[24:26], 0x3E) // minor version
	binary.LittleEndian.PutUint16(out[26:28], 3)    // major version
	binary.LittleEndian.PutUint16(out[28:30], 0xFFFE)
	binary.LittleEndian.PutUint16(out[30:32], 9) // sector shift
	binary.LittleEndian.PutUint16(out[32:34], 6) // mini sector shift
	binary.LittleEndian.PutUint32(out[44:48], uint32(fatSectors))
	binary.LittleEndian.PutUint32(out[48:52], dirStart)
	binary.LittleEndian.PutUint32(out[56:60], miniCutoff)
	binary.LittleEndian.PutUint32(out[60:64], miniFATStart)
	binary.LittleEndian.PutUint32(out[64:68], uint32(miniFATSectors))
	binary.LittleEndian.PutUint32(out[68:72], endOfChain) // no DIFAT chain
	for i := 0; i < 109; i++ {
		v := uint32(freeSector)
		if i < fatSectors {
			v = uint32(i)
		}
		binary.LittleEndian.PutUint32(out[76+i*4:80+i*4], v)
	}

	out = append(out, encodeUint32s(fat)...)
	out = append(out, dirData...)
	out = append(out, miniFATData...)
	out = append(out, miniStream...)
	for _, e := range bigStreams {
		out = append(out, pad(e.stream, roundUp(len(e.stream), sectorSize))...)
	}
	return out
}

func encodeEntry(e *flatEntry) []byte {
	d := make([]byte, 128)
	n := e.name
	if len(n) > 31 {
		n = n[:31]
	}
	for i, r := range []rune(n) {
		binary.LittleEndian.PutUint16(d[i*2:i*2+2], uint16(r))
	}
	binary.LittleEndian.PutUint16(d[64:66], uint16((len([]rune(n))+1)*2))
	d[66] = e.typ
	binary.LittleEndian.PutUint32(d[68:72], noStream) // left
	binary.LittleEndian.PutUint32(d[72:76], e.right)
	binary.LittleEndian.PutUint32(d[76:80], e.child)
	binary.LittleEndian.PutUint32(d[116:120], e.start)
	binary.LittleEndian.PutUint64(d[120:128], e.size)
	return d
}

func encodeUint32s(v []uint32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], x)
	}
	return out
}

func pad(b []byte, n int) []byte {
	for len(b) < n {
		b = append(b, 0)
	}
	return b
}

func roundUp(n, to int) int {
	if n == 0 {
		return 0
	}
	return (n + to - 1) / to * to
}
