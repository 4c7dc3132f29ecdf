// types.go defines the parsed compound-file structures: the directory
// entry arena and the handles used to navigate it.

package cfb

import "errors"

// Object types stored in a directory entry.
const (
	ObjectUnknown byte = 0
	ObjectStorage byte = 1
	ObjectStream  byte = 2
	ObjectRoot    byte = 5
)

// Handle identifies a directory entry within a File's arena.
type Handle = uint32

// noStream marks an absent sibling/child link in a directory entry.
const noStream = 0xFFFFFFFF

// ErrNotCompoundFile is returned when the input lacks the OLE2 signature.
var ErrNotCompoundFile = errors.New("not an OLE2 compound file")

// ErrMalformed is returned when the container's internal structure
// (FAT, directory, chains) is corrupt or truncated.
var ErrMalformed = errors.New("malformed compound file")

// DirEntry is one node of the compound file's directory. Entries form a
// tree: storages point at a child entry, and entries at the same level
// link to siblings. The File keeps all entries in a flat arena indexed
// by Handle, so malformed self-referential directories cannot create
// ownership cycles.
type DirEntry struct {
	Name        string
	Type        byte
	Left        uint32
	Right       uint32
	Child       uint32
	StartSector uint32
	Size        uint64
}

// IsStorage reports whether the entry is a storage (or the root storage).
func (e *DirEntry) IsStorage() bool {
	return e.Type == ObjectStorage || e.Type == ObjectRoot
}

// IsStream reports whether the entry is a stream.
func (e *DirEntry) IsStream() bool {
	return e.Type == ObjectStream
}

// File is a parsed compound file. All navigation goes through handles
// into the directory arena; the raw bytes are never modified.
type File struct {
	data       []byte
	sectorSize int

	fat     []uint32
	miniFAT []uint32

	entries []DirEntry

	miniCutoff uint32
	miniStream []byte
}

// Root returns the handle of the root storage entry.
func (f *File) Root() Handle { return 0 }

// Entry returns the directory entry for h, or nil if h is out of range.
func (f *File) Entry(h Handle) *DirEntry {
	if int(h) >= len(f.entries) {
		return nil
	}
	return &f.entries[h]
}

// Children returns the handles of all entries directly inside the
// storage h, in directory (name-sorted) order. Cycles introduced by
// corrupt sibling links are broken by tracking visited handles.
func (f *File) Children(h Handle) []Handle {
	e := f.Entry(h)
	if e == nil || !e.IsStorage() || e.Child == noStream {
		return nil
	}

	var out []Handle
	seen := make(map[uint32]bool)

	// Iterative in-order walk of the sibling red-black tree.
	var stack []uint32
	cur := e.Child
	for cur != noStream || len(stack) > 0 {
		for cur != noStream {
			if int(cur) >= len(f.entries) || seen[cur] {
				cur = noStream
				break
			}
			seen[cur] = true
			stack = append(stack, cur)
			cur = f.entries[cur].Left
		}
		if len(stack) == 0 {
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, top)
		cur = f.entries[top].Right
		if cur != noStream && (int(cur) >= len(f.entries) || seen[cur]) {
			cur = noStream
		}
	}
	return out
}

// ChildByName returns the handle of the named entry directly inside
// storage h. The second return value is false if no such entry exists.
func (f *File) ChildByName(h Handle, name string) (Handle, bool) {
	for _, c := range f.Children(h) {
		if f.entries[c].Name == name {
			return c, true
		}
	}
	return 0, false
}
