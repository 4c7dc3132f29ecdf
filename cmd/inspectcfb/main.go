// Inspectcfb is a low-level diagnostic tool that dumps the storage
// tree and raw MAPI property streams of an Outlook .msg compound file.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/adam2504/conversion-msg-to-pdf/parsers/cfb"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspectcfb <file.msg>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	f, err := cfb.Open(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Compound file: %s (%d bytes)\n\n", os.Args[1], len(data))
	dumpStorage(f, f.Root(), 0)
}

// dumpStorage prints one storage level and recurses into children.
func dumpStorage(f *cfb.File, h cfb.Handle, depth int) {
	ind := strings.Repeat("  ", depth)
	for _, child := range f.Children(h) {
		entry := f.Entry(child)
		if entry == nil {
			fmt.Printf("%s[missing entry %d]\n", ind, child)
			continue
		}
		switch entry.Type {
		case cfb.ObjectStorage:
			fmt.Printf("%s+ %s/\n", ind, entry.Name)
			dumpStorage(f, child, depth+1)
		case cfb.ObjectStream:
			fmt.Printf("%s- %-42s %d bytes%s\n", ind, entry.Name, entry.Size, streamDetail(entry.Name))
			if entry.Name == "__properties_version1.0" {
				if raw, err := f.StreamData(child); err == nil {
					dumpFixedProps(raw, ind+"    ")
				}
			}
		}
	}
}

// streamDetail decodes the property id and type out of a substg
// stream name.
func streamDetail(name string) string {
	const prefix = "__substg1.0_"
	if !strings.HasPrefix(name, prefix) || len(name) < len(prefix)+8 {
		return ""
	}
	hex := name[len(prefix):]
	id, err1 := strconv.ParseUint(hex[:4], 16, 16)
	typ, err2 := strconv.ParseUint(hex[4:8], 16, 16)
	if err1 != nil || err2 != nil {
		return ""
	}
	return fmt.Sprintf("  (prop 0x%04X type 0x%04X)", id, typ)
}

// dumpFixedProps walks the 16-byte records of a properties stream,
// trying each known header size.
func dumpFixedProps(raw []byte, ind string) {
	for _, header := range []int{32, 24, 8} {
		if len(raw) >= header && (len(raw)-header)%16 == 0 {
			n := (len(raw) - header) / 16
			fmt.Printf("%sheader %d bytes, %d fixed records\n", ind, header, n)
			for off := header; off+16 <= len(raw); off += 16 {
				typ := binary.LittleEndian.Uint16(raw[off:])
				id := binary.LittleEndian.Uint16(raw[off+2:])
				val := binary.LittleEndian.Uint64(raw[off+8:])
				fmt.Printf("%s  prop 0x%04X type 0x%04X value 0x%016X\n", ind, id, typ, val)
			}
			return
		}
	}
	fmt.Printf("%s[unrecognized properties stream layout, %d bytes]\n", ind, len(raw))
}
