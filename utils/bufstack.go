package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BufStack is a little endian view over a byte slice with nested sub views.
// Offsets passed to accessors are relative to the view start.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	size           int
	kind           string
	name           string
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:  b,
		size: len(b),
		kind: kind,
	}
}

func (bs *BufStack) SubBuf(kind string, offset int) *BufStack {
	return &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
		buf:            bs.buf[offset:],
		size:           len(bs.buf) - offset,
	}
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) SetSize(size int) *BufStack {
	bs.size = size
	return bs
}

func (bs *BufStack) Size() int {
	return bs.size
}

func (bs *BufStack) Kind() string {
	return bs.kind
}

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[o:0x%x,s:0x%x,ao:0x%x,ae:0x%x]",
		bs.kind, bs.name, bs.relativeOffset, bs.size, bs.absoluteOffset, bs.absoluteOffset+bs.size)
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += fmt.Sprintf("::%s", bs.parent.StringChain())
	}
	return s
}

// Fits reports whether size bytes at off are inside the view.
func (bs *BufStack) Fits(off, size int) bool {
	return off >= 0 && size >= 0 && off+size <= bs.size && off+size <= len(bs.buf)
}

func (bs *BufStack) Raw() []byte {
	return bs.buf[:bs.size]
}

func (bs *BufStack) Slice(off, size int) []byte {
	return bs.buf[off : off+size]
}

func (bs *BufStack) LU32(off int) uint32 {
	return binary.LittleEndian.Uint32(bs.buf[off:])
}

func (bs *BufStack) LU16(off int) uint16 {
	return binary.LittleEndian.Uint16(bs.buf[off:])
}

func (bs *BufStack) LI32(off int) int32 {
	return int32(bs.LU32(off))
}

func (bs *BufStack) LI16(off int) int16 {
	return int16(bs.LU16(off))
}

func (bs *BufStack) Byte(off int) byte {
	return bs.buf[off]
}

func (bs *BufStack) LF(off int) float32 {
	return math.Float32frombits(bs.LU32(off))
}
