// Package outbuf
// Author: momentics <momentics@gmail.com>
//
// Append-only write buffer: an inline byte builder plus an ordered list of
// pending write records, each either a borrowed range inside the inline
// builder, a memory-mapped region, or an externally-owned byte slice.
// Draining writes the whole list to a file descriptor via vectored writes
// with partial-write bookkeeping.
package outbuf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type chunkKind uint8

const (
	chunkInline   chunkKind = iota // a borrowed range inside the inline builder
	chunkMmap                      // a memory-mapped range, munmap'd when drained
	chunkExternal                  // an externally-owned byte slice
)

// record is one pending write entry; off tracks how many of its bytes
// have already been written, for partial-write resumption.
type record struct {
	kind     chunkKind
	data     []byte // for chunkMmap/chunkExternal: the slice itself
	sbStart  int    // for chunkInline: start offset into sb
	sbEnd    int    // for chunkInline: end offset into sb (exclusive)
	off      int
}

func (r record) bytes(sb []byte) []byte {
	if r.kind == chunkInline {
		return sb[r.sbStart:r.sbEnd]
	}
	return r.data
}

func (r record) len(sb []byte) int {
	return len(r.bytes(sb))
}

// Outbuf is the per-connection (or per-query) write queue.
type Outbuf struct {
	sb         []byte   // inline string-builder backing bytes
	records    []record // ordered pending write records
	sbTrailing int      // bytes appended to sb since the last external chunk
	length     int      // total pending bytes across all records
}

// New returns an empty Outbuf.
func New() *Outbuf {
	return &Outbuf{}
}

// sbOpenInline returns the trailing chunkInline record if one is open
// (i.e. the most recent record is inline and its end matches len(sb)),
// so consecutive AddBytes calls extend one record instead of fragmenting.
func (o *Outbuf) sbOpenInline() *record {
	if len(o.records) == 0 {
		return nil
	}
	last := &o.records[len(o.records)-1]
	if last.kind == chunkInline && last.sbEnd == len(o.sb) {
		return last
	}
	return nil
}

// Reserve appends n uninitialized bytes to the inline builder and returns
// the offset they start at, for later patching (e.g. a chunk-size prefix).
func (o *Outbuf) Reserve(n int) int {
	off := len(o.sb)
	o.sb = append(o.sb, make([]byte, n)...)
	o.appendInline(n)
	return off
}

// PatchAt overwrites n bytes starting at off, previously returned by
// Reserve, in place. off+len(p) must not exceed the inline builder length.
func (o *Outbuf) PatchAt(off int, p []byte) error {
	if off < 0 || off+len(p) > len(o.sb) {
		return fmt.Errorf("outbuf: patch out of range")
	}
	copy(o.sb[off:off+len(p)], p)
	return nil
}

func (o *Outbuf) appendInline(n int) {
	if r := o.sbOpenInline(); r != nil {
		r.sbEnd += n
	} else {
		o.records = append(o.records, record{
			kind:    chunkInline,
			sbStart: len(o.sb) - n,
			sbEnd:   len(o.sb),
		})
	}
	o.sbTrailing += n
	o.length += n
}

// AddBytes appends p to the inline builder.
func (o *Outbuf) AddBytes(p []byte) {
	o.sb = append(o.sb, p...)
	o.appendInline(len(p))
}

// Adds appends a string to the inline builder.
func (o *Outbuf) Adds(s string) {
	o.AddBytes([]byte(s))
}

// Addf appends a formatted string to the inline builder.
func (o *Outbuf) Addf(format string, args ...any) {
	o.Adds(fmt.Sprintf(format, args...))
}

// AddMmap attaches a memory-mapped region as an external record; ownership
// (and the responsibility to munmap) transfers to the Outbuf. unmap is
// invoked exactly once, when the record is fully drained or the Outbuf is
// discarded with Close.
func (o *Outbuf) AddMmap(p []byte) {
	o.records = append(o.records, record{kind: chunkMmap, data: p})
	o.length += len(p)
	o.sbTrailing = 0
}

// AddExternal attaches a borrowed byte slice as a pending write record;
// the caller remains responsible for the slice's lifetime until drained.
func (o *Outbuf) AddExternal(p []byte) {
	o.records = append(o.records, record{kind: chunkExternal, data: p})
	o.length += len(p)
	o.sbTrailing = 0
}

// XRead reads exactly up to n bytes from fd directly into the inline
// builder — used to splice small file bodies without a separate mmap.
// It returns the number of bytes actually read (less than n at EOF).
func (o *Outbuf) XRead(fd int, n int) (int, error) {
	start := len(o.sb)
	o.sb = append(o.sb, make([]byte, n)...)
	read := 0
	for read < n {
		m, err := unix.Read(fd, o.sb[start+read:start+n])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			o.sb = o.sb[:start+read]
			if read > 0 {
				o.appendInline(read)
			}
			return read, err
		}
		if m == 0 {
			break
		}
		read += m
	}
	o.sb = o.sb[:start+read]
	if read > 0 {
		o.appendInline(read)
	}
	return read, nil
}

// MergeDelete atomically moves all content from other into o, preserving
// order (other's records are appended after o's), and resets other to
// empty: a query's private outbuf splices into the connection outbuf the
// instant the query reaches the FIFO head.
func (o *Outbuf) MergeDelete(other *Outbuf) {
	if other.length == 0 {
		return
	}
	sbBase := len(o.sb)
	o.sb = append(o.sb, other.sb...)
	for _, r := range other.records {
		if r.kind == chunkInline {
			r.sbStart += sbBase
			r.sbEnd += sbBase
		}
		o.records = append(o.records, r)
	}
	o.length += other.length
	o.sbTrailing = other.sbTrailing

	other.sb = nil
	other.records = nil
	other.length = 0
	other.sbTrailing = 0
}

// IsEmpty reports whether there is nothing left to drain.
func (o *Outbuf) IsEmpty() bool {
	return o.length == 0
}

// Length returns the total number of pending bytes.
func (o *Outbuf) Length() int {
	return o.length
}

// Close releases any mmap'd records still held by the Outbuf without
// writing them — used when a connection is torn down mid-response.
func (o *Outbuf) Close() error {
	var firstErr error
	for i := range o.records {
		if o.records[i].kind == chunkMmap && o.records[i].data != nil {
			if err := unix.Munmap(o.records[i].data); err != nil && firstErr == nil {
				firstErr = err
			}
			o.records[i].data = nil
		}
	}
	o.records = nil
	o.sb = nil
	o.length = 0
	return firstErr
}
