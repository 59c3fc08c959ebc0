package alloc

import "sync/atomic"

// Ring is a fixed-capacity pool of reusable, fixed-size byte frames,
// the same shape as a generic RingBuffer[T] specialized to []byte, so a
// connection can recycle read buffers without repeated heap allocation.
type Ring struct {
	frames   [][]byte
	mask     uint64
	head     uint64
	tail     uint64
	frameLen int
}

// NewRing allocates a Ring of `size` frames (must be a power of two) each
// `frameLen` bytes long, pre-populated and ready to hand out.
func NewRing(size uint64, frameLen int) *Ring {
	if size == 0 || (size&(size-1)) != 0 {
		panic("alloc: ring size must be a power of two")
	}
	r := &Ring{
		frames:   make([][]byte, size),
		mask:     size - 1,
		frameLen: frameLen,
	}
	for i := range r.frames {
		r.frames[i] = make([]byte, frameLen)
	}
	return r
}

// Alloc hands out the next frame in rotation if one's available, else a
// fresh heap frame of the same size (flags are otherwise unused: frames
// are always zeroed on return via Free).
func (r *Ring) Alloc(n int, _ Flags) []byte {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if tail-head == uint64(len(r.frames)) || n > r.frameLen {
		return make([]byte, n)
	}
	idx := tail & r.mask
	atomic.AddUint64(&r.tail, 1)
	return r.frames[idx][:n]
}

func (r *Ring) Realloc(buf []byte, n int, flags Flags) []byte {
	if n <= cap(buf) {
		return buf[:n]
	}
	out := r.Alloc(n, flags)
	copy(out, buf)
	return out
}

// Free zeroes a frame and stores it back in the ring for reuse. Buffers
// whose capacity is not frameLen, or that arrive while no ring frame is
// handed out, are left to the GC.
func (r *Ring) Free(buf []byte, _ Flags) {
	head := atomic.LoadUint64(&r.head)
	if cap(buf) != r.frameLen || head == atomic.LoadUint64(&r.tail) {
		return
	}
	frame := buf[:cap(buf)]
	clear(frame)
	r.frames[head&r.mask] = frame
	atomic.AddUint64(&r.head, 1)
}
