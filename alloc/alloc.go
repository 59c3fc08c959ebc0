// Package alloc
// Author: momentics <momentics@gmail.com>
//
// Allocator vtable consumed by the HTTP engines in place of a bare
// make()/GC dependency, so connection-scoped memory can be pooled or
// bulk-freed instead of trickling through the garbage collector one
// object at a time.
package alloc

// Flags modify an Alloc/Realloc/Free call.
type Flags uint8

const (
	// Raw skips zeroing newly allocated bytes.
	Raw Flags = 1 << iota
	// ErrorsOK tells the allocator the caller handles an OOM condition
	// instead of treating it as fatal.
	ErrorsOK
)

// Allocator is the vtable every HTTP engine config carries. Implementations
// need not be safe for concurrent use; EL callbacks never call an allocator
// from more than one goroutine at a time.
type Allocator interface {
	// Alloc returns a new buffer of exactly n bytes.
	Alloc(n int, flags Flags) []byte
	// Realloc grows or shrinks buf to n bytes, preserving its prefix.
	Realloc(buf []byte, n int, flags Flags) []byte
	// Free releases buf. Implementations that don't track individual
	// blocks (Arena, Ring) may treat this as a no-op.
	Free(buf []byte, flags Flags)
}
