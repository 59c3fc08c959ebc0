package alloc

// Arena is a bump-allocate, bulk-free memory pool: allocations are never
// freed individually, only reclaimed all at once by Reset. Nothing in
// this module calls Reset; an Arena passed to httpd via WithAllocator
// keeps growing until its owner resets it.
//
// Modeled on a page list that grows one page at a time (pageSize bytes,
// or the request size when that is larger), each page a flat byte slice
// with a bump offset; Reset rewinds to the first page and keeps the pages
// for reuse rather than releasing them back to the runtime.
type Arena struct {
	pages    [][]byte
	cur      int // index into pages of the page currently being bumped
	off      int // bump offset within pages[cur]
	pageSize int
}

const defaultArenaPageSize = 16 * 1024

// NewArena allocates an Arena with the given initial page size (0 picks a
// default matching core-mem-fifo.c's page granularity).
func NewArena(pageSize int) *Arena {
	if pageSize <= 0 {
		pageSize = defaultArenaPageSize
	}
	return &Arena{pageSize: pageSize}
}

func (a *Arena) growPage(minsize int) {
	size := a.pageSize
	if minsize > size {
		size = minsize
	}
	a.pages = append(a.pages, make([]byte, size))
	a.cur = len(a.pages) - 1
	a.off = 0
}

func (a *Arena) Alloc(n int, _ Flags) []byte {
	if n == 0 {
		return nil
	}
	if len(a.pages) == 0 || a.off+n > len(a.pages[a.cur]) {
		if a.cur+1 < len(a.pages) && n <= len(a.pages[a.cur+1]) {
			a.cur++
			a.off = 0
		} else {
			a.growPage(n)
		}
	}
	buf := a.pages[a.cur][a.off : a.off+n : a.off+n]
	a.off += n
	return buf
}

// Realloc always allocates fresh space and copies; an arena never shrinks
// or grows a live block in place since it has no per-block bookkeeping.
func (a *Arena) Realloc(buf []byte, n int, flags Flags) []byte {
	out := a.Alloc(n, flags)
	copy(out, buf)
	return out
}

// Free is a no-op: arena blocks are only reclaimed in bulk via Reset.
func (a *Arena) Free(_ []byte, _ Flags) {}

// Reset rewinds every page to empty for reuse by the next connection
// lifetime, without returning the backing memory to the runtime.
func (a *Arena) Reset() {
	for i := range a.pages {
		for j := range a.pages[i] {
			a.pages[i][j] = 0
		}
	}
	a.cur = 0
	a.off = 0
}
