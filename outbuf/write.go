package outbuf

import "golang.org/x/sys/unix"

const maxIovecs = 64

// Write drains as much of the pending record list as possible to fd using
// vectored writes, stopping at EAGAIN. It returns the number of bytes
// written this call; partial progress on a record is preserved across
// calls via the record's internal offset. A nil error with n==0 but
// !IsEmpty() means the fd would block — wait for write-readiness.
func (o *Outbuf) Write(fd int) (int, error) {
	total := 0
	for len(o.records) > 0 {
		iovs := make([][]byte, 0, maxIovecs)
		for i := 0; i < len(o.records) && i < maxIovecs; i++ {
			r := &o.records[i]
			b := r.bytes(o.sb)[r.off:]
			if len(b) == 0 {
				continue
			}
			iovs = append(iovs, b)
		}
		if len(iovs) == 0 {
			break
		}

		n, err := unix.Writev(fd, iovs)
		if n > 0 {
			total += n
			o.consume(n)
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// consume advances record offsets by n bytes written, in order, dropping
// (and munmap'ing, for chunkMmap records) any record fully written.
func (o *Outbuf) consume(n int) {
	o.length -= n
	for n > 0 && len(o.records) > 0 {
		r := &o.records[0]
		avail := r.len(o.sb) - r.off
		if n < avail {
			r.off += n
			n = 0
			break
		}
		n -= avail
		if r.kind == chunkMmap && r.data != nil {
			_ = unix.Munmap(r.data)
		}
		o.records = o.records[1:]
	}
	if len(o.records) == 0 {
		o.sb = o.sb[:0]
		o.sbTrailing = 0
	}
}
