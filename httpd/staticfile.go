package httpd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// mimeEntry mirrors the extension -> content-type/content-encoding table
// from the original static file server.
type mimeEntry struct {
	ext string
	ct  string
	ce  string
}

var mimeTable = []mimeEntry{
	{"dbg", "text/plain", ""},
	{"cfg", "text/plain", ""},
	{"err", "text/plain", ""},
	{"log", "text/plain", ""},
	{"lst", "text/plain", ""},
	{"txt", "text/plain", ""},

	{"wsdl", "text/xml", ""},
	{"xml", "text/xml", ""},
	{"xsd", "text/xml", ""},
	{"xsl", "text/xml", ""},

	{"htm", "text/html", ""},
	{"html", "text/html", ""},

	{"pcap", "application/x-pcap", ""},

	{"pdf", "application/pdf", ""},

	{"tar", "application/x-tar", ""},
	{"tgz", "application/x-tar", "gzip"},
	{"tbz2", "application/x-tar", "bzip2"},

	{"rar", "application/rar", ""},
	{"zip", "application/zip", ""},
}

// mimePutHTTPCtype strips a recognized compression suffix (emitting
// Content-Encoding) then looks up the remaining extension, defaulting to
// application/octet-stream.
func mimePutHTTPCtype(c *Conn, q *Query, path string) {
	ob := c.queryOutbuf(q)
	base := filepath.Base(path)
	hasEnc := false

	switch {
	case strings.HasSuffix(base, ".gz"):
		ob.Adds("Content-Encoding: gzip\r\n")
		hasEnc = true
		base = strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".Z"):
		ob.Adds("Content-Encoding: compress\r\n")
		hasEnc = true
		base = strings.TrimSuffix(base, ".Z")
	case strings.HasSuffix(base, ".bz2"):
		ob.Adds("Content-Encoding: bzip2\r\n")
		hasEnc = true
		base = strings.TrimSuffix(base, ".bz2")
	}

	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	for _, e := range mimeTable {
		if strings.EqualFold(e.ext, ext) {
			ob.Addf("Content-Type: %s\r\n", e.ct)
			if !hasEnc && e.ce != "" {
				ob.Addf("Content-Encoding: %s\r\n", e.ce)
			}
			return
		}
	}
	ob.Adds("Content-Type: application/octet-stream\r\n")
}

const mmapThreshold = 16 << 10

// ReplyFile serves dir/file as the response body: a directory produces a
// listing (only when file ends in "/"), a regular file is mmap'd above
// 16KiB and streamed via plain reads otherwise, grounded on the
// original http-srv-static.c.
func (c *Conn) ReplyFile(q *Query, dir, file string, headOnly bool) {
	full := filepath.Join(dir, file)
	f, err := os.Open(full)
	if err != nil {
		c.RejectQ(q, 404, "not found")
		return
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		c.RejectQ(q, 404, "not found")
		return
	}
	if st.IsDir() {
		f.Close()
		if !strings.HasSuffix(file, "/") {
			c.RejectQ(q, 404, "not found")
			return
		}
		c.ReplyMakeIndex(q, full, headOnly)
		return
	}
	if !st.Mode().IsRegular() {
		f.Close()
		c.RejectQ(q, 404, "not found")
		return
	}

	var mapped []byte
	if !headOnly && st.Size() > mmapThreshold {
		mapped, err = unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			c.RejectQ(q, 500, "mmap failed")
			return
		}
		unix.Madvise(mapped, unix.MADV_SEQUENTIAL)
	}

	c.ReplyHdrsStart(q, 200, false)
	ob := c.queryOutbuf(q)
	ob.Addf("Last-Modified: %s\r\n", st.ModTime().UTC().Format(http11DateLayout))
	ob.Addf("ETag: %s\"%x-%x-%x\"\r\n", etagWeakPrefix(st.ModTime()), inodeOf(st), st.Size(), st.ModTime().Unix())
	mimePutHTTPCtype(c, q, file)
	c.ReplyHdrsDone(q, int(st.Size()), false)

	if !headOnly {
		if mapped != nil {
			ob.AddMmap(mapped)
			f.Close()
		} else {
			fd := int(f.Fd())
			if _, err := ob.XRead(fd, int(st.Size())); err != nil {
				f.Close()
				c.ReplyDone(q)
				return
			}
			f.Close()
		}
	} else {
		f.Close()
	}
	c.ReplyDone(q)
}

const http11DateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

func etagWeakPrefix(mtime time.Time) string {
	if time.Since(mtime) < 10*time.Second {
		return "W/"
	}
	return ""
}

// ReplyMakeIndex renders an HTML directory listing for dir.
func (c *Conn) ReplyMakeIndex(q *Query, dir string, headOnly bool) {
	st, err := os.Stat(dir)
	if err != nil {
		c.RejectQ(q, 404, "not found")
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.RejectQ(q, 404, "not found")
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	c.ReplyHdrsStart(q, 200, false)
	ob := c.queryOutbuf(q)
	ob.Addf("Last-Modified: %s\r\n", st.ModTime().UTC().Format(http11DateLayout))
	ob.Adds("Content-Type: text/html\r\n")
	c.ReplyHdrsDone(q, -1, true)

	if !headOnly {
		c.ReplyChunkStart(q)
		ob.Adds("<html><body><h1>Index</h1>")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if e.IsDir() {
				ob.Addf("<a href=\"%s/\">%s/</a><br>", name, name)
			} else if e.Type().IsRegular() {
				ob.Addf("<a href=\"%s\">%s</a><br>", name, name)
			}
		}
		ob.Adds("</body></html>")
		c.ReplyChunkDone(q)
	}
	c.ReplyDone(q)
}

// StaticDirTrigger returns a Trigger.Cb that serves files relative to
// root, joining the unmatched trie tail onto root.
func StaticDirTrigger(root string) func(q *Query) {
	root = strings.TrimRight(root, "/")
	return func(q *Query) {
		c := q.Conn()
		if c == nil {
			return
		}
		_, _, tail := c.trie.Resolve(q.info.RequestLine.Method, q.info.RequestLine.Path)
		rel := strings.TrimPrefix(tail, "/")
		c.ReplyFile(q, root, rel, q.info.RequestLine.Method.String() == "HEAD")
	}
}

func inodeOf(st os.FileInfo) uint64 {
	if sysStat, ok := st.Sys().(*unix.Stat_t); ok {
		return sysStat.Ino
	}
	return 0
}
