package wire

import (
	"testing"
	"time"
)

func TestParseRequestLineSimple(t *testing.T) {
	rl, err := ParseRequestLine("GET /hello?x=1 HTTP/1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.Method != GET {
		t.Errorf("method = %v, want GET", rl.Method)
	}
	if rl.Path != "/hello" {
		t.Errorf("path = %q, want /hello", rl.Path)
	}
	if rl.Query != "x=1" {
		t.Errorf("query = %q, want x=1", rl.Query)
	}
	if rl.VersionMaj != 1 || rl.VersionMin != 1 {
		t.Errorf("version = %d.%d, want 1.1", rl.VersionMaj, rl.VersionMin)
	}
}

func TestParseRequestLineAbsoluteForm(t *testing.T) {
	rl, err := ParseRequestLine("GET http://example.com/u HTTP/1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.Host != "example.com" {
		t.Errorf("host = %q, want example.com", rl.Host)
	}
	if rl.Path != "/u" {
		t.Errorf("path = %q, want /u", rl.Path)
	}
}

func TestParseRequestLineBadMethod(t *testing.T) {
	if _, err := ParseRequestLine("FROB / HTTP/1.1"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestSimplifyPathDotDot(t *testing.T) {
	rl, err := ParseRequestLine("GET /a/../b//c/./ HTTP/1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.Path != "/b/c" {
		t.Errorf("path = %q, want /b/c", rl.Path)
	}
}

func TestParseStatusLine(t *testing.T) {
	sl, err := ParseStatusLine("HTTP/1.1 404 Not Found")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sl.Code != 404 || sl.Reason != "Not Found" {
		t.Errorf("got code=%d reason=%q", sl.Code, sl.Reason)
	}
}

func TestParseStatusLineBadCode(t *testing.T) {
	if _, err := ParseStatusLine("HTTP/1.1 99 X"); err == nil {
		t.Fatal("expected error for out-of-range code")
	}
}

func TestContainsTokenCaseInsensitive(t *testing.T) {
	if !ContainsToken("Keep-Alive, Close", "close") {
		t.Error("expected token match")
	}
	if ContainsToken("Keep-Alive", "close") {
		t.Error("unexpected token match")
	}
}

func TestURLDecode(t *testing.T) {
	got, err := URLDecode("a%20b+c", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a b c" {
		t.Errorf("got %q, want %q", got, "a b c")
	}
}

func TestURLDecodeTruncated(t *testing.T) {
	if _, err := URLDecode("a%2", false); err == nil {
		t.Fatal("expected error for truncated escape")
	}
}

func TestSplitLinesFoldedContinuation(t *testing.T) {
	lines := SplitLines("X-Foo: bar\r\n baz\r\nY: 1")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0] != "X-Foo: bar baz" {
		t.Errorf("folded line = %q", lines[0])
	}
}

func TestParseHeaderBlockWellKnown(t *testing.T) {
	hdrs, err := ParseHeaderBlock([]string{"Host: example.com", "Content-Length: 5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, ok := HeaderByWK(hdrs, WKHdrContentLength)
	if !ok || h.Value != "5" {
		t.Errorf("expected Content-Length=5, got %+v ok=%v", h, ok)
	}
}

func TestParseHeaderBlockMalformed(t *testing.T) {
	if _, err := ParseHeaderBlock([]string{"NoColonHere"}); err == nil {
		t.Fatal("expected error for missing colon")
	}
}

func TestChunkPatchRoundTrip(t *testing.T) {
	prefix := ChunkStartBytes()
	buf := append(prefix[:], []byte("hello")...)
	if err := ChunkPatch(buf, 0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hdr, err := ParseChunkHeader(string(buf[2:10]))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdr.Size != 5 {
		t.Errorf("size = %d, want 5", hdr.Size)
	}
}

func TestParseChunkHeaderWithExtension(t *testing.T) {
	hdr, err := ParseChunkHeader("a;foo=bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdr.Size != 10 {
		t.Errorf("size = %d, want 10", hdr.Size)
	}
}

func TestDateCacheReusesWithinSecond(t *testing.T) {
	var c DateCache
	t1 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	line1 := c.Line(t1)
	line2 := c.Line(t1.Add(500 * time.Millisecond))
	if line1 != line2 {
		t.Errorf("expected cached line to be reused: %q vs %q", line1, line2)
	}
	line3 := c.Line(t1.Add(2 * time.Second))
	if line3 == line1 {
		t.Error("expected cache to refresh after second boundary")
	}
}
