package wire

import (
	"strconv"
	"strings"
)

// RequestLine is the decoded form of `METHOD SP TARGET SP HTTP/M.m CRLF`.
type RequestLine struct {
	Method      Method
	Target      string // raw target as received, before decode/split
	Path        string // decoded, simplified path component
	Query       string // raw query-string component (after '?')
	Host        string // populated only for absolute-form targets
	VersionMaj  int
	VersionMin  int
}

// ParseRequestLine parses line (without the trailing CRLF).
func ParseRequestLine(line string) (RequestLine, error) {
	var rl RequestLine

	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return rl, ErrBadRequest.withContext("reason", "missing first space")
	}
	methodStr := line[:sp1]
	rest := line[sp1+1:]

	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return rl, ErrBadRequest.withContext("reason", "missing second space")
	}
	target := rest[:sp2]
	versionStr := rest[sp2+1:]

	m, ok := ParseMethod(methodStr)
	if !ok {
		return rl, ErrBadRequest.withContext("method", methodStr)
	}
	rl.Method = m

	maj, min, err := parseHTTPVersion(versionStr)
	if err != nil {
		return rl, err
	}
	rl.VersionMaj, rl.VersionMin = maj, min

	rl.Target = target
	if host, rawTarget, ok := splitAbsoluteForm(target); ok {
		rl.Host = host
		target = rawTarget
	}

	path := target
	query := ""
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		path = target[:idx]
		query = target[idx+1:]
	}
	decodedPath, err := URLDecode(path, false)
	if err != nil {
		return rl, err
	}
	rl.Path = simplifyPath(decodedPath)
	rl.Query = query
	return rl, nil
}

func parseHTTPVersion(s string) (maj, min int, err error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(s, prefix) {
		return 0, 0, ErrBadRequest.withContext("version", s)
	}
	s = s[len(prefix):]
	dot := strings.IndexByte(s, '.')
	if dot != 1 || len(s) != 3 {
		return 0, 0, ErrBadRequest.withContext("version", s)
	}
	maj64, e1 := strconv.ParseInt(s[:1], 10, 8)
	min64, e2 := strconv.ParseInt(s[2:3], 10, 8)
	if e1 != nil || e2 != nil {
		return 0, 0, ErrBadRequest.withContext("version", s)
	}
	return int(maj64), int(min64), nil
}

// splitAbsoluteForm recognizes `http(s)://host/...` targets and splits the
// host out, returning the origin-form remainder (always starting with '/').
func splitAbsoluteForm(target string) (host, rest string, ok bool) {
	for _, scheme := range [...]string{"http://", "https://"} {
		if strings.HasPrefix(target, scheme) {
			remainder := target[len(scheme):]
			slash := strings.IndexByte(remainder, '/')
			if slash < 0 {
				return remainder, "/", true
			}
			return remainder[:slash], remainder[slash:], true
		}
	}
	return "", target, false
}

// simplifyPath collapses "//", resolves "." and ".." segments, the way an
// HTTP server must to avoid serving outside a mounted directory.
func simplifyPath(p string) string {
	if p == "" {
		return "/"
	}
	abs := strings.HasPrefix(p, "/")
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	joined := strings.Join(out, "/")
	if abs {
		joined = "/" + joined
	}
	if joined == "" {
		joined = "/"
	}
	return joined
}
