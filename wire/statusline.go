package wire

import (
	"strconv"
	"strings"
)

// StatusLine is the decoded form of `HTTP/M.m SP CODE SP REASON CRLF`.
type StatusLine struct {
	VersionMaj int
	VersionMin int
	Code       int
	Reason     string
}

// ParseStatusLine parses line (without the trailing CRLF).
func ParseStatusLine(line string) (StatusLine, error) {
	var sl StatusLine

	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return sl, ErrParseError.withContext("reason", "missing first space")
	}
	maj, min, err := parseHTTPVersion(line[:sp1])
	if err != nil {
		return sl, ErrParseError.withContext("version", line[:sp1])
	}
	sl.VersionMaj, sl.VersionMin = maj, min

	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	codeStr := rest
	reason := ""
	if sp2 >= 0 {
		codeStr = rest[:sp2]
		reason = rest[sp2+1:]
	}
	if len(codeStr) != 3 {
		return sl, ErrParseError.withContext("code", codeStr)
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 599 {
		return sl, ErrParseError.withContext("code", codeStr)
	}
	sl.Code = code
	sl.Reason = reason
	return sl, nil
}
