package wire

import "strings"

// WKHdr tags a header name recognized by the RFC 2616 general/request/
// response/entity sets, plus SOAPAction. A header not in this table is
// still carried (see Header) but tagged WKHdrOther.
type WKHdr uint8

const (
	WKHdrOther WKHdr = iota
	// General headers
	WKHdrCacheControl
	WKHdrConnection
	WKHdrDate
	WKHdrPragma
	WKHdrTrailer
	WKHdrTransferEncoding
	WKHdrUpgrade
	WKHdrVia
	WKHdrWarning
	// Request headers
	WKHdrAccept
	WKHdrAcceptCharset
	WKHdrAcceptEncoding
	WKHdrAcceptLanguage
	WKHdrAuthorization
	WKHdrExpect
	WKHdrFrom
	WKHdrHost
	WKHdrIfMatch
	WKHdrIfModifiedSince
	WKHdrIfNoneMatch
	WKHdrIfRange
	WKHdrIfUnmodifiedSince
	WKHdrMaxForwards
	WKHdrProxyAuthorization
	WKHdrRange
	WKHdrReferer
	WKHdrTE
	WKHdrUserAgent
	WKHdrSOAPAction
	// Response headers
	WKHdrAcceptRanges
	WKHdrAge
	WKHdrETag
	WKHdrLocation
	WKHdrProxyAuthenticate
	WKHdrRetryAfter
	WKHdrServer
	WKHdrVary
	WKHdrWWWAuthenticate
	// Entity headers
	WKHdrAllow
	WKHdrContentEncoding
	WKHdrContentLanguage
	WKHdrContentLength
	WKHdrContentLocation
	WKHdrContentMD5
	WKHdrContentRange
	WKHdrContentType
	WKHdrExpires
	WKHdrLastModified
)

var wkHdrNames = map[string]WKHdr{
	"cache-control":       WKHdrCacheControl,
	"connection":          WKHdrConnection,
	"date":                WKHdrDate,
	"pragma":              WKHdrPragma,
	"trailer":             WKHdrTrailer,
	"transfer-encoding":   WKHdrTransferEncoding,
	"upgrade":             WKHdrUpgrade,
	"via":                 WKHdrVia,
	"warning":             WKHdrWarning,
	"accept":              WKHdrAccept,
	"accept-charset":      WKHdrAcceptCharset,
	"accept-encoding":     WKHdrAcceptEncoding,
	"accept-language":     WKHdrAcceptLanguage,
	"authorization":       WKHdrAuthorization,
	"expect":              WKHdrExpect,
	"from":                WKHdrFrom,
	"host":                WKHdrHost,
	"if-match":            WKHdrIfMatch,
	"if-modified-since":   WKHdrIfModifiedSince,
	"if-none-match":       WKHdrIfNoneMatch,
	"if-range":            WKHdrIfRange,
	"if-unmodified-since": WKHdrIfUnmodifiedSince,
	"max-forwards":        WKHdrMaxForwards,
	"proxy-authorization": WKHdrProxyAuthorization,
	"range":               WKHdrRange,
	"referer":             WKHdrReferer,
	"te":                  WKHdrTE,
	"user-agent":          WKHdrUserAgent,
	"soapaction":          WKHdrSOAPAction,
	"accept-ranges":       WKHdrAcceptRanges,
	"age":                 WKHdrAge,
	"etag":                WKHdrETag,
	"location":            WKHdrLocation,
	"proxy-authenticate":  WKHdrProxyAuthenticate,
	"retry-after":         WKHdrRetryAfter,
	"server":              WKHdrServer,
	"vary":                WKHdrVary,
	"www-authenticate":    WKHdrWWWAuthenticate,
	"allow":               WKHdrAllow,
	"content-encoding":    WKHdrContentEncoding,
	"content-language":    WKHdrContentLanguage,
	"content-length":      WKHdrContentLength,
	"content-location":    WKHdrContentLocation,
	"content-md5":         WKHdrContentMD5,
	"content-range":       WKHdrContentRange,
	"content-type":        WKHdrContentType,
	"expires":             WKHdrExpires,
	"last-modified":       WKHdrLastModified,
}

// LookupWKHdr resolves a header name (any case) to its well-known tag.
func LookupWKHdr(name string) WKHdr {
	if wk, ok := wkHdrNames[strings.ToLower(name)]; ok {
		return wk
	}
	return WKHdrOther
}

// Header is one parsed header line: its well-known tag (if any), raw key
// and value views, folded-continuation already concatenated.
type Header struct {
	WK    WKHdr
	Key   string
	Value string
}

// EqualsFold reports whether s equals t ignoring case, for header-value
// token comparisons such as an Upgrade or Connection token list.
func EqualsFold(s, t string) bool {
	return strings.EqualFold(s, t)
}

// ContainsToken reports whether the comma-separated token list in h
// contains tok, case-insensitively — the semantics of
// `Connection: close` detection (http_hdr_contains in the original).
func ContainsToken(h, tok string) bool {
	for _, part := range strings.Split(h, ",") {
		if strings.EqualFold(strings.TrimSpace(part), tok) {
			return true
		}
	}
	return false
}
