package httpd

import (
	"encoding/base64"
	"strings"

	"github.com/momentics/hioload-http/wire"
)

// extractBasicAuth looks for an Authorization: Basic header, base64-decodes
// the user:pass payload and splits it on the first colon.
func extractBasicAuth(headers []wire.Header) (user, pass string, ok bool) {
	h, found := wire.HeaderByWK(headers, wire.WKHdrAuthorization)
	if !found {
		return "", "", false
	}
	const prefix = "Basic "
	if len(h.Value) <= len(prefix) || !strings.EqualFold(h.Value[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(h.Value[len(prefix):])
	if err != nil {
		return "", "", false
	}
	idx := strings.IndexByte(string(decoded), ':')
	if idx < 0 {
		return "", "", false
	}
	return string(decoded[:idx]), string(decoded[idx+1:]), true
}
