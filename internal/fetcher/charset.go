package fetcher

import (
	"mime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody converts body to UTF-8 using the charset declared in the
// Content-Type header. Unknown or undeclared charsets pass through unchanged.
func decodeBody(body []byte, contentType string) string {
	if contentType == "" {
		return string(body)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(body)
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		zap.L().Debug("fetcher: unsupported charset", zap.String("charset", cs))
		return string(body)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		zap.L().Debug("fetcher: charset decode failed", zap.String("charset", cs), zap.Error(err))
		return string(body)
	}
	return string(out)
}
