// Package fetcher is the outbound transport shared by every source adapter
// and by enrichment.
package fetcher

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Transport issues read-only GET requests. Every failure is reported as a
// *model.TransportError (or *model.ParseError for an undecodable JSON body).
type Transport interface {
	// FetchText returns the response body decoded to UTF-8.
	FetchText(ctx context.Context, rawURL string, params url.Values) (string, error)

	// FetchJSON returns the parsed response body.
	FetchJSON(ctx context.Context, rawURL string, params url.Values) (gjson.Result, error)
}

// BuildURL merges params into the query string of rawURL. Existing keys are
// replaced.
func BuildURL(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
