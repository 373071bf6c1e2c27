package server

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/conneroisu/simplest/internal/errors"
)

// newProxy forwards requests to upstream, injecting the live-reload client
// into HTML responses when inject is set.
func newProxy(upstream string, inject bool) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"server.proxy must be an absolute http(s) URL").WithContext("proxy", upstream)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if inject {
				// the body is rewritten, so it must arrive uncompressed
				pr.Out.Header.Del("Accept-Encoding")
			}
		},
	}

	if inject {
		proxy.ModifyResponse = injectResponse
	}
	return proxy, nil
}

func injectResponse(resp *http.Response) error {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/html" || resp.Header.Get("Content-Encoding") != "" {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	body = InjectReload(body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}
