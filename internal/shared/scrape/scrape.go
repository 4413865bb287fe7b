// Package scrape holds the HTTP session shared by every page scraper: one
// cookie jar, one timeout, one User-Agent, and goquery parsing of responses.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	DefaultTimeout = 30 * time.Second
	UserAgent      = "folkomatic/1.0 (+news bot)"

	// maxBodySize caps downloads, images included.
	maxBodySize = 20 << 20
)

// Session is a cookie-keeping HTTP client. A fresh Session is used per batch
// so that an age-gate confirmation carries over to every entry page.
type Session struct {
	client *http.Client
}

// NewSession creates a session with its own cookie jar. A nil base client
// gets DefaultTimeout; otherwise the base transport and timeout are reused.
func NewSession(base *http.Client) *Session {
	jar, _ := cookiejar.New(nil)

	client := &http.Client{Timeout: DefaultTimeout, Jar: jar}
	if base != nil {
		client.Transport = base.Transport
		if base.Timeout > 0 {
			client.Timeout = base.Timeout
		}
	}
	return &Session{client: client}
}

// Client exposes the underlying client, e.g. for gofeed.
func (s *Session) Client() *http.Client {
	return s.client
}

// Get performs a GET and returns the response when the status is 200.
// The caller closes the body.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, oops.With("url", rawURL).Wrapf(errors.ErrFetch, "failed to create request: %v", err)
	}
	return s.do(req)
}

// PostForm submits form values and returns the response when the status is 200.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oops.With("url", rawURL).Wrapf(errors.ErrFetch, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// Document fetches rawURL and parses it as HTML.
func (s *Session) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := s.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, oops.With("url", rawURL).Wrapf(errors.ErrFetch, "failed to parse HTML: %v", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// Bytes downloads rawURL fully.
func (s *Session) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := s.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, oops.With("url", rawURL).Wrapf(errors.ErrFetch, "failed to read body: %v", err)
	}
	return data, nil
}

func (s *Session) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, oops.With("url", req.URL.String()).Wrapf(errors.ErrFetch, "request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, oops.
			With("url", req.URL.String(), "status", resp.StatusCode).
			Wrapf(errors.ErrFetch, "HTTP error: %s", resp.Status)
	}
	return resp, nil
}

// Text returns the trimmed text of every node matched by selector, in
// document order.
func Text(sel *goquery.Selection) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}

// Resolve turns a possibly scheme-relative or path-relative reference into an
// absolute URL. Scheme-relative references get http: like the source pages
// expect.
func Resolve(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty url")
	}
	if strings.HasPrefix(ref, "//") {
		return "http:" + ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() || base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}
