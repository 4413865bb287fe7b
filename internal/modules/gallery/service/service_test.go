package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div>
<span data-super-full-img="https://img.example.com/a/first.jpg" data-super-alt=" First "></span>
<span data-other="x"></span>
<span data-super-full-img="//img.example.com/b/second.png" data-super-alt="Second"></span>
</div>`))
	require.NoError(t, err)

	pictures := Candidates(doc)

	require.Len(t, pictures, 2)
	assert.Equal(t, "First", pictures[0].Caption)
	assert.Equal(t, "first.jpg", pictures[0].Filename)
	assert.Equal(t, "http://img.example.com/b/second.png", pictures[1].URL)
}

func TestRandom(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tag":
			w.Write([]byte(`<span data-super-full-img="` + srv.URL + `/img/x.jpg" data-super-alt="Caption X"></span>`))
		case "/img/x.jpg":
			w.Write([]byte("jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.URL.GalleryURLs = []string{srv.URL + "/tag?offset=%d"}

	picture, err := New(cfg, srv.Client()).Random(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Caption X", picture.Caption)
	assert.Equal(t, "x.jpg", picture.Filename)
	assert.Equal(t, []byte("jpeg-bytes"), picture.Data)
}

func TestRandom_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.URL.GalleryURLs = []string{srv.URL}

	_, err := New(cfg, srv.Client()).Random(context.Background())
	assert.Error(t, err)
}

func TestRandom_NoPages(t *testing.T) {
	_, err := New(&config.Config{}, nil).Random(context.Background())
	assert.Error(t, err)
}
