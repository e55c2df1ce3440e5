package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSitemapFromRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /admin\nSitemap: https://cdn.example.com/sm.xml\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc := NewSitemapService()
	found, ok := svc.FindSitemap(context.Background(), server.URL+"/")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/sm.xml", found)
}

func TestFindSitemapFallsBackToCommonPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap_index.xml":
			w.Write([]byte(`<?xml version="1.0"?><sitemapindex></sitemapindex>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	svc := NewSitemapService()
	found, ok := svc.FindSitemap(context.Background(), server.URL)
	assert.True(t, ok)
	assert.Equal(t, server.URL+"/sitemap_index.xml", found)
}

func TestFindSitemapIgnoresNonSitemapBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 所有路径都返回 200，但内容不是 sitemap
		w.Write([]byte("<html><body>soft 404</body></html>"))
	}))
	defer server.Close()

	svc := NewSitemapService()
	_, ok := svc.FindSitemap(context.Background(), server.URL)
	assert.False(t, ok)
}

func TestValidateSitemapsKeepsInputOrder(t *testing.T) {
	withSitemap := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Write([]byte("<urlset></urlset>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer withSitemap.Close()

	without := httptest.NewServer(http.NotFoundHandler())
	defer without.Close()

	svc := NewSitemapService()
	results := svc.ValidateSitemaps(context.Background(),
		[]string{without.URL, withSitemap.URL})

	assert.Len(t, results, 2)
	assert.Equal(t, without.URL, results[0].URL)
	assert.Equal(t, "not_found", results[0].Status)
	assert.Empty(t, results[0].SitemapURL)
	assert.Equal(t, withSitemap.URL, results[1].URL)
	assert.Equal(t, "found", results[1].Status)
	assert.Equal(t, withSitemap.URL+"/sitemap.xml", results[1].SitemapURL)
}
