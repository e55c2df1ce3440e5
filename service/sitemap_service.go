package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const seoUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// SitemapCheck 单个站点的探测结果
type SitemapCheck struct {
	URL        string `json:"url"`
	Status     string `json:"status"` // found | not_found
	SitemapURL string `json:"sitemap_url,omitempty"`
}

// SitemapService 探测站点的 sitemap 位置：先看 robots.txt 的 Sitemap 声明，
// 再试常见路径并嗅探内容。
type SitemapService struct {
	HTTPClient *http.Client
}

func NewSitemapService() *SitemapService {
	return &SitemapService{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// ValidateSitemaps 并发探测多个站点
func (s *SitemapService) ValidateSitemaps(ctx context.Context, urls []string) []SitemapCheck {
	results := make([]SitemapCheck, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			check := SitemapCheck{URL: url, Status: "not_found"}
			if found, ok := s.FindSitemap(ctx, url); ok {
				check.Status = "found"
				check.SitemapURL = found
			}
			results[i] = check
		}(i, url)
	}
	wg.Wait()

	return results
}

// FindSitemap 返回站点 sitemap 的地址
func (s *SitemapService) FindSitemap(ctx context.Context, site string) (string, bool) {
	base := strings.TrimRight(strings.TrimSpace(site), "/")
	if base == "" {
		return "", false
	}

	// robots.txt 里的 Sitemap: 声明优先
	if robots, err := s.fetch(ctx, base+"/robots.txt"); err == nil {
		for _, line := range strings.Split(robots, "\n") {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) < 8 || !strings.EqualFold(trimmed[:8], "sitemap:") {
				continue
			}
			if loc := strings.TrimSpace(trimmed[8:]); loc != "" {
				return loc, true
			}
		}
	}

	candidates := []string{
		base + "/sitemap.xml",
		base + "/sitemap_index.xml",
		base + "/sitemap_index.xml.gz",
		base + "/sitemap.gz",
	}
	for _, candidate := range candidates {
		body, err := s.fetch(ctx, candidate)
		if err != nil {
			continue
		}
		if strings.Contains(body, "<urlset") || strings.Contains(body, "<sitemapindex") {
			return candidate, true
		}
	}

	return "", false
}

func (s *SitemapService) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", seoUserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
