package biz

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/internal/nyx/metrics"
	"github.com/kart-io/nyx/pkg/infra/tracing"
	"github.com/kart-io/nyx/pkg/utils/httpclient"

	errno "github.com/kart-io/nyx/pkg/errors"
)

const (
	scrapeUserAgent = "Mozilla/5.0 (compatible; NyxBot/1.0; +https://nyx.chat)"
	scrapeAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	excerptRunes    = 200
)

// ScrapeConfig 抓取配置。
type ScrapeConfig struct {
	Timeout    time.Duration
	MaxRetries int
	// MaxBytes 读取页面的上限。
	MaxBytes int64
}

// DefaultScrapeConfig 返回默认抓取配置。
func DefaultScrapeConfig() *ScrapeConfig {
	return &ScrapeConfig{
		Timeout:    15 * time.Second,
		MaxRetries: 1,
		MaxBytes:   5 << 20,
	}
}

// ScrapeResult 提取出的正文。
type ScrapeResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Length  int    `json:"length"`
	Excerpt string `json:"excerpt"`
}

// Scraper 抓取 HTML 页面并提取可读正文。
type Scraper struct {
	client   *httpclient.Client
	maxBytes int64
	metrics  *metrics.Metrics
}

// NewScraper 创建抓取器。
func NewScraper(cfg *ScrapeConfig) *Scraper {
	if cfg == nil {
		cfg = DefaultScrapeConfig()
	}
	return &Scraper{
		client:   httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
		maxBytes: cfg.MaxBytes,
		metrics:  metrics.Get(),
	}
}

// WithHTTPClient 替换底层 HTTP 客户端，测试使用。
func (s *Scraper) WithHTTPClient(hc *http.Client) *Scraper {
	s.client.WithHTTPClient(hc)
	return s
}

// Scrape 抓取 rawURL 并返回正文。只接受 http/https。
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*ScrapeResult, error) {
	res, err := s.scrape(ctx, rawURL)
	s.metrics.RecordScrape(err)
	return res, err
}

func (s *Scraper) scrape(ctx context.Context, rawURL string) (*ScrapeResult, error) {
	if rawURL == "" {
		return nil, errno.ErrMissingParam.WithMessage("URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errno.ErrInvalidURL
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "Scraper.Scrape")
	defer span.End()
	span.SetAttributes(tracing.String(tracing.AttrURLHost, parsed.Host))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, errno.ErrInvalidURL
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept", scrapeAccept)

	resp, err := s.client.DoRequest(req)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, fetchFailed(se.StatusCode)
		}
		logger.Warnw("failed to fetch page", "url", rawURL, "error", err.Error())
		return nil, errno.ErrScrapeFailed.WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetchFailed(resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, errno.ErrNotHTML
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, s.maxBytes), parsed)
	if err != nil {
		logger.Warnw("failed to parse page", "url", rawURL, "error", err.Error())
		return nil, errno.ErrNoReadableContent.WithCause(err)
	}

	content := collapseWhitespace(article.TextContent)
	if content == "" {
		return nil, errno.ErrNoReadableContent
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = parsed.Hostname()
	}
	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = truncateRunes(content, excerptRunes) + "..."
	}

	return &ScrapeResult{
		Title:   title,
		Content: content,
		Length:  utf8.RuneCountInString(content),
		Excerpt: excerpt,
	}, nil
}

func fetchFailed(status int) error {
	return errno.ErrFetchFailed.WithMessagef("Failed to fetch URL: %d %s", status, http.StatusText(status))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
