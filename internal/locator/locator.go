package locator

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/infrastructure"
)

// Link is one download URL and the source it was found on.
type Link struct {
	URL    string
	Source config.SourceConfig
}

// Locator turns listing pages into download links.
type Locator struct {
	page   PageSource
	logger *slog.Logger
}

// New creates a Locator reading pages through page.
func New(page PageSource, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{page: page, logger: logger}
}

// Locate returns the spreadsheet links of one source. Any failure to retrieve
// or parse the listing page is returned as-is; no partial list is produced.
func (l *Locator) Locate(ctx context.Context, src config.SourceConfig) ([]string, error) {
	pageURL, err := url.Parse(src.URL)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return nil, apperrors.NewConfigError("invalid listing url "+src.URL, err)
	}

	base := pageURL
	if src.BaseURL != "" {
		b, err := url.Parse(strings.TrimRight(src.BaseURL, "/") + "/")
		if err != nil {
			return nil, apperrors.NewConfigError("invalid base url "+src.BaseURL, err)
		}
		base = b
	}

	body, err := l.page.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	links, err := ExtractLinks(bytes.NewReader(body), base, LinkOptions{
		SkipTables: src.SkipTables,
		MaxTables:  src.MaxTables,
		Extensions: src.Extensions,
	})
	if err != nil {
		return nil, apperrors.NewFetchError(src.URL, err)
	}

	l.logger.InfoContext(ctx, "Located spreadsheet links",
		slog.String("source", src.Name),
		slog.String("url", src.URL),
		slog.Int("links", len(links)))
	return links, nil
}

// LocateAll locates every source in order. The first failure aborts.
func (l *Locator) LocateAll(ctx context.Context, sources []config.SourceConfig) ([]Link, error) {
	var out []Link
	for _, src := range sources {
		urls, err := l.Locate(ctx, src)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			out = append(out, Link{URL: u, Source: src})
		}
	}
	return out, nil
}

// NewPageSource picks the page retrieval mode from configuration.
func NewPageSource(cfg *config.Config) PageSource {
	if cfg.ListingMode == config.ListingModeBrowser {
		return &BrowserPage{Headless: true, Timeout: config.BrowserRenderTimeout}
	}
	return &HTTPPage{
		Client:    infrastructure.NewHTTPClient(cfg.Fetch.Timeout),
		UserAgent: config.DefaultUserAgent,
	}
}
