package locator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

// PageSource retrieves the HTML of a listing page.
type PageSource interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPPage retrieves a listing page with a plain GET.
type HTTPPage struct {
	Client    *http.Client
	UserAgent string
}

// Fetch implements PageSource. A transport failure or a non-2xx status is a
// FETCH error.
func (p *HTTPPage) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apperrors.NewFetchError(pageURL, err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewFetchError(pageURL, fmt.Errorf("bad status: %s", resp.Status)).
			WithContext("status", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetchError(pageURL, err)
	}
	return body, nil
}

// BrowserPage renders a listing page in headless Chrome and returns the
// resulting DOM, for pages that build their link tables with script.
type BrowserPage struct {
	Headless bool
	Timeout  time.Duration
}

// Fetch implements PageSource.
func (p *BrowserPage) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", p.Headless))
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if p.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, p.Timeout)
		defer cancelTimeout()
	}

	var doc string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	)
	if err != nil {
		return nil, apperrors.NewFetchError(pageURL, err)
	}
	return []byte(doc), nil
}
