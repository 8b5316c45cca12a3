package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/models"
	"github.com/maxicourses/price-scraper/internal/parser"
)

type Browser struct {
	pw             *playwright.Playwright
	browser        playwright.Browser
	context        playwright.BrowserContext
	logger         *slog.Logger
	timeout        time.Duration
	botWallTimeout time.Duration
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	BotWallTimeout time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		BotWallTimeout: 3 * time.Minute,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "fr-FR,fr;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Paris",
		Locale:         "fr-FR",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

// OptionsFromConfig maps the environment-driven browser settings onto launch
// options, keeping the default extra headers.
func OptionsFromConfig(cfg config.BrowserConfig) *Options {
	opts := DefaultOptions()
	opts.Headless = cfg.Headless
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.BotWallTimeout > 0 {
		opts.BotWallTimeout = cfg.BotWallTimeout
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.ViewportWidth > 0 {
		opts.ViewportWidth = cfg.ViewportWidth
	}
	if cfg.ViewportHeight > 0 {
		opts.ViewportHeight = cfg.ViewportHeight
	}
	if cfg.AcceptLanguage != "" {
		opts.AcceptLanguage = cfg.AcceptLanguage
	}
	if cfg.TimezoneID != "" {
		opts.TimezoneID = cfg.TimezoneID
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	return opts
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
			"--start-maximized",
			"--user-agent=" + opts.UserAgent,
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Browser{
		pw:             pw,
		browser:        browser,
		context:        context,
		logger:         slog.Default().With("component", "browser"),
		timeout:        opts.Timeout,
		botWallTimeout: opts.BotWallTimeout,
	}, nil
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// FetchPage renders a product page and returns its final markup. The page is
// fully settled when this returns: consent banners dismissed, lazy content
// scrolled into view, and any anti-bot interstitial either resolved or
// reported in the returned markup after the wait budget ran out.
func (b *Browser) FetchPage(url string) (models.RawPage, error) {
	page, err := b.NewPage()
	if err != nil {
		return models.RawPage{}, err
	}
	defer page.Close()

	if err := b.NavigateWithRetry(page, url, 3); err != nil {
		return models.RawPage{}, err
	}

	b.dismissConsent(page)
	b.scrollThrough(page)

	markup, err := b.waitOutBotWall(page)
	if err != nil {
		return models.RawPage{}, err
	}

	title, err := page.Title()
	if err != nil {
		b.logger.Warn("failed to read page title", "error", err)
		title = ""
	}

	return models.NewRawPage(markup, title, url), nil
}

func (b *Browser) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
		})

		if err == nil {
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// Consent buttons seen on the French retail sites (OneTrust, Didomi, plus the
// retailers' own banners). First match wins; no match is not an error.
var consentSelectors = []string{
	`#onetrust-accept-btn-handler`,
	`#didomi-notice-agree-button`,
	`button:has-text("Tout accepter")`,
	`button:has-text("Accepter et fermer")`,
	`button:has-text("J'accepte")`,
	`#footer_tc_privacy_button_2`,
}

func (b *Browser) dismissConsent(page playwright.Page) {
	// Banners mount asynchronously after DOMContentLoaded.
	time.Sleep(2 * time.Second)

	for _, selector := range consentSelectors {
		button := page.Locator(selector).First()

		count, err := button.Count()
		if err != nil || count == 0 {
			continue
		}

		if err := button.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(3000),
		}); err != nil {
			b.logger.Debug("consent click failed", "selector", selector, "error", err)
			continue
		}

		b.logger.Info("dismissed consent banner", "selector", selector)
		time.Sleep(1 * time.Second)
		return
	}
}

// waitOutBotWall re-reads the rendered markup until the anti-bot interstitial
// clears or the wait budget runs out. DataDome walls on auchan.fr regularly
// resolve themselves once the JavaScript challenge completes, so patience
// beats a retry from a fresh session. On timeout the last markup is returned
// as-is; the extraction engine reports the wall.
func (b *Browser) waitOutBotWall(page playwright.Page) (string, error) {
	deadline := time.Now().Add(b.botWallTimeout)

	for {
		content, err := page.Content()
		if err != nil {
			return "", fmt.Errorf("failed to get page content: %w", err)
		}

		if !parser.IsBotWall(content) {
			return content, nil
		}

		if time.Now().After(deadline) {
			b.logger.Warn("bot wall did not clear before timeout")
			return content, nil
		}

		b.logger.Info("bot wall detected, waiting for challenge to clear")
		time.Sleep(5 * time.Second)
	}
}

// scrollThrough walks the viewport down the page so lazy-loaded price blocks
// and the related-products carousel render into the DOM.
func (b *Browser) scrollThrough(page playwright.Page) {
	for i := 0; i < 4; i++ {
		if _, err := page.Evaluate(`window.scrollBy(0, window.innerHeight)`); err != nil {
			b.logger.Debug("scroll failed", "error", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := page.Evaluate(`window.scrollTo(0, 0)`); err != nil {
		b.logger.Debug("scroll reset failed", "error", err)
	}
}
