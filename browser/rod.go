package browser

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

// Browser owns one rod browser connection and its single working tab.
// The pipeline processes products strictly sequentially, so one tab is all
// it ever needs.
type Browser struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher // non-nil only for locally launched browsers
	router   *rod.HijackRouter
}

// Connect attaches to a remote browser over CDP (a session provider's
// connect endpoint) and prepares its tab. Disconnecting later does not kill
// the remote browser; the provider owns its lifecycle.
func Connect(ctx context.Context, controlURL string, cfg config.BrowserConfig) (*Browser, error) {
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, models.NewResearchError(
			models.ErrCodeSession,
			"failed to connect to remote browser",
			err,
		)
	}

	// Remote sessions usually come with a default tab; reuse it rather
	// than opening a second one the provider would also record.
	var page *rod.Page
	if pages, err := b.Pages(); err == nil && len(pages) > 0 {
		page = pages.First()
	} else {
		p, err := b.Page(proto.TargetCreateTarget{})
		if err != nil {
			_ = b.Close()
			return nil, models.NewResearchError(
				models.ErrCodeSession,
				"failed to open page on remote browser",
				err,
			)
		}
		page = p
	}

	br := &Browser{browser: b, page: page}
	br.preparePage(cfg)
	return br, nil
}

// Launch starts a local headless browser and prepares a tab. This is the
// fallback path when no session provider is configured.
func Launch(ctx context.Context, cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewResearchError(
			models.ErrCodeSession,
			"failed to launch local browser",
			err,
		)
	}
	slog.Info("local browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewResearchError(
			models.ErrCodeSession,
			"failed to connect to local browser",
			err,
		)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		l.Cleanup()
		return nil, models.NewResearchError(
			models.ErrCodeSession,
			"failed to open page on local browser",
			err,
		)
	}

	br := &Browser{browser: b, page: page, launcher: l}
	br.preparePage(cfg)
	return br, nil
}

// preparePage installs stealth JS, the Accept-Language header, and the
// resource-blocking hijack router. All three must be in place before the
// first navigation to take effect.
func (b *Browser) preparePage(cfg config.BrowserConfig) {
	if _, err := b.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	if cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Accept-Language": gson.New(cfg.AcceptLanguage),
			},
		}.Call(b.page)
	}

	b.router = mountResourceBlocker(b.page, cfg.BlockedResourceTypes)
}

// Page returns the automation surface for the working tab, bound to ctx so
// a caller deadline propagates to every rod operation.
func (b *Browser) Page(ctx context.Context) Page {
	return &rodPage{page: b.page.Context(ctx), ctx: ctx}
}

// Close stops the hijack router and disconnects. For locally launched
// browsers it also kills the Chrome process and removes its data dir.
func (b *Browser) Close() {
	if b.router != nil {
		_ = b.router.Stop()
	}
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// rodPage adapts *rod.Page to the Page interface.
type rodPage struct {
	page *rod.Page
	ctx  context.Context
}

func (p *rodPage) Navigate(url string) error {
	if err := p.page.Navigate(url); err != nil {
		return models.NewResearchError(models.ErrCodeNavigation, "navigation failed", err)
	}
	if err := p.page.WaitLoad(); err != nil {
		slog.Debug("load event did not arrive, proceeding with current DOM", "error", err)
	}
	return nil
}

func (p *rodPage) Fill(selector, text string) error {
	el, err := p.page.Element(selector)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) Click(selector string) error {
	el, err := p.page.Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) WaitSettle(d time.Duration) {
	select {
	case <-time.After(d):
	case <-p.ctx.Done():
	}
}

func (p *rodPage) Screenshot(path string) error {
	data, err := p.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
