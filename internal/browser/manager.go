package browser

import (
	"ai-test-agent/internal/config"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
)

// Manager owns the single playwright page a run is executed against.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

// Launch starts playwright and opens the page every run step works on. A
// failed launch releases whatever was already started.
func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	cfg := m.config.BrowserConfig

	if cfg.Install {
		step.AddEvent("installing chromium")

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return launchError(op, "playwright_install_failed", err)
		}
	}

	step.AddEvent("starting playwright")

	m.playwright, err = playwright.Run()
	if err != nil {
		return launchError(op, "playwright_start_failed", err)
	}

	if cfg.UserDataDir != "" {
		err = m.openPersistentContext(cfg)
	} else {
		err = m.openContext(cfg)
	}

	if err != nil {
		m.release(logger)

		return err
	}

	m.page.SetDefaultTimeout(float64(cfg.Timeout))
	m.page.SetDefaultNavigationTimeout(float64(cfg.Timeout))

	m.ready = true
	logger.Info("Browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("persistent", cfg.UserDataDir != ""),
		zap.String("locale", cfg.Locale))

	return nil
}

func (m *Manager) openPersistentContext(cfg *config.BrowserConfig) error {
	const op = "openPersistentContext"

	if err := os.MkdirAll(cfg.UserDataDir, 0o755); err != nil {
		return launchError(op, "mkdir_failed", err)
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(cfg.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(cfg.Headless),
		SlowMo:            playwright.Float(float64(cfg.SlowMo)),
		Viewport:          viewport(cfg),
		Locale:            playwright.String(cfg.Locale),
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreHTTPSErrors),
	})
	if err != nil {
		return launchError(op, "launch_persistent_failed", err)
	}

	m.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		m.page = pages[0]

		return nil
	}

	if m.page, err = browserContext.NewPage(); err != nil {
		return launchError(op, "page_create_failed", err)
	}

	return nil
}

func (m *Manager) openContext(cfg *config.BrowserConfig) error {
	const op = "openContext"

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo)),
	})
	if err != nil {
		return launchError(op, "browser_launch_failed", err)
	}

	m.browser = browser

	m.browserContext, err = browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          viewport(cfg),
		Locale:            playwright.String(cfg.Locale),
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreHTTPSErrors),
	})
	if err != nil {
		return launchError(op, "context_create_failed", err)
	}

	if m.page, err = m.browserContext.NewPage(); err != nil {
		return launchError(op, "page_create_failed", err)
	}

	return nil
}

func viewport(cfg *config.BrowserConfig) *playwright.Size {
	return &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
}

func launchError(op, reason string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: reason,
		apperr.MetaStage:  apperr.StageBrowser,
	})
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.release(logger); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Browser closed")

	return nil
}

// release closes everything Launch opened. Only a failure to stop the
// playwright driver is returned.
func (m *Manager) release(logger *zap.Logger) error {
	m.ready = false

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}

		m.browserContext = nil
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}

		m.browser = nil
	}

	m.page = nil

	if m.playwright == nil {
		return nil
	}

	pw := m.playwright
	m.playwright = nil

	return pw.Stop()
}

func (m *Manager) IsReady() bool {
	return m.ready
}

// checkPage makes sure an open page is available for op.
func (m *Manager) checkPage(op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return nil
}

func (m *Manager) ensurePageActive() error {
	if m.browserContext == nil {
		return fmt.Errorf("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p

			return nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.page = page

	return nil
}
