package browser

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (m *Manager) Navigate(ctx context.Context, url string, waitUntil entity.WaitFor, timeout int) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return err
	}

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.timeout(timeout))),
		WaitUntil: waitUntilState(waitUntil),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return err
	}

	err = m.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(m.timeout(0))),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return err
	}

	err = m.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(m.timeout(0))),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *Manager) WaitForSelector(ctx context.Context, selector string, timeout int) (found bool, err error) {
	const op = "WaitForSelector"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("selector", selector),
		attribute.Int("timeout", timeout))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return false, err
	}

	handle, err := m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(m.timeout(timeout))),
		State:   playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: selector,
		})
	}

	return handle != nil, nil
}

// WaitForURL waits until the page URL contains url.
func (m *Manager) WaitForURL(ctx context.Context, url string, timeout int) (err error) {
	const op = "WaitForURL"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return err
	}

	err = m.page.WaitForURL(regexp.MustCompile(regexp.QuoteMeta(url)), playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(m.timeout(timeout))),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "wait_url_timeout",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

func (m *Manager) WaitForLoadState(ctx context.Context, state entity.WaitFor, timeout int) (err error) {
	const op = "WaitForLoadState"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("state", string(state)))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return err
	}

	loadState := playwright.LoadStateDomcontentloaded
	if state == entity.WaitForNetworkIdle {
		loadState = playwright.LoadStateNetworkidle
	}

	err = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState,
		Timeout: playwright.Float(float64(m.timeout(timeout))),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "load_state_timeout",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

func (m *Manager) GetElementText(ctx context.Context, selector string) (text string, err error) {
	const op = "GetElementText"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return "", err
	}

	text, err = m.page.Locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(float64(m.timeout(0))),
	})
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "element_not_found",
			apperr.MetaSelector: selector,
		})
	}

	return text, nil
}

// timeout falls back to the configured browser timeout for non-positive values.
func (m *Manager) timeout(ms int) int {
	if ms > 0 {
		return ms
	}

	return m.config.BrowserConfig.Timeout
}

func waitUntilState(w entity.WaitFor) *playwright.WaitUntilState {
	if w == entity.WaitForNetworkIdle {
		return playwright.WaitUntilStateNetworkidle
	}

	return playwright.WaitUntilStateDomcontentloaded
}
