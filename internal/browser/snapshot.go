package browser

import (
	"ai-test-agent/internal/entity"
	"ai-test-agent/pkg/apperr"
	"ai-test-agent/pkg/logg"
	"ai-test-agent/pkg/tracing"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Snapshot captures the current url, title and body markup of the page.
func (m *Manager) Snapshot(ctx context.Context) (snap *entity.Snapshot, err error) {
	const op = "Snapshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := m.checkPage(op); err != nil {
		return nil, err
	}

	content, err := m.page.Content()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	title, err := m.page.Title()
	if err != nil {
		logger.Warn("Failed to read page title", zap.Error(err))
	}

	return &entity.Snapshot{
		URL:      m.page.URL(),
		Title:    title,
		BodyHTML: StripBody(content),
	}, nil
}

// StripBody returns the outer markup of <body> with every svg subtree
// removed. The parser always supplies a body, so fragments come back wrapped
// in one. content is returned unchanged only when it cannot be parsed or
// rendered.
func StripBody(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}

	body := doc.Find("body").First()
	body.Find("svg").Remove()

	out, err := goquery.OuterHtml(body)
	if err != nil {
		return content
	}

	return out
}
