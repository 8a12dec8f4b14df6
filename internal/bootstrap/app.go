package bootstrap

import (
	"ai-test-agent/internal/ai"
	"ai-test-agent/internal/browser"
	"ai-test-agent/internal/config"
	"ai-test-agent/internal/console"
	"ai-test-agent/internal/ports"
	"ai-test-agent/internal/usecase"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// ScriptText is the test script the application runs.
type ScriptText string

func NewApp(script string) *fx.App {
	return fx.New(
		fx.Supply(ScriptText(script)),

		fx.Provide(
			config.GetConfig,
			newLogger,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(ai.NewClient, fx.As(new(ports.Planner))),
			fx.Annotate(console.NewInterface, fx.As(new(ports.Reviewer), new(ports.Reporter))),

			usecase.NewUsecase,
		),

		fx.WithLogger(newFxLogger),

		fx.Invoke(
			registerTracing,
			runScript,
		),

		fx.StartTimeout(2*time.Minute),
	)
}

func newFxLogger(config *config.Config, logger *zap.Logger) fxevent.Logger {
	if config.AppConfig.Debug {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	}

	return fxevent.NopLogger
}
