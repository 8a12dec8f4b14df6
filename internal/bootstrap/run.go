package bootstrap

import (
	"ai-test-agent/internal/usecase"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runScript launches the browser on start, runs the script in the
// background and shuts the application down when the run ends.
func runScript(lc fx.Lifecycle, shutdowner fx.Shutdowner, service *usecase.Service, script ScriptText, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("Launching browser...")

			if err := service.Browser.Launch(startCtx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))
				cancel()

				return err
			}

			go func() {
				defer close(done)

				exitCode := 0

				state, err := service.Runner.RunScript(ctx, string(script))
				if err != nil {
					logger.Error("Run aborted", zap.Error(err))
					exitCode = 1
				} else {
					logger.Info("Run completed",
						zap.String("run_id", state.RunID.String()),
						zap.Int("completed_steps", state.CurrentIndex),
						zap.Int("total_steps", len(state.Steps)))
				}

				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Shutting down...")

			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn("Run did not stop in time")
			}

			if service.Browser.IsReady() {
				if err := service.Browser.Close(stopCtx); err != nil {
					logger.Error("Failed to close browser", zap.Error(err))
				}
			}

			return nil
		},
	})
}
