package usecase

import (
	"ai-test-agent/internal/config"
	"ai-test-agent/internal/ports"
	"ai-test-agent/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Runner   adapters.RunnerService
	Executor adapters.ExecutorService
	Browser  adapters.BrowserService
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Config   *config.Config
	Browser  ports.BrowserManager
	Planner  ports.Planner
	Reviewer ports.Reviewer
	Reporter ports.Reporter
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)
	executor := factory.CreateExecutorService()

	return &Service{
		Runner:   factory.CreateRunnerService(executor),
		Executor: executor,
		Browser:  factory.CreateBrowserService(),
	}
}
