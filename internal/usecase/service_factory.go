package usecase

import (
	"ai-test-agent/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateExecutorService() adapters.ExecutorService {
	return NewExecutor(ExecutorParams{
		Logger:      f.deps.Logger,
		Browser:     f.deps.Browser,
		Snapshotter: f.deps.Browser,
	})
}

func (f *serviceFactory) CreateRunnerService(executor adapters.ExecutorService) adapters.RunnerService {
	maxReplans := 0
	if f.deps.Config.RunConfig != nil {
		maxReplans = f.deps.Config.RunConfig.MaxReplans
	}

	machine := NewStepMachine(StepMachineParams{
		Logger:      f.deps.Logger,
		Snapshotter: f.deps.Browser,
		Planner:     f.deps.Planner,
		Reviewer:    f.deps.Reviewer,
		Executor:    executor,
		MaxReplans:  maxReplans,
	})

	return NewRunner(RunnerParams{
		Logger:   f.deps.Logger,
		Machine:  machine,
		Reviewer: f.deps.Reviewer,
		Reporter: f.deps.Reporter,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}
