package app

import (
	"context"
	"errors"

	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/appetiteclub/posboard/services/dashboard/internal/dashboard"
	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"
)

const (
	AppName    = "dashboard"
	AppVersion = "0.1.0"
)

// App encapsulates the dashboard service application
type App struct {
	config   *aqm.Config
	logger   aqm.Logger
	settings Settings
	micro    *aqm.Micro
	bus      *bus.Bus
}

// New creates a new dashboard service application
func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	settings, err := LoadSettings(config)
	if err != nil {
		return nil, err
	}
	return &App{
		config:   config,
		logger:   logger,
		settings: settings,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	if a.settings.BackendURL == "" {
		return errors.New("backend.url is required")
	}

	tr, err := pkg.OpenTransport(a.settings.Bus, a.logger)
	if err != nil {
		return err
	}

	a.bus = bus.New(
		bus.WithTransport(tr.Publisher, tr.Subscriber),
		bus.WithTopic(a.settings.Bus.Topic),
		bus.WithLogger(a.logger),
	)

	normalizer := normalize.New(
		normalize.WithEmptySuccessPolicy(a.settings.EmptyPolicy),
		normalize.WithLogger(a.logger),
	)
	client := posapi.NewClient(a.settings.BackendURL,
		posapi.WithTimeout(a.settings.BackendTimeout),
		posapi.WithNormalizer(normalizer),
		posapi.WithLogger(a.logger),
	)

	handler := dashboard.NewHandler(dashboard.HandlerDeps{
		Backend:        client,
		Bus:            a.bus,
		PollInterval:   a.settings.PollInterval,
		AllowedOrigins: a.settings.AllowedOrigins,
	}, a.config, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: false,
	})

	transportLifecycle := aqm.LifecycleHooks{
		OnStop: func(context.Context) error { return tr.Close() },
	}
	lifecycles := []interface{}{transportLifecycle, a.bus}

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	a.logger.Info("update bus configured",
		"transport", a.settings.Bus.Transport.Code(),
		"topic", a.settings.Bus.Topic,
		"bus_id", a.bus.ID(),
	)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
