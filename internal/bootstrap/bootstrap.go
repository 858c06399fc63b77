// Package bootstrap turns a config.Config into the wired dependencies shared
// by the API server and the terminal client.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/PabloGalante/serviceai-agent/internal/adapters/llm"
	"github.com/PabloGalante/serviceai-agent/internal/adapters/queue"
	firestorestore "github.com/PabloGalante/serviceai-agent/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/serviceai-agent/internal/adapters/storage/memory"
	pgstore "github.com/PabloGalante/serviceai-agent/internal/adapters/storage/postgres"
	"github.com/PabloGalante/serviceai-agent/internal/app/conversation"
	"github.com/PabloGalante/serviceai-agent/internal/app/tools"
	"github.com/PabloGalante/serviceai-agent/internal/app/workspace"
	"github.com/PabloGalante/serviceai-agent/internal/config"
	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// App holds everything a front end needs. Close releases it in reverse order.
type App struct {
	Data      domain.BusinessData
	Workspace *workspace.Manager

	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New opens the business backend, the optional handoff queue and the model
// gateway selected by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	data, closeData, err := openBusinessData(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("business data: %w", err)
	}
	app.Data = data
	app.closers = append(app.closers, closeData)

	var notifier domain.HandoffNotifier
	if cfg.RedisURL != "" {
		n, err := queue.NewNotifier(cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("handoff queue: %w", err)
		}
		notifier = n
		app.closers = append(app.closers, func() { closeQuietly(n) })
		observability.Logger().Info("handoff queue enabled")
	}

	dispatcher := tools.NewDispatcher(data, notifier)

	deps := workspace.Deps{
		Users:    memstore.NewUserDirectory(memstore.DemoUsers()),
		NewStore: func() domain.ConversationStore { return memstore.NewConversationStore() },
		Tools:    dispatcher,
		Options: conversation.Options{
			MaxToolRounds: cfg.MaxToolRounds,
			ModelTimeout:  cfg.ModelTimeout,
		},
		Voice: cfg.LiveVoice,
	}
	if err := wireGateway(ctx, cfg, dispatcher.Declarations(), &deps); err != nil {
		app.Close()
		return nil, fmt.Errorf("model gateway: %w", err)
	}
	observability.Logger().Info("model gateway ready", "provider", cfg.LLMProvider, "voice", deps.Live != nil)

	app.Workspace = workspace.NewManager(deps)
	app.closers = append(app.closers, app.Workspace.Close)
	return app, nil
}

func wireGateway(ctx context.Context, cfg *config.Config, decls []domain.ToolDeclaration, deps *workspace.Deps) error {
	switch cfg.LLMProvider {
	case config.ProviderGemini, config.ProviderVertex:
		gc := llm.GeminiConfig{
			Model:      cfg.ModelName,
			TitleModel: cfg.TitleModelName,
			LiveModel:  cfg.LiveModelName,
			Voice:      cfg.LiveVoice,
		}
		if cfg.LLMProvider == config.ProviderVertex {
			gc.Project = cfg.GCPProjectID
			gc.Location = cfg.GCPLocation
		} else {
			gc.APIKey = cfg.GeminiAPIKey
		}
		gw, err := llm.NewGeminiGateway(ctx, gc, decls)
		if err != nil {
			return err
		}
		deps.Gateway, deps.Titles, deps.Live = gw, gw, gw

	case config.ProviderOpenAI:
		gw := llm.NewOpenAIGateway(llm.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
		}, decls)
		deps.Gateway, deps.Titles = gw, gw

	default:
		mock := llm.NewMockGateway()
		deps.Gateway, deps.Titles = mock, mock
	}
	return nil
}

func openBusinessData(ctx context.Context, cfg *config.Config) (domain.BusinessData, func(), error) {
	log := observability.Logger()

	switch cfg.DataBackend {
	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres business data")
		return pgstore.NewStore(pool), pool.Close, nil

	case config.BackendFirestore:
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, err
		}
		if cfg.SeedData {
			ds := memstore.DefaultDataset()
			if err := fs.Seed(ctx, ds.Orders, ds.Products, ds.Transactions); err != nil {
				closeQuietly(fs)
				return nil, nil, err
			}
		}
		log.Info("using firestore business data", "project", cfg.GCPProjectID)
		return fs, func() { closeQuietly(fs) }, nil

	default:
		ds := memstore.DefaultDataset()
		if cfg.DataFile != "" {
			loaded, err := memstore.LoadDataset(cfg.DataFile)
			if err != nil {
				return nil, nil, err
			}
			ds = loaded
		}
		log.Info("using in-memory business data")
		return memstore.NewBusinessStore(ds), func() {}, nil
	}
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		observability.Logger().Warn("close failed", "error", err)
	}
}
