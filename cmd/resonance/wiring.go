package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	httpadapter "github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/http"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/events"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/llm"
	filestore "github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/file"
	firestorestore "github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/firestore"
	memstore "github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/memory"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/s3store"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/agentflow"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/briefs"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/conversation"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/history"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/app/personas"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/config"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// app holds every wired component.
type app struct {
	registry     *personas.Registry
	orchestrator *agentflow.Orchestrator
	briefs       *briefs.Service
	history      *history.Service
	conversation *conversation.Service
	workspaces   domain.WorkspaceStore

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{registry: personas.Default()}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		historyStore domain.HistoryStore
		sessionStore domain.SessionStore = memstore.NewSessionStore()
		messageStore domain.MessageStore = memstore.NewMessageStore()
	)

	log := observability.Logger()
	switch cfg.HistoryBackend {
	case config.BackendFirestore:
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing Firestore store: %w", err)
		}
		a.closers = append(a.closers, fsStore.Close)

		// 1 store, implements 3 interfaces
		historyStore, sessionStore, messageStore = fsStore, fsStore, fsStore

	case config.BackendS3:
		log.Info("using S3 history storage", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		historyStore, err = s3store.NewHistoryStore(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("initializing S3 store: %w", err)
		}

	case config.BackendMemory:
		log.Info("using in-memory history storage")
		historyStore = memstore.NewHistoryStore()

	default:
		log.Info("using file history storage", "dir", cfg.HistoryDir)
		historyStore, err = filestore.NewHistoryStore(cfg.HistoryDir)
		if err != nil {
			return nil, err
		}
	}

	var publisher domain.BriefPublisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, err
		}
		log.Info("publishing briefs to kafka", "topic", cfg.KafkaTopic)
		a.closers = append(a.closers, kp.Close)
		publisher = kp
	}

	a.orchestrator = agentflow.NewDefaultOrchestrator(llmClient, a.registry, historyStore,
		agentflow.Options{MaxConcurrency: cfg.MaxConcurrency})
	a.briefs = briefs.NewService(llmClient, historyStore, publisher, cfg.MaxConcurrency)
	a.history = history.NewService(historyStore)
	a.conversation = conversation.NewService(llmClient, a.registry, sessionStore, messageStore)
	a.workspaces = memstore.NewWorkspaceStore()
	return a, nil
}

func buildLLM(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	log := observability.Logger()

	var (
		caller llm.ModelCaller
		models = cfg.Models
	)
	switch cfg.LLMProvider {
	case config.ProviderMock:
		log.Info("using MOCK LLM client")
		return llm.NewMockLLM(), nil

	case config.ProviderAnthropic:
		caller = llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:  cfg.APIKey(config.ProviderAnthropic),
			BaseURL: cfg.AnthropicBaseURL,
		})
		if len(models) == 0 {
			models = llm.DefaultAnthropicModels
		}

	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.APIKey(config.ProviderGemini))
		if err != nil {
			return nil, err
		}
		caller = c
		if len(models) == 0 {
			models = llm.DefaultGeminiModels
		}

	case config.ProviderVertex:
		c, err := llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation)
		if err != nil {
			return nil, err
		}
		caller = c
		if len(models) == 0 {
			models = llm.DefaultGeminiModels
		}

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.MaxConcurrency, 1))
	}

	client, err := llm.NewFallbackClient(caller, llm.FallbackConfig{
		Models:      models,
		CallTimeout: cfg.CallTimeout,
		Limiter:     limiter,
	})
	if err != nil {
		return nil, err
	}

	if err := client.CheckCredentials(ctx); err != nil {
		log.Warn("llm credential check failed; runs will be refused until it is configured",
			"provider", cfg.LLMProvider,
			"error", err)
	}
	log.Info("using LLM provider", "provider", cfg.LLMProvider, "models", client.Models())
	return client, nil
}

func (a *app) handler() http.Handler {
	return httpadapter.NewServer(httpadapter.Deps{
		Personas:      a.registry,
		Conversations: a.conversation,
		Orchestrator:  a.orchestrator,
		Briefs:        a.briefs,
		History:       a.history,
		Workspaces:    a.workspaces,
	})
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
