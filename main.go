package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	orchestratorx "github.com/tanpawarit/vehicle-ai-concierge/agent/agents/orchestrator"
	routerx "github.com/tanpawarit/vehicle-ai-concierge/agent/agents/router"
	specialistx "github.com/tanpawarit/vehicle-ai-concierge/agent/agents/specialist"
	apix "github.com/tanpawarit/vehicle-ai-concierge/agent/api"
	catalogx "github.com/tanpawarit/vehicle-ai-concierge/agent/catalog"
	contractx "github.com/tanpawarit/vehicle-ai-concierge/agent/contract"
	leadx "github.com/tanpawarit/vehicle-ai-concierge/agent/lead"
	llmx "github.com/tanpawarit/vehicle-ai-concierge/agent/llm"
	promptx "github.com/tanpawarit/vehicle-ai-concierge/agent/prompt"
	starterx "github.com/tanpawarit/vehicle-ai-concierge/agent/starter"
	statex "github.com/tanpawarit/vehicle-ai-concierge/agent/state"
	toolx "github.com/tanpawarit/vehicle-ai-concierge/agent/tool"
	configx "github.com/tanpawarit/vehicle-ai-concierge/pkg/config"
	gcsx "github.com/tanpawarit/vehicle-ai-concierge/pkg/gcs"
	geminix "github.com/tanpawarit/vehicle-ai-concierge/pkg/gemini"
	_ "github.com/tanpawarit/vehicle-ai-concierge/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/vehicle-ai-concierge/pkg/openrouter"
	postgresx "github.com/tanpawarit/vehicle-ai-concierge/pkg/postgres"
	qstashx "github.com/tanpawarit/vehicle-ai-concierge/pkg/qstash"
	vertexsearchx "github.com/tanpawarit/vehicle-ai-concierge/pkg/vertexsearch"
)

// Backends that are only wired when their settings are present.
type optionalBackends struct {
	PostgresDSN string        `envconfig:"POSTGRES_DSN"`
	UpstashURL  string        `envconfig:"UPSTASH_REDIS_URL"`
	QStashToken string        `envconfig:"QSTASH_TOKEN"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

const shutdownTimeout = 15 * time.Second

func mustLoad[T any](prefix string) *T {
	cfg, err := configx.New[T](prefix)
	if err != nil {
		log.Fatal().Err(err).Str("prefix", prefix).Msg("invalid configuration")
	}
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmCfg := mustLoad[llmx.Config]("OPENROUTER")
	apiCfg := mustLoad[apix.Config]("HTTP")
	orchCfg := mustLoad[orchestratorx.Config]("ORCHESTRATOR")
	geminiCfg := mustLoad[geminix.Config]("GEMINI")
	gcsCfg := mustLoad[gcsx.Config]("GCS")
	searchCfg := mustLoad[vertexsearchx.Config]("SEARCH")
	optional := mustLoad[optionalBackends]("")

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		log.Fatal().Err(err).Msg("prompt templates incomplete")
	}

	var db *bun.DB
	if strings.TrimSpace(optional.PostgresDSN) != "" {
		pgCfg := mustLoad[postgresx.Config]("POSTGRES")
		var err error
		db, err = postgresx.Open(ctx, *pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer db.Close()
	}

	store := newConversationStore(optional)
	executor := newCatalogExecutor(ctx, db)
	sink := newLeadSink(ctx, db, optional)

	searcher, err := vertexsearchx.NewClient(ctx, *searchCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create search client")
	}
	editor, err := geminix.NewImageEditor(ctx, *geminiCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create image editor")
	}
	uploader, err := gcsx.NewUploader(ctx, *gcsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object storage client")
	}
	defer uploader.Close()

	agents, err := specialistx.Build(ctx, specialistx.Deps{
		LLM:      *llmCfg,
		Prompts:  prompts,
		Executor: executor,
		Searcher: searcher,
		Editor:   editor,
		Uploader: uploader,
		LeadSink: sink,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build tool agents")
	}

	table, err := routerx.LoadTable()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load routing table")
	}
	routerCfg := llmCfg.OpenRouterFor(llmx.RoleRouter)
	routerModel, err := routerCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create router model")
	}
	router, err := routerx.New(ctx, routerModel, prompts.Router, table)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create router")
	}

	orch, err := orchestratorx.New(store, router, agents, table, *orchCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create orchestrator")
	}

	starterCfg := llmCfg.OpenRouterFor(llmx.RoleStarter)
	starters := starterx.NewGenerator(
		openrouterx.NewClient(starterCfg),
		starterCfg.Model,
		float64(starterCfg.Temperature),
		prompts.Starters,
		orch,
	)

	srv := &http.Server{
		Addr:              apiCfg.Addr,
		Handler:           apix.NewServer(*apiCfg, orch, starters).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", apiCfg.Addr).
			Strs("capabilities", capabilityNames(agents.Capabilities())).
			Msg("concierge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newConversationStore(optional *optionalBackends) statex.Store {
	if strings.TrimSpace(optional.UpstashURL) == "" {
		log.Warn().Msg("UPSTASH_REDIS_URL not set, keeping conversations in memory")
		return statex.NewMemoryStore()
	}
	cfg := mustLoad[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*cfg, statex.WithTTL(optional.SessionTTL))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create conversation store")
	}
	return store
}

func newCatalogExecutor(ctx context.Context, db *bun.DB) toolx.Executor {
	static, err := catalogx.LoadStatic()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load bundled catalog")
	}
	if db == nil {
		return toolx.NewExecutor(static, static)
	}

	if err := catalogx.CreateSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create catalog schema")
	}
	if err := catalogx.Seed(ctx, db, static); err != nil {
		log.Fatal().Err(err).Msg("failed to seed catalog")
	}
	pg := catalogx.NewPostgres(db)
	return toolx.NewExecutor(pg, pg)
}

func newLeadSink(ctx context.Context, db *bun.DB, optional *optionalBackends) contractx.LeadSink {
	var sinks leadx.MultiSink
	if db != nil {
		pg := leadx.NewPostgresSink(db)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create lead schema")
		}
		sinks = append(sinks, pg)
	}
	if strings.TrimSpace(optional.QStashToken) != "" {
		cfg := mustLoad[qstashx.Config]("QSTASH")
		client, err := qstashx.NewClient(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create qstash client")
		}
		sinks = append(sinks, leadx.NewQStashSink(client))
	}

	switch len(sinks) {
	case 0:
		log.Warn().Msg("no lead sink configured, leads are kept in memory")
		return leadx.NewMemorySink()
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

func capabilityNames(caps []contractx.Capability) []string {
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, string(c))
	}
	return out
}
