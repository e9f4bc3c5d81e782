package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"topic-studio/internal/cache"
	"topic-studio/internal/config"
	"topic-studio/internal/llm"
	"topic-studio/internal/logger"
	"topic-studio/internal/queue"
	"topic-studio/internal/store"
	"topic-studio/internal/studio"
)

// Deps bundles common runtime dependencies for the CLI and services.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Cache  cache.Cache
	Store  store.Store // nil when STORE_PROVIDER=none
	Queue  queue.Queue // nil for the CLI

	closers []func() error
}

// BuildCLI wires the generation client, the answer cache and the optional
// store. Logs go to logOut so stdout stays reserved for generated text.
// The CLI logs at warn unless LOG_LEVEL says otherwise.
func BuildCLI(logOut io.Writer, overrides ...func(*config.Config)) (Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Deps{}, err
	}
	if _, ok := os.LookupEnv("LOG_LEVEL"); !ok {
		cfg.LogLevel = "warn"
	}
	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	deps := Deps{Config: cfg, Log: logger.NewWithWriter(cfg.LogLevel, logOut)}
	if err := deps.buildCommon(); err != nil {
		deps.Close()
		return Deps{}, err
	}
	if cfg.StoreProvider != "none" {
		st, err := buildStore(cfg, deps.Log)
		if err != nil {
			deps.Close()
			return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
		}
		deps.Store = st
		deps.closers = append(deps.closers, st.Close)
	}
	return deps, nil
}

// BuildService wires everything the api and worker need. Postgres and NATS
// are mandatory here.
func BuildService() (Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Deps{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	deps := Deps{Config: cfg, Log: logger.New(cfg.LogLevel)}
	if err := deps.buildCommon(); err != nil {
		deps.Close()
		return Deps{}, err
	}

	st, err := buildStore(cfg, deps.Log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.Store = st
	deps.closers = append(deps.closers, st.Close)

	q, closeQueue, err := buildQueue(cfg, deps.Log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	deps.closers = append(deps.closers, closeQueue)
	return deps, nil
}

// Pipeline builds the outline → summary pipeline on the shared client.
func (d Deps) Pipeline() *studio.Pipeline {
	return studio.NewPipeline(
		studio.NewOutlineStreamer(d.LLM, d.Config.OutlineMaxTokens, d.Log),
		studio.NewSummarizer(d.LLM, d.Config.SummaryMaxTokens),
		d.Log,
	)
}

// Answerer builds the grounded answerer behind the answer cache.
func (d Deps) Answerer() studio.Answerer {
	grounded := studio.NewGroundedAnswerer(d.LLM, d.Config.AnswerMaxTokens)
	if d.Cache == nil {
		return grounded
	}
	return studio.NewCachingAnswerer(grounded, d.Cache, d.Config.CacheTTLDuration(), d.Log)
}

// Close releases connections in reverse order of acquisition.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && d.Log != nil {
			d.Log.Warn("failed to close dependency", "err", err)
		}
	}
}

func (d *Deps) buildCommon() error {
	llmClient, err := buildLLM(d.Config, d.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}
	d.LLM = llmClient
	d.Cache = buildCache(d.Config, d.Log)
	d.closers = append(d.closers, d.Cache.Close)
	return nil
}

func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return config.Load(), nil
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.LLMModel, llm.OpenAIOptions{
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", client.Model())
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

// buildCache falls back to a no-op cache when Redis is not configured or
// cannot be reached; answers are then always generated.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.CacheAddr == "" {
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.CacheAddr, cfg.CachePassword)
	if err != nil {
		log.Warn("redis unavailable, answer cache disabled", "addr", cfg.CacheAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis answer cache", "addr", cfg.CacheAddr, "ttl", cfg.CacheTTLDuration())
	return c
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, func() error, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("topic-studio"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc, queue.NATSOptions{}), nc.Drain, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}
