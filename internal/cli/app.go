package cli

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	commentrepo "github.com/Ramsey-B/fern/internal/repositories/comment"
	postrepo "github.com/Ramsey-B/fern/internal/repositories/post"
	profilerepo "github.com/Ramsey-B/fern/internal/repositories/profile"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/funnel"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/importer"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/llm"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/runner"
	"github.com/Ramsey-B/fern/pkg/scrape"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/social"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// App holds the wired service graph for one command invocation.
type App struct {
	Config   *config.Config
	Logger   ectologger.Logger
	DB       database.DB
	Redis    *redis.Client
	Producer *kafka.Producer
	Emitter  events.Emitter
	Locker   *redis.Locker

	Profiles *profilerepo.Repository
	Posts    *postrepo.Repository
	Comments *commentrepo.Repository

	Funnel   *funnel.Controller
	Engine   *pipeline.Engine
	Social   *social.Client
	Feed     *scrape.Client
	Importer *importer.Importer
}

// newApp loads config, connects the dependencies, and runs migrations.
func newApp(ctx context.Context) (*App, error) {
	godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	tracing.SetTracer(otel.Tracer(cfg.AppName))

	db, err := database.Connect(ctx, database.Config{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	driver, err := database.MigrationDriver(db)
	if err != nil {
		return nil, err
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, err
	}

	var producer *kafka.Producer
	var emitter events.Emitter = events.NoopEmitter{}
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaEventsTopic), logger)
		emitter = producer
	}

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)

	profiles := profilerepo.NewRepository(db, logger)
	posts := postrepo.NewRepository(db, logger)
	comments := commentrepo.NewRepository(db, logger)

	controller := funnel.NewController(profiles, emitter, funnel.Config{
		RecencyWindow:      cfg.FunnelRecencyWindow,
		MaintenanceReentry: cfg.FunnelMaintenanceReentry,
	}, logger)

	generator := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	}, httpClient, logger)

	searcher := search.NewClient(httpClient, search.Config{
		BaseURL:    cfg.SearchBaseURL,
		APIKey:     cfg.SearchAPIKey,
		MaxResults: cfg.PipelineMaxSearchResults,
	}, logger)

	engine := pipeline.NewEngine(generator, searcher, comments, pipeline.Config{
		MaxAttempts:          cfg.PipelineMaxAttempts,
		WordCountFlexibility: cfg.PipelineWordCountFlexibility,
		MinCommentLength:     cfg.PipelineMinCommentLength,
		PerCallTimeout:       cfg.PipelinePerCallTimeout,
		MaxQueries:           cfg.PipelineMaxQueries,
		MaxSearchResults:     cfg.PipelineMaxSearchResults,
	}, logger)

	socialClient := social.NewClient(social.Config{
		BaseURL:     cfg.SocialBaseURL,
		AccessToken: cfg.SocialAccessToken,
		UserID:      cfg.SocialUserID,
	}, httpClient, logger)

	feed := scrape.NewClient(scrape.Config{
		BaseURL: cfg.FeedBaseURL,
		APIKey:  cfg.FeedAPIKey,
		APIHost: cfg.FeedAPIHost,
	}, httpClient, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    redisClient,
		Producer: producer,
		Emitter:  emitter,
		Locker:   redis.NewLocker(redisClient, ""),
		Profiles: profiles,
		Posts:    posts,
		Comments: comments,
		Funnel:   controller,
		Engine:   engine,
		Social:   socialClient,
		Feed:     feed,
		Importer: importer.New(profiles, logger),
	}, nil
}

func (a *App) runnerConfig() runner.Config {
	return runner.Config{
		BatchLimit:         a.Config.RunnerBatchLimit,
		MinActionDelay:     a.Config.RunnerMinActionDelay,
		MaxActionDelay:     a.Config.RunnerMaxActionDelay,
		LikeRecency:        a.Config.FunnelRecencyWindow,
		MaxLikesPerProfile: a.Config.RunnerMaxLikesPerProfile,
		LockTTL:            a.Config.RunnerLockTTL,
	}
}

// Close releases the app's connections.
func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close database")
		}
	}
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}
