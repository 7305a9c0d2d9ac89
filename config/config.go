package config

import "time"

type Config struct {
	AppName                       string `env:"APP_NAME" env-default:"fern"`
	Port                          int    `env:"PORT" env-default:"3004"`
	LogLevel                      string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool   `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int    `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int    `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int    `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	StartupMaxAttempts            int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:""`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"fern"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SQL_MODE" env-default:"disable"`
	// Reconnect Retry Count
	DatabaseReconnectRetryCount int `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis host
	RedisHost string `env:"REDIS_HOST" env-default:"localhost"`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for engagement events
	KafkaEventsTopic string `env:"KAFKA_EVENTS_TOPIC" env-default:"engagement-events"`
	// Kafka producer enabled
	KafkaEnabled bool `env:"KAFKA_ENABLED" env-default:"true"`

	// LLM provider base URL
	LLMBaseURL string `env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	// LLM API key
	LLMAPIKey string `env:"LLM_API_KEY" env-default:""`
	// LLM model name
	LLMModel string `env:"LLM_MODEL" env-default:"gpt-4o-mini"`

	// Search provider base URL
	SearchBaseURL string `env:"SEARCH_BASE_URL" env-default:"https://api.tavily.com"`
	// Search API key
	SearchAPIKey string `env:"SEARCH_API_KEY" env-default:""`

	// Social API base URL
	SocialBaseURL string `env:"SOCIAL_BASE_URL" env-default:"https://api.linkedin.com/v2"`
	// Social API access token
	SocialAccessToken string `env:"SOCIAL_ACCESS_TOKEN" env-default:""`
	// Social API user ID (URN owner of likes and comments)
	SocialUserID string `env:"SOCIAL_USER_ID" env-default:""`

	// Posts feed base URL
	FeedBaseURL string `env:"FEED_BASE_URL" env-default:"https://real-time-data-enrichment.p.rapidapi.com"`
	// Posts feed API key
	FeedAPIKey string `env:"FEED_API_KEY" env-default:""`
	// Posts feed API host header
	FeedAPIHost string `env:"FEED_API_HOST" env-default:"real-time-data-enrichment.p.rapidapi.com"`

	// Pipeline settings
	// Maximum attempts per pipeline stage
	PipelineMaxAttempts int `env:"PIPELINE_MAX_ATTEMPTS" env-default:"3"`
	// Multiplier applied to the strategy's base word count
	PipelineWordCountFlexibility float64 `env:"PIPELINE_WORD_COUNT_FLEXIBILITY" env-default:"1.2"`
	// Minimum accepted draft length in characters
	PipelineMinCommentLength int `env:"PIPELINE_MIN_COMMENT_LENGTH" env-default:"10"`
	// Timeout per model call
	PipelinePerCallTimeout time.Duration `env:"PIPELINE_PER_CALL_TIMEOUT" env-default:"30s"`
	// Maximum research queries per post
	PipelineMaxQueries int `env:"PIPELINE_MAX_QUERIES" env-default:"4"`
	// Maximum search results per query
	PipelineMaxSearchResults int `env:"PIPELINE_MAX_SEARCH_RESULTS" env-default:"5"`

	// Funnel settings
	// How fresh the newest post must be for a profile to enter liking
	FunnelRecencyWindow time.Duration `env:"FUNNEL_RECENCY_WINDOW" env-default:"504h"`
	// Rest period before a maintenance profile may re-enter the funnel
	FunnelMaintenanceReentry time.Duration `env:"FUNNEL_MAINTENANCE_REENTRY" env-default:"4320h"`

	// Runner settings
	// Items processed per batch run
	RunnerBatchLimit int `env:"RUNNER_BATCH_LIMIT" env-default:"25"`
	// Minimum pause between social actions
	RunnerMinActionDelay time.Duration `env:"RUNNER_MIN_ACTION_DELAY" env-default:"5s"`
	// Maximum pause between social actions
	RunnerMaxActionDelay time.Duration `env:"RUNNER_MAX_ACTION_DELAY" env-default:"25s"`
	// Likes per profile within one run
	RunnerMaxLikesPerProfile int `env:"RUNNER_MAX_LIKES_PER_PROFILE" env-default:"3"`
	// Distributed lock TTL for batch runs
	RunnerLockTTL time.Duration `env:"RUNNER_LOCK_TTL" env-default:"30m"`
}
