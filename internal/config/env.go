package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Dataset
	EnvDataDir      = "DATA_DIR"
	EnvDataWatch    = "DATA_WATCH"
	EnvDefaultBatch = "DEFAULT_BATCH"
	EnvTimezone     = "TIMEZONE"
	EnvJournalPath  = "JOURNAL_PATH"
	EnvAdminUserIDs = "ADMIN_USER_IDS"

	// Conversation history
	EnvHistoryMaxUsers = "HISTORY_MAX_USERS"
	EnvHistoryIdleTTL  = "HISTORY_IDLE_TTL"

	// Rate Limits
	EnvUserRatePerSecond = "USER_RATE_PER_SECOND"
	EnvUserRateBurst     = "USER_RATE_BURST"
	EnvLLMRatePerHour    = "LLM_RATE_PER_HOUR"
	EnvLLMRateBurst      = "LLM_RATE_BURST"

	// LLM
	EnvLLMProviders  = "LLM_PROVIDERS"
	EnvLLMTimeout    = "LLM_TIMEOUT"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvGeminiModel   = "GEMINI_MODEL"
	EnvGroqAPIKey    = "GROQ_API_KEY"
	EnvGroqModel     = "GROQ_MODEL"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"

	// R2 backup
	EnvR2Enabled         = "R2_ENABLED"
	EnvR2AccountID       = "R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "R2_BUCKET_NAME"
	EnvR2BackupKey       = "R2_BACKUP_KEY"

	// Sentry
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SENTRY_SAMPLE_RATE"

	// Better Stack
	EnvBetterStackToken    = "BETTERSTACK_SOURCE_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"

	// Metrics auth
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"
)
