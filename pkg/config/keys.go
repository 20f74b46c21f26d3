package config

const (
	EnvPrefix = "MENUBOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BotModePolling = "polling"
	BotModeWebhook = "webhook"

	EnvAppEnv    = "MENUBOT_APP_ENV"
	EnvPort      = "MENUBOT_APP_PORT"
	EnvLogLevel  = "MENUBOT_LOG_LEVEL"
	EnvLogFormat = "MENUBOT_LOG_FORMAT"

	EnvBotToken         = "MENUBOT_BOT_TOKEN"
	EnvBotMode          = "MENUBOT_BOT_MODE"
	EnvBotWebhookSecret = "MENUBOT_BOT_WEBHOOK_SECRET"

	EnvOperatorIDs = "MENUBOT_OPERATOR_IDS"

	EnvSanityProjectID = "MENUBOT_SANITY_PROJECT_ID"
	EnvSanityDataset   = "MENUBOT_SANITY_DATASET"
	EnvCatalogLocale   = "MENUBOT_CATALOG_LOCALE"
	EnvCatalogRefresh  = "MENUBOT_CATALOG_REFRESH_INTERVAL"

	EnvRedisURL = "MENUBOT_REDIS_URL"

	EnvGCPProjectID      = "MENUBOT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "MENUBOT_PUBSUB_ORDERS_TOPIC"
)
