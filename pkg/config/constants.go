package config

// EnvPrefix is passed to envconfig; individual fields carry the full
// SABZICO_ name so lookups stay greppable.
const EnvPrefix = "sabzico"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SABZICO_APP_ENV"
	EnvPort     = "SABZICO_APP_PORT"
	EnvRedisURL = "SABZICO_REDIS_URL"

	EnvDBDSN  = "SABZICO_DB_DSN"
	EnvDBHost = "SABZICO_DB_HOST"
	EnvDBUser = "SABZICO_DB_USER"
	EnvDBName = "SABZICO_DB_NAME"

	EnvJWTSecret = "SABZICO_JWT_SECRET"
	EnvJWTIssuer = "SABZICO_JWT_ISSUER"

	EnvGCPProjectID           = "SABZICO_GCP_PROJECT_ID"
	EnvPubSubFulfillmentTopic = "SABZICO_PUBSUB_FULFILLMENT_TOPIC"
	EnvPubSubFulfillmentSub   = "SABZICO_PUBSUB_FULFILLMENT_SUBSCRIPTION"
	EnvPubSubNotificationSub  = "SABZICO_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
