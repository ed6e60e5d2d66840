package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "CRYPTOMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CRYPTOMART_DB_DSN"
	EnvDBHost = "CRYPTOMART_DB_HOST"
	EnvDBUser = "CRYPTOMART_DB_USER"
	EnvDBName = "CRYPTOMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
