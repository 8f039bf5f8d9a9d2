package config

type Config interface {
	EnvConfig
	CorsConfig
	UserPoolConfig
	ContentConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	UserPool
	Content
}

func New() Config {
	return mainConfig{}
}
