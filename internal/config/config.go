package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable, e.g. DISTRITHERM_API_BASE_URL.
const EnvPrefix = "DISTRITHERM"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	LogConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	IsDev() bool
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Logging
}

// New loads an optional .env file and then reads the environment.
func New(envFiles ...string) (Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	var c mainConfig
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("[config.New] parsing environment: %w", err)
	}
	if err := c.API.validate(); err != nil {
		return nil, fmt.Errorf("[config.New] %w", err)
	}
	return c, nil
}

// Default returns the built in defaults without reading the environment.
func Default() Config {
	return mainConfig{
		EnvVars: EnvVars{AppName: defaultAppName, Env: envDev},
		API: API{
			BaseURL:        defaultBaseURL,
			Platform:       defaultPlatform,
			LoginPath:      defaultLoginPath,
			RequestTimeout: defaultRequestTimeout,
			UploadTimeout:  defaultUploadTimeout,
		},
		Storage: Storage{Kind: StoreFile, File: defaultSessionFile, RedisPrefix: defaultRedisPrefix},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		// A missing default .env is not an error.
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("[config.New] loading %v: %w", files, err)
	}
	return nil
}
