package config

// StoreKind selects where the session is persisted between runs.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"

	defaultSessionFile = ".distritherm/session.json"
	defaultRedisPrefix = "distritherm"
)

type StorageConfig interface {
	GetSessionStore() StoreKind
	GetSessionFile() string
	GetSessionSecret() string
	GetRedisURL() string
	GetRedisPrefix() string
}

type Storage struct {
	Kind        StoreKind `envconfig:"SESSION_STORE" default:"file"`
	File        string    `envconfig:"SESSION_FILE" default:".distritherm/session.json"`
	Secret      string    `envconfig:"SESSION_SECRET"`
	RedisURL    string    `envconfig:"REDIS_URL"`
	RedisPrefix string    `envconfig:"REDIS_PREFIX" default:"distritherm"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetSessionStore() StoreKind {
	if s.Kind == "" {
		return StoreFile
	}
	return s.Kind
}

func (s Storage) GetSessionFile() string {
	if s.File == "" {
		return defaultSessionFile
	}
	return s.File
}

func (s Storage) GetSessionSecret() string {
	return s.Secret
}

func (s Storage) GetRedisURL() string {
	return s.RedisURL
}

func (s Storage) GetRedisPrefix() string {
	return s.RedisPrefix
}

type LogConfig interface {
	GetLogLevel() string
	GetLogFormat() string
}

type Logging struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"`
}

var _ LogConfig = Logging{}

func (l Logging) GetLogLevel() string {
	return l.Level
}

func (l Logging) GetLogFormat() string {
	return l.Format
}
