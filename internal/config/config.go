package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketOriginals string
	BucketResults   string
	UseSSL          bool
	Region          string
}

type SecurityConfig struct {
	JWTAccessSecret string
}

// ProviderConfig holds the endpoints and credentials for one external
// image-generation provider. Sync providers use EditURL only; queue
// providers use SubmitURL plus StatusURL (the queue handle is appended
// to StatusURL when polling).
type ProviderConfig struct {
	EditURL   string
	SubmitURL string
	StatusURL string
	APIKey    string
	Timeout   time.Duration
}

type ProvidersConfig struct {
	Sync  ProviderConfig
	Queue ProviderConfig

	PollInterval    time.Duration
	PollMaxAttempts int
	MaxConcurrent   int64
}

type JobsConfig struct {
	DefaultModel   string
	EnhancePrompt  string
	DecoratePrompt string
	EnhanceCost    float64
	DecorateCost   float64
	ReaperSchedule string
	StaleAfter     time.Duration
	ModelCacheTTL  time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Providers        ProvidersConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("ROOMLIFT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "180s") // a queue job can hold the request for the full poll window
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketoriginals", "roomlift-originals")
	v.SetDefault("storage.bucketresults", "roomlift-results")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("providers.sync.timeout", "120s")
	v.SetDefault("providers.queue.timeout", "30s")
	v.SetDefault("providers.pollinterval", "1s")
	v.SetDefault("providers.pollmaxattempts", 120)
	v.SetDefault("providers.maxconcurrent", 16)

	v.SetDefault("jobs.defaultmodel", "interior-relight-v2")
	v.SetDefault("jobs.enhanceprompt", "Enhance this property photograph: correct lighting and white balance, straighten verticals, keep the room layout and every fixture exactly as they are.")
	v.SetDefault("jobs.decorateprompt", "Virtually furnish this empty room in a warm contemporary style suited to a property listing. Keep walls, windows, floors and lighting untouched.")
	v.SetDefault("jobs.enhancecost", 1.0)
	v.SetDefault("jobs.decoratecost", 1.5)
	v.SetDefault("jobs.reaperschedule", "0 */5 * * * *")
	v.SetDefault("jobs.staleafter", "10m")
	v.SetDefault("jobs.modelcachettl", "5m")
}
