package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Generation   GenerationConfig
	Publishing   PublishingConfig
	Cron         CronConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AUTOPOST_APP_ENV" required:"true"`
	Port         string `envconfig:"AUTOPOST_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AUTOPOST_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"AUTOPOST_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"AUTOPOST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AUTOPOST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AUTOPOST_DB_DSN"`
	Driver string `envconfig:"AUTOPOST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AUTOPOST_DB_HOST"`
	LegacyPort     int    `envconfig:"AUTOPOST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AUTOPOST_DB_USER"`
	LegacyPassword string `envconfig:"AUTOPOST_DB_PASSWORD"`
	LegacyName     string `envconfig:"AUTOPOST_DB_NAME"`
	LegacySSLMode  string `envconfig:"AUTOPOST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AUTOPOST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AUTOPOST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AUTOPOST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AUTOPOST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"AUTOPOST_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AUTOPOST_REDIS_URL"`
	Address      string        `envconfig:"AUTOPOST_REDIS_ADDR"`
	Password     string        `envconfig:"AUTOPOST_REDIS_PASSWORD"`
	DB           int           `envconfig:"AUTOPOST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AUTOPOST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AUTOPOST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AUTOPOST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AUTOPOST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AUTOPOST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AUTOPOST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AUTOPOST_AUTO_MIGRATE" default:"false"`
}

// GenerationConfig points at the four external content generators.
type GenerationConfig struct {
	CaptionURL     string        `envconfig:"AUTOPOST_GENERATION_CAPTION_URL" default:"http://localhost:5002"`
	ImageURL       string        `envconfig:"AUTOPOST_GENERATION_IMAGE_URL" default:"http://localhost:5001"`
	VideoURL       string        `envconfig:"AUTOPOST_GENERATION_VIDEO_URL" default:"http://localhost:5003"`
	MusicURL       string        `envconfig:"AUTOPOST_GENERATION_MUSIC_URL" default:"http://localhost:5004"`
	CaptionTimeout time.Duration `envconfig:"AUTOPOST_GENERATION_CAPTION_TIMEOUT" default:"30s"`
	ImageTimeout   time.Duration `envconfig:"AUTOPOST_GENERATION_IMAGE_TIMEOUT" default:"60s"`
	VideoTimeout   time.Duration `envconfig:"AUTOPOST_GENERATION_VIDEO_TIMEOUT" default:"120s"`
	MusicTimeout   time.Duration `envconfig:"AUTOPOST_GENERATION_MUSIC_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"AUTOPOST_GENERATION_MAX_RETRIES" default:"3"`
	RetryBackoff   time.Duration `envconfig:"AUTOPOST_GENERATION_RETRY_BACKOFF" default:"2s"`
	MusicMood      string        `envconfig:"AUTOPOST_GENERATION_MUSIC_MOOD" default:"upbeat"`
}

type PublishingConfig struct {
	InstagramBaseURL string        `envconfig:"AUTOPOST_INSTAGRAM_BASE_URL" default:"https://graph.instagram.com/v18.0"`
	LinkedInBaseURL  string        `envconfig:"AUTOPOST_LINKEDIN_BASE_URL" default:"https://api.linkedin.com/v2"`
	HTTPTimeout      time.Duration `envconfig:"AUTOPOST_PUBLISH_HTTP_TIMEOUT" default:"30s"`
	ReelProcessWait  time.Duration `envconfig:"AUTOPOST_INSTAGRAM_REEL_PROCESS_WAIT" default:"5s"`
}

type CronConfig struct {
	PublishInterval time.Duration `envconfig:"AUTOPOST_CRON_PUBLISH_INTERVAL" default:"5m"`
	MetricsInterval time.Duration `envconfig:"AUTOPOST_CRON_METRICS_INTERVAL" default:"6h"`
	MetricsWindow   time.Duration `envconfig:"AUTOPOST_CRON_METRICS_WINDOW" default:"168h"`
}

// HTTPConfig tunes the API surface.
type HTTPConfig struct {
	AllowedOrigins []string      `envconfig:"AUTOPOST_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	GenerateLimit  int           `envconfig:"AUTOPOST_GENERATE_RATE_LIMIT" default:"10"`
	GenerateWindow time.Duration `envconfig:"AUTOPOST_GENERATE_RATE_WINDOW" default:"1m"`
	ShutdownGrace  time.Duration `envconfig:"AUTOPOST_SHUTDOWN_GRACE" default:"30s"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
