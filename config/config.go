package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config is decoded from the environment; nested prefixes join with "_".
type Config struct {
	Server struct {
		Env      string `envconfig:"ENV" default:"development"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT" default:"8080"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name     string `envconfig:"APP_NAME"`
		Timezone string `envconfig:"TIMEZONE" default:"UTC"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS"`
		} `envconfig:"RATE_LIMITER"`
		APIKey string `envconfig:"API_KEY"`
	} `envconfig:"APP"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL" default:"300"`
	} `envconfig:"CACHE"`

	JWT struct {
		AccessSecret string `envconfig:"ACCESS_SECRET"`
		Issuer       string `envconfig:"ISSUER"`
	} `envconfig:"JWT"`

	DB struct {
		Postgres struct {
			MaxRetry       int    `envconfig:"MAX_RETRY"`
			RetryWaitTime  int    `envconfig:"RETRY_WAIT_TIME"`
			MigrationTable string `envconfig:"MIGRATION_TABLE"`
			AutoMigrate    bool   `envconfig:"AUTO_MIGRATE"`
			Prefix         string `envconfig:"PREFIX"`
			Read           struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"READ"`
			Write struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	Kafka struct {
		Brokers       []string `envconfig:"BROKERS"`
		ConsumerGroup string   `envconfig:"CONSUMER_GROUP"`
		SASL          struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
		Topics struct {
			BookingCompleted string `envconfig:"BOOKING_COMPLETED"`
			ListingEvents    string `envconfig:"LISTING_EVENTS"`
			DeadLetter       string `envconfig:"DEAD_LETTER"`
		} `envconfig:"TOPICS"`
	} `envconfig:"KAFKA"`

	// Price buckets use the "name:min-max" list format, e.g. "low:0-1000,mid:1000-3000,high:3000-".
	Listing struct {
		PriceBuckets struct {
			Home       string `envconfig:"HOME_STAY"`
			Experience string `envconfig:"EXPERIENCE"`
			Service    string `envconfig:"SERVICE"`
		} `envconfig:"PRICE_BUCKETS"`
		SuggestedLimit int `envconfig:"SUGGESTED_LIMIT" default:"3"`
		NearMeLimit    int `envconfig:"NEAR_ME_LIMIT" default:"20"`
	} `envconfig:"LISTING"`

	Reward struct {
		PointsPerCompletedBooking int64 `envconfig:"POINTS_PER_COMPLETED_BOOKING" default:"10"`
		DedupeTTLSeconds          int   `envconfig:"DEDUPE_TTL_SECONDS"`
	} `envconfig:"REWARD"`

	External struct {
		Otel struct {
			Endpoint string `envconfig:"ENDPOINT"`
		} `envconfig:"OTEL"`
		S3 struct {
			BucketName      string `envconfig:"BUCKET_NAME"`
			PublicDomain    string `envconfig:"PUBLIC_DOMAIN"`
			APIEndpoint     string `envconfig:"API_ENDPOINT"`
			AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
			SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
		} `envconfig:"S3"`
		Geocoder struct {
			BaseURL        string `envconfig:"BASE_URL"`
			UserAgent      string `envconfig:"USER_AGENT"`
			TimeoutSeconds int    `envconfig:"TIMEOUT_SECONDS"`
		} `envconfig:"GEOCODER"`
	} `envconfig:"EXTERNAL"`
}

const envFile = ".env"

var (
	conf   Config
	once   sync.Once
	errCfg error
)

// Load reads the .env file named by ENV_FILE (or ./.env) into the process
// environment and decodes it into the shared Config.
func Load() error {
	once.Do(func() {
		file := os.Getenv("ENV_FILE")
		if file == "" {
			file = envFile
		}

		if err := godotenv.Load(file); err != nil {
			log.Warn().Err(err).Str("file", file).Msg("env file not loaded, using process environment")
		}

		if err := envconfig.Process("", &conf); err != nil {
			errCfg = fmt.Errorf("decoding environment: %w", err)

			return
		}

		log.Info().Str("env", conf.Server.Env).Msg("configuration loaded")
	})

	return errCfg
}

func Get() *Config {
	if err := Load(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	return &conf
}
