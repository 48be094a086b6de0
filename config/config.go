package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Firebase service account used for FCM pushes.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Cloudinary credentials for message image attachments.
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `mapstructure:"CLOUDINARY_FOLDER"`

	// Pricing applied when a booking's costs are computed.
	PlatformFeeRate float64 `mapstructure:"PLATFORM_FEE_RATE"`
	TaxRate         float64 `mapstructure:"TAX_RATE"`

	// Client side: where the booking API and its socket live.
	APIBaseURL string        `mapstructure:"API_BASE_URL"`
	WSURL      string        `mapstructure:"WS_URL"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT"`

	// Conversation sync tuning.
	SyncPageSize          int           `mapstructure:"SYNC_PAGE_SIZE"`
	SyncFetchProximity    int           `mapstructure:"SYNC_FETCH_PROXIMITY"`
	SyncFetchCooldown     time.Duration `mapstructure:"SYNC_FETCH_COOLDOWN"`
	SyncIntegrityInterval time.Duration `mapstructure:"SYNC_INTEGRITY_INTERVAL"`
	ThreadCacheTTL        time.Duration `mapstructure:"THREAD_CACHE_TTL"`
	BookingCacheTTL       time.Duration `mapstructure:"BOOKING_CACHE_TTL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "pawhub")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "config/firebase.json")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("CLOUDINARY_FOLDER", "pawhub/messages")
	viper.SetDefault("PLATFORM_FEE_RATE", 0.1)
	viper.SetDefault("TAX_RATE", 0.0)
	viper.SetDefault("API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("WS_URL", "ws://localhost:8080/ws")
	viper.SetDefault("API_TIMEOUT", 10*time.Second)
	viper.SetDefault("SYNC_PAGE_SIZE", 20)
	viper.SetDefault("SYNC_FETCH_PROXIMITY", 5)
	viper.SetDefault("SYNC_FETCH_COOLDOWN", time.Second)
	viper.SetDefault("SYNC_INTEGRITY_INTERVAL", time.Second)
	viper.SetDefault("THREAD_CACHE_TTL", 24*time.Hour)
	viper.SetDefault("BOOKING_CACHE_TTL", 5*time.Minute)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
