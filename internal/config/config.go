package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	MongoURI      string
	MongoDatabase string

	JWTSecret    string
	JWTExpiresIn time.Duration

	AdminEmail  string
	FrontendURL []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	UPIPayeeVPA  string
	UPIPayeeName string
	CODFee       float64

	Storage StorageConfig

	ElasticURL      string
	ElasticUsername string
	ElasticPassword string
	ElasticIndex    string

	KafkaBrokers []string
	KafkaTopic   string

	SMTP SMTPConfig

	LogLevel  string
	LogFormat string
}

type StorageConfig struct {
	Driver         string // "local" or "minio"
	UploadDir      string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	PublicURL      string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// Load reads the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	// .env is optional; the process environment always wins.
	_ = godotenv.Load(".env")

	jwtTTL, err := ParseDuration(getenv("JWT_EXPIRES_IN", "1d"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}

	codFee, err := strconv.ParseFloat(getenv("COD_FEE", "50"), 64)
	if err != nil || codFee < 0 {
		return nil, fmt.Errorf("COD_FEE: invalid value %q", os.Getenv("COD_FEE"))
	}

	smtpPort, err := strconv.Atoi(getenv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	cfg := &Config{
		Env:  getenv("APP_ENV", "development"),
		Port: getenv("PORT", "5000"),

		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getenv("MONGODB_DATABASE", "stride"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTExpiresIn: jwtTTL,

		AdminEmail:  strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		FrontendURL: splitCSV(getenv("FRONTEND_URL", "http://localhost:5173")),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getenv("CURRENCY", "inr")),

		UPIPayeeVPA:  getenv("UPI_PAYEE_VPA", "stride@upi"),
		UPIPayeeName: getenv("UPI_PAYEE_NAME", "Stride Shoes"),
		CODFee:       codFee,

		Storage: StorageConfig{
			Driver:         strings.ToLower(getenv("STORAGE_DRIVER", "local")),
			UploadDir:      getenv("UPLOAD_DIR", "uploads"),
			MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
			MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinIOBucket:    getenv("MINIO_BUCKET", "shoes"),
			MinIOUseSSL:    getenvBool("MINIO_USE_SSL", false),
			PublicURL:      strings.TrimRight(os.Getenv("STORAGE_PUBLIC_URL"), "/"),
		},

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUsername: os.Getenv("ELASTIC_USERNAME"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		ElasticIndex:    getenv("ELASTIC_INDEX", "shoes"),

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "orders.events"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.MinIOEndpoint == "" || c.Storage.MinIOAccessKey == "" || c.Storage.MinIOSecretKey == "" {
			errs = append(errs, errors.New("STORAGE_DRIVER=minio needs MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// ParseDuration accepts Go durations ("12h"), day suffixes ("7d") and bare
// seconds ("3600").
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(v, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", v)
	}
	return d, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
