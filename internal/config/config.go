// Package config loads application configuration from environment variables
// and an optional YAML file. Keys are dotted ("db.user") and map to upper-case
// environment names with underscores ("DB_USER").
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/iliyamo/fest-registration/internal/notify"
	"github.com/iliyamo/fest-registration/internal/otp"
	"github.com/iliyamo/fest-registration/internal/tracing"
)

// Config holds all runtime configuration values.
type Config struct {
	App       AppConfig             `mapstructure:"app"`
	DB        DBConfig              `mapstructure:"db"`
	JWT       JWTConfig             `mapstructure:"jwt"`
	Redis     RedisConfig           `mapstructure:"redis"`
	RateLimit RateLimitConfig       `mapstructure:"rate_limit"`
	AMQP      AMQPConfig            `mapstructure:"amqp"`
	SMTP      notify.SMTPConfig     `mapstructure:"smtp"`
	Telegram  notify.TelegramConfig `mapstructure:"telegram"`
	OTP       otp.Config            `mapstructure:"otp"`
	Tracing   tracing.Config        `mapstructure:"tracing"`
	Sheets    SheetsConfig          `mapstructure:"sheets"`
}

type AppConfig struct {
	Env        string `mapstructure:"env"`  // dev, test or prod
	Port       string `mapstructure:"port"` // HTTP port to listen on
	MediaDir   string `mapstructure:"media_dir"`
	LogFile    string `mapstructure:"log_file"`
	Verbose    bool   `mapstructure:"verbose"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
	Issuer     string `mapstructure:"certificate_issuer"`
}

type DBConfig struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"` // empty allowed
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Name string `mapstructure:"name"`
}

type JWTConfig struct {
	Secret         string `mapstructure:"secret"`
	AccessTTLMin   int    `mapstructure:"access_ttl_min"`
	RefreshTTLDays int    `mapstructure:"refresh_ttl_days"`
}

// AMQPConfig enables the broker when URL is set. Without it, registration
// follow-ups run inline in the server.
type AMQPConfig struct {
	URL string `mapstructure:"url"`
}

type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
}

var required = []string{"db.user", "db.host", "db.name", "jwt.secret"}

// legacyEnv keeps the older variable names working.
var legacyEnv = map[string][]string{
	"jwt.access_ttl_min":   {"JWT_ACCESS_TTL_MIN", "ACCESS_TOKEN_TTL_MIN"},
	"jwt.refresh_ttl_days": {"JWT_REFRESH_TTL_DAYS", "REFRESH_TOKEN_TTL_DAYS"},
	"app.bcrypt_cost":      {"APP_BCRYPT_COST", "BCRYPT_COST"},
	"amqp.url":             {"AMQP_URL", "RABBITMQ_URL"},
	"rate_limit.capacity":  {"RATE_LIMIT_CAPACITY", "RATE_LIMIT_BURST"},
}

// Defaults registers every key with viper. Registration is also what makes
// AutomaticEnv see a key during Unmarshal.
func Defaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.media_dir", "media")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.verbose", false)
	v.SetDefault("app.bcrypt_cost", 12)
	v.SetDefault("app.certificate_issuer", "IT Club Organising Committee")

	v.SetDefault("db.user", "")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.name", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl_min", 15)
	v.SetDefault("jwt.refresh_ttl_days", 30)

	redisDefaults(v)
	rateLimitDefaults(v)

	v.SetDefault("amqp.url", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@itclub.example")
	v.SetDefault("smtp.tls", "opportunistic")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	od := otp.DefaultConfig()
	v.SetDefault("otp.length", od.Length)
	v.SetDefault("otp.ttl", od.TTL)
	v.SetDefault("otp.max_attempts", od.MaxAttempts)

	td := tracing.DefaultConfig()
	v.SetDefault("tracing.enabled", td.Enabled)
	v.SetDefault("tracing.exporter", td.Exporter)
	v.SetDefault("tracing.file_path", td.FilePath)
	v.SetDefault("tracing.otlp_endpoint", td.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", td.SampleRate)
	v.SetDefault("tracing.service_name", td.ServiceName)

	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.spreadsheet_id", "")
}

// Load reads configFile (when not empty) and the environment into a Config.
// Every missing required key is reported in one error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	Defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var missing []error
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, fmt.Errorf("missing required setting %s (env %s)", key, envName(key)))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.RateLimit = cfg.RateLimit.normalize()
	if cfg.App.BcryptCost < 4 || cfg.App.BcryptCost > 31 {
		return Config{}, fmt.Errorf("invalid bcrypt cost %d", cfg.App.BcryptCost)
	}
	return cfg, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
