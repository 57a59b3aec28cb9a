// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go_flashcard_study/internal/srs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	URL    string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AppConfig struct {
	Name            string `mapstructure:"name"`
	FrontendURL     string `mapstructure:"frontend_url"`
	ReviewLimit     int    `mapstructure:"review_limit"`
	MaxTextLength   int    `mapstructure:"max_text_length"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
}

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AuthConfig struct {
	// false の場合は X-User-ID ヘッダーによる開発用認証になる
	Enabled bool `mapstructure:"enabled"`
}

type MailerConfig struct {
	Type string `mapstructure:"type"` // log | smtp | ses
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	Sender          string `mapstructure:"sender"`
	AuthType        string `mapstructure:"auth_type"` // static_credentials | iam_role
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// SRSConfig は復習間隔の調整値です。ゼロ値は srs.DefaultParams で補完されます。
type SRSConfig struct {
	InitialEase    float64       `mapstructure:"initial_ease"`
	MinEase        float64       `mapstructure:"min_ease"`
	FirstInterval  time.Duration `mapstructure:"first_interval"`
	SecondInterval time.Duration `mapstructure:"second_interval"`
	LapseInterval  time.Duration `mapstructure:"lapse_interval"`
	MaxInterval    time.Duration `mapstructure:"max_interval"`
}

// Params は srs.Scheduler に渡す調整値に変換します
func (c SRSConfig) Params() srs.Params {
	return srs.Params{
		InitialEase:    c.InitialEase,
		MinEase:        c.MinEase,
		FirstInterval:  c.FirstInterval,
		SecondInterval: c.SecondInterval,
		LapseInterval:  c.LapseInterval,
		MaxInterval:    c.MaxInterval,
	}
}

type StudyConfig struct {
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`
}

// AdminConfig は cmd/seed が作成する初期管理者です。
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
	App      AppConfig      `mapstructure:"app"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mailer   MailerConfig   `mapstructure:"mailer"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	SES      SESConfig      `mapstructure:"ses"`
	SRS      SRSConfig      `mapstructure:"srs"`
	Study    StudyConfig    `mapstructure:"study"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// LoadConfig は path 配下の config.yaml と環境変数 (APP_ 接頭辞) から設定を読み込みます。
// .env が存在すれば先に環境変数へ展開します。
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	// 例: APP_DATABASE_URL -> database.url
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		slog.Warn("Config file not found. Using defaults and environment variables.")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Info("Config loaded successfully",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"review_limit", cfg.App.ReviewLimit,
		"auth_enabled", cfg.Auth.Enabled,
		"mailer", cfg.Mailer.Type,
	)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.url", DefaultSQLiteURL)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("app.name", AppName)
	v.SetDefault("app.frontend_url", "http://localhost:3000")
	v.SetDefault("app.review_limit", DefaultAppReviewLimit)
	v.SetDefault("app.max_text_length", DefaultMaxTextLength)
	v.SetDefault("app.default_page_size", DefaultPageSize)
	v.SetDefault("app.max_page_size", DefaultMaxPageSize)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.access_token_ttl", DefaultAccessTokenTTL)
	v.SetDefault("auth.enabled", DefaultAuthEnabled)

	v.SetDefault("mailer.type", MailerTypeLog)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender", "")
	v.SetDefault("ses.region", "ap-northeast-1")
	v.SetDefault("ses.sender", "")
	v.SetDefault("ses.auth_type", "iam_role")
	v.SetDefault("ses.access_key_id", "")
	v.SetDefault("ses.secret_access_key", "")

	// 0 は srs.DefaultParams の値になる
	v.SetDefault("srs.initial_ease", 0)
	v.SetDefault("srs.min_ease", 0)
	v.SetDefault("srs.first_interval", 0)
	v.SetDefault("srs.second_interval", 0)
	v.SetDefault("srs.lapse_interval", 0)
	v.SetDefault("srs.max_interval", 0)

	v.SetDefault("study.session_idle_timeout", DefaultSessionIdleTimeout)
	v.SetDefault("study.cleanup_interval", DefaultCleanupInterval)

	// 環境変数だけで指定できるようにキーを登録しておく
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Mailer.Type {
	case MailerTypeLog, MailerTypeSMTP, MailerTypeSES:
	default:
		return fmt.Errorf("unsupported mailer type %q", c.Mailer.Type)
	}
	if c.Auth.Enabled && c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required when auth is enabled")
	}
	if c.App.ReviewLimit <= 0 {
		c.App.ReviewLimit = DefaultAppReviewLimit
	}
	if c.App.MaxTextLength <= 0 {
		c.App.MaxTextLength = DefaultMaxTextLength
	}
	if c.App.DefaultPageSize <= 0 {
		c.App.DefaultPageSize = DefaultPageSize
	}
	if c.App.MaxPageSize < c.App.DefaultPageSize {
		c.App.MaxPageSize = c.App.DefaultPageSize
	}
	return nil
}
