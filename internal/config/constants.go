// internal/config/constants.go
package config

import "time"

// アプリケーション情報
const (
	AppName    = "FlashcardStudy"
	AppVersion = "1.0.0"
	EnvPrefix  = "APP"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailerTypeLog  = "log"
	MailerTypeSMTP = "smtp"
	MailerTypeSES  = "ses"
)

// デフォルト設定値
const (
	DefaultServerPort         = ":8080"
	DefaultSQLiteURL          = "file:flashcards.db?_busy_timeout=5000"
	DefaultLogLevel           = "info"
	DefaultAppReviewLimit     = 20
	DefaultMaxTextLength      = 500
	DefaultPageSize           = 20
	DefaultMaxPageSize        = 100
	DefaultAuthEnabled        = true
	DefaultAccessTokenTTL     = 24 * time.Hour
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultCleanupInterval    = 5 * time.Minute
	PasswordResetTokenTTL     = time.Hour
)
