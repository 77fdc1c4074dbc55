package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"

	TransportSMTP  = "smtp"
	TransportBrevo = "brevo"
)

type Config struct {
	HTTPAddr        string
	Env             string
	InternalToken   string
	CORSAllowOrigin string
	AdminURL        string

	DBDriver               string
	DatabaseURL            string
	SQLitePath             string
	SupabaseURL            string
	SupabaseServiceRoleKey string

	MailTransport   string
	SMTPHost        string
	SMTPPort        int
	SMTPSecure      bool
	SMTPUser        string
	SMTPPass        string
	BrevoAPIKey     string
	BrevoBaseURL    string
	MailFromName    string
	MailFromAddress string
	MailCC          string

	TelegramBotToken string
	TelegramBaseURL  string
	ManagerChatID    string

	APIBaseURL string
}

// IsProduction reports whether internal error details must stay out of responses.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func MustLoad() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := Load(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Load builds the configuration from lookup. Missing mail credentials are not
// an error here: the notification sender reports them per delivery.
func Load(lookup func(string) (string, bool)) (Config, error) {
	e := loader{lookup: lookup}

	cfg := Config{
		HTTPAddr:        e.env("HTTP_ADDR", ":8080"),
		Env:             e.env("APP_ENV", "development"),
		InternalToken:   e.env("INTERNAL_TOKEN", ""),
		CORSAllowOrigin: e.env("CORS_ALLOW_ORIGIN", "*"),
		AdminURL:        e.env("ADMIN_URL", ""),

		DBDriver:               strings.ToLower(e.env("DB_DRIVER", DriverPostgres)),
		DatabaseURL:            e.env("DATABASE_URL", ""),
		SQLitePath:             e.env("SQLITE_PATH", "data/quotes.db"),
		SupabaseURL:            e.env("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: e.env("SUPABASE_SERVICE_ROLE_KEY", ""),

		MailTransport:   strings.ToLower(e.env("MAIL_TRANSPORT", TransportSMTP)),
		SMTPHost:        e.env("SMTP_HOST", "smtp.zoho.com"),
		SMTPUser:        e.env("SMTP_USER", ""),
		SMTPPass:        e.env("SMTP_PASS", ""),
		BrevoAPIKey:     e.env("BREVO_API_KEY", ""),
		BrevoBaseURL:    e.env("BREVO_BASE_URL", "https://api.brevo.com"),
		MailFromName:    e.env("MAIL_FROM_NAME", "Natureza Brindes"),
		MailFromAddress: e.env("MAIL_FROM_ADDRESS", ""),
		MailCC:          e.env("MAIL_CC", ""),

		TelegramBotToken: e.env("TELEGRAM_BOT_TOKEN", ""),
		TelegramBaseURL:  e.env("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		ManagerChatID:    e.env("MANAGER_CHAT_ID", ""),

		APIBaseURL: e.env("API_BASE_URL", "http://localhost:8080/api"),
	}

	port, err := strconv.Atoi(e.env("SMTP_PORT", "587"))
	if err != nil || port <= 0 {
		return Config{}, fmt.Errorf("invalid SMTP_PORT")
	}
	cfg.SMTPPort = port
	cfg.SMTPSecure = strings.EqualFold(e.env("SMTP_SECURE", ""), "true") || port == 465

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("missing env DATABASE_URL")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return Config{}, fmt.Errorf("missing env SQLITE_PATH")
		}
	case DriverSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
			return Config{}, fmt.Errorf("missing env SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY")
		}
	default:
		return Config{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	switch cfg.MailTransport {
	case TransportSMTP, TransportBrevo:
	default:
		return Config{}, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.MailTransport)
	}

	if cfg.MailFromAddress == "" {
		cfg.MailFromAddress = cfg.SMTPUser
	}
	return cfg, nil
}

type loader struct {
	lookup func(string) (string, bool)
}

func (l loader) env(k, def string) string {
	if v, ok := l.lookup(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}
