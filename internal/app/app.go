package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"naturezabrindes/quote_backend/internal/app/config"
	apphttp "naturezabrindes/quote_backend/internal/app/http"
	"naturezabrindes/quote_backend/internal/app/http/handlers"
	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/intake"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
	"naturezabrindes/quote_backend/internal/domain/quote/pdf/gofpdf"
	"naturezabrindes/quote_backend/internal/infra/db/postgres"
	"naturezabrindes/quote_backend/internal/infra/db/sqlite"
	"naturezabrindes/quote_backend/internal/infra/notify/brevo"
	"naturezabrindes/quote_backend/internal/infra/notify/smtp"
	"naturezabrindes/quote_backend/internal/infra/notify/telegram"
	"naturezabrindes/quote_backend/internal/infra/supabase"
)

// Stores groups one backend's repositories.
type Stores struct {
	Customers customer.Store
	Quotes    quote.Store
	Outbox    notify.Store
	Close     func()
}

func Run() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer stores.Close()

	outbox := notify.NewOutbox(stores.Outbox)
	mailer := NewMailer(cfg, outbox)
	router := apphttp.NewRouter(cfg, NewHandlers(cfg, stores, outbox, mailer, NewAlerts(cfg, outbox)))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http: shutdown err=%v", err)
		}
	}()

	log.Printf("listening on %s db=%s mail=%s", cfg.HTTPAddr, cfg.DBDriver, mailer.TransportName())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// OpenStores connects the backend selected by DB_DRIVER.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Stores{}, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return Stores{}, err
		}
		return Stores{
			Customers: postgres.NewCustomers(db),
			Quotes:    postgres.NewQuotes(db),
			Outbox:    postgres.NewOutbox(db),
			Close:     db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Customers: sqlite.NewCustomers(db),
			Quotes:    sqlite.NewQuotes(db),
			Outbox:    sqlite.NewOutbox(db),
			Close: func() {
				if err := db.Close(); err != nil {
					log.Printf("sqlite: close err=%v", err)
				}
			},
		}, nil

	case config.DriverSupabase:
		c, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, nil)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Customers: supabase.NewCustomers(c),
			Quotes:    supabase.NewQuotes(c),
			Outbox:    supabase.NewOutbox(c),
			Close:     func() {},
		}, nil
	}
	return Stores{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

// NewMailer builds the customer mail sender. Missing credentials give an
// unconfigured sender that records every attempt as a config error.
func NewMailer(cfg config.Config, outbox *notify.Outbox) *notify.Sender {
	var (
		t   notify.Transport
		err error
	)
	switch cfg.MailTransport {
	case config.TransportBrevo:
		var b *brevo.Transport
		if b, err = brevo.New(cfg.BrevoBaseURL, cfg.BrevoAPIKey, nil); err == nil {
			t = b
		}
	default:
		var s *smtp.Transport
		if s, err = smtp.New(smtp.Config{
			Host:   cfg.SMTPHost,
			Port:   cfg.SMTPPort,
			Secure: cfg.SMTPSecure,
			User:   cfg.SMTPUser,
			Pass:   cfg.SMTPPass,
		}); err == nil {
			t = s
		}
	}
	if err == nil && cfg.MailFromAddress == "" {
		err = &notify.ConfigError{Transport: cfg.MailTransport, Missing: []string{"MAIL_FROM_ADDRESS"}}
	}
	if err != nil {
		log.Printf("mail: transport disabled err=%v", err)
		return notify.NewUnconfiguredSender(outbox, err)
	}

	var opts []notify.Option
	if cc := parseAddresses(cfg.MailCC); len(cc) > 0 {
		opts = append(opts, notify.WithCC(cc...))
	}
	return notify.NewSender(outbox, t, notify.Address{Name: cfg.MailFromName, Email: cfg.MailFromAddress}, opts...)
}

// NewAlerts returns the Telegram staff alert sender, or nil when it is not configured.
func NewAlerts(cfg config.Config, outbox *notify.Outbox) *notify.Sender {
	t, err := telegram.New(cfg.TelegramBaseURL, cfg.TelegramBotToken, cfg.ManagerChatID, nil)
	if err != nil {
		log.Printf("telegram: staff alerts disabled err=%v", err)
		return nil
	}
	return notify.NewSender(outbox, t, notify.Address{Name: cfg.MailFromName})
}

// NewHandlers wires the domain services over stores. alerts may be nil.
func NewHandlers(cfg config.Config, stores Stores, outbox *notify.Outbox, mailer, alerts *notify.Sender) *handlers.Handlers {
	gen := gofpdf.New(notify.DefaultBrand)

	opts := []intake.Option{intake.WithAdminURL(cfg.AdminURL)}
	if alerts != nil {
		opts = append(opts, intake.WithStaffAlerts(alerts, gen))
	}
	svc := intake.NewService(
		customer.NewResolver(stores.Customers),
		quote.NewWriter(stores.Quotes),
		mailer,
		opts...,
	)
	return handlers.New(cfg, stores.Quotes, svc, mailer, outbox, gen)
}

func parseAddresses(list string) []notify.Address {
	var out []notify.Address
	for _, part := range strings.Split(list, ",") {
		if email := strings.TrimSpace(part); email != "" {
			out = append(out, notify.Address{Email: email})
		}
	}
	return out
}
