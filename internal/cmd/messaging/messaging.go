// Package messaging parses messaging command flags and composes the service.
package messaging

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/hyptrb/messaging/internal/auth/identity"
	"github.com/hyptrb/messaging/internal/campaign"
	"github.com/hyptrb/messaging/internal/messaging/app"
	"github.com/hyptrb/messaging/internal/messaging/storage/sqlite"
	"github.com/hyptrb/messaging/internal/messaging/sync"
	entrypoint "github.com/hyptrb/messaging/internal/platform/cmd"
	"github.com/hyptrb/messaging/internal/platform/pagination"
)

// Config holds messaging command configuration.
type Config struct {
	DBPath          string `env:"HYPTRB_MESSAGING_DB_PATH"           envDefault:"messaging.db"`
	CampaignBaseURL string `env:"HYPTRB_MESSAGING_CAMPAIGN_BASE_URL" envDefault:"http://localhost:5001"`
	AuthSecret      string `env:"HYPTRB_MESSAGING_AUTH_SECRET"`
	AuthIssuer      string `env:"HYPTRB_MESSAGING_AUTH_ISSUER"`
	PageSize        int    `env:"HYPTRB_MESSAGING_PAGE_SIZE"         envDefault:"50"`
	PageSizeMax     int    `env:"HYPTRB_MESSAGING_PAGE_SIZE_MAX"     envDefault:"200"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.CampaignBaseURL, "campaign-base-url", cfg.CampaignBaseURL, "campaign service base URL")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "HMAC secret for bearer token verification")
	fs.StringVar(&cfg.AuthIssuer, "auth-issuer", cfg.AuthIssuer, "expected bearer token issuer")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "default listing page size")
	fs.IntVar(&cfg.PageSizeMax, "page-size-max", cfg.PageSizeMax, "maximum listing page size")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// App is the composed messaging service with its dependency lifecycle.
type App struct {
	Service  *app.Service
	Verifier identity.Verifier

	store *sqlite.Store
}

// Close releases the store handle.
func (a *App) Close() error {
	return a.store.Close()
}

// Build composes the messaging service from configuration.
func Build(cfg Config) (*App, error) {
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}

	verifier, err := identity.NewJWTVerifier(identity.JWTVerifierConfig{
		Secret: []byte(cfg.AuthSecret),
		Issuer: cfg.AuthIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("new token verifier: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client, err := campaign.New(cfg.CampaignBaseURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("new campaign client: %w", err)
	}
	engine, err := sync.NewEngine(store, client)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("new sync engine: %w", err)
	}
	service, err := app.New(app.Config{
		Store:     store,
		Directory: client,
		Syncer:    engine,
		PageSizes: pagination.PageSizeConfig{Default: cfg.PageSize, Max: cfg.PageSizeMax},
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("new service: %w", err)
	}

	return &App{Service: service, Verifier: verifier, store: store}, nil
}

// Run composes the messaging service and holds it until the context ends. The
// request-routing layer attaches to App.Service out of process scope.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMessaging, func(ctx context.Context) error {
		application, err := Build(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		log.Printf("messaging service ready (db %s, campaign %s)", cfg.DBPath, cfg.CampaignBaseURL)
		<-ctx.Done()
		return nil
	})
}
