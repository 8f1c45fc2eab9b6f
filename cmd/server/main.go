package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	billingmod "github.com/dmitrymomot/replykit/modules/billing"
	usagemod "github.com/dmitrymomot/replykit/modules/usage"
	"github.com/dmitrymomot/replykit/pkg/billing"
	"github.com/dmitrymomot/replykit/pkg/catalog"
	"github.com/dmitrymomot/replykit/pkg/config"
	"github.com/dmitrymomot/replykit/pkg/email"
	"github.com/dmitrymomot/replykit/pkg/entitlement"
	"github.com/dmitrymomot/replykit/pkg/httpserver"
	"github.com/dmitrymomot/replykit/pkg/jwt"
	"github.com/dmitrymomot/replykit/pkg/logger"
	"github.com/dmitrymomot/replykit/pkg/mongo"
	"github.com/dmitrymomot/replykit/pkg/purchase"
	"github.com/dmitrymomot/replykit/pkg/quota"
)

type appConfig struct {
	Environment  string `env:"APP_ENV" envDefault:"development"`
	DatabaseName string `env:"MONGODB_DATABASE" envDefault:"replykit"`
}

func main() {
	var (
		appCfg     appConfig
		httpCfg    httpserver.Config
		mongoCfg   mongo.Config
		billingCfg billing.Config
		catalogCfg catalog.Config
		jwtCfg     jwt.Config
		emailCfg   email.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&billingCfg)
	config.MustLoad(&catalogCfg)
	config.MustLoad(&jwtCfg)
	config.MustLoad(&emailCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "replykit"))
	logger.SetAsDefault(log)

	ctx := context.Background()

	client, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		log.Error("mongo connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(appCfg.DatabaseName)

	entitlements := entitlement.NewMongoStore(db)
	if err := entitlements.EnsureIndexes(ctx); err != nil {
		log.Error("entitlement indexes not created", logger.Error(err))
		os.Exit(1)
	}
	ledger := purchase.NewMongoLedger(db)
	if err := ledger.EnsureIndexes(ctx); err != nil {
		log.Error("purchase indexes not created", logger.Error(err))
		os.Exit(1)
	}

	cat := catalog.New(catalogCfg)

	var sender email.EmailSender
	if emailCfg.PostmarkServerToken != "" {
		sender = email.MustNewPostmarkClient(emailCfg)
	} else {
		log.Info("postmark not configured, emails will be logged only")
		sender = email.NewLogSender(log)
	}

	provider := billing.NewStripeProvider(billingCfg, log)
	notifier := billing.NewNotifier(sender, log)
	processor := billing.NewProcessor(provider, cat, ledger, entitlements, notifier, log)
	billingSvc := billing.NewService(provider, cat, ledger, entitlements, log)
	quotaSvc := quota.NewService(entitlements, log)

	tokens, err := jwt.NewService(jwtCfg)
	if err != nil {
		log.Error("jwt service init failed", logger.Error(err))
		os.Exit(1)
	}

	billingModule := billingmod.NewModule(billingSvc, processor, provider, log)
	usageModule := usagemod.NewModule(quotaSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, mongo.Healthcheck(client)))
	r.Post("/webhook", billingModule.Webhook())

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.Middleware(tokens))
		api.Mount("/billing", billingModule.Router())
		api.Mount("/usage", usageModule.Router())
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}
