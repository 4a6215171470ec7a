package main

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	provision "github.com/goliatone/go-provision"
	"github.com/goliatone/go-provision/cmd/server/config"
	"github.com/goliatone/go-provision/mailer"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	repo   provision.RepositoryManager
	auth   provision.Authenticator
	gate   *provision.RouteAuthenticator
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("provision"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithProvisioning(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*provision.Applicant)(nil))
	persistence.RegisterModel((*provision.Individual)(nil))
	persistence.RegisterModel((*provision.Account)(nil))
	persistence.RegisterModel((*provision.AccountSession)(nil))
	persistence.RegisterModel((*provision.EmailTemplate)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(provision.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = provision.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithHTTPServer(_ context.Context, app *App) error {
	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))
	srv.Router().Use(provision.ResponseTime())

	app.srv = srv
	return nil
}

func WithProvisioning(ctx context.Context, app *App) error {
	cfg := app.Config()

	auther := provision.NewAuthenticator(app.repo, cfg.GetAuth()).
		WithLogger(app.GetLogger("auth"))
	app.auth = auther

	gate, err := provision.NewHTTPAuthenticator(auther, cfg.GetAuth())
	if err != nil {
		return err
	}
	gate.WithLogger(app.GetLogger("gate"))
	app.gate = gate

	var notifier provision.Notifier
	if cfg.GetMailer().GetHost() != "" {
		smtp, err := mailer.NewSMTPNotifier(cfg.GetMailer())
		if err != nil {
			return err
		}
		notifier = smtp
	} else {
		app.GetLogger("mailer").Warn("No SMTP host configured, printing mail to console")
		notifier = mailer.NewConsoleNotifier()
	}

	composer := provision.NewEmailComposer(app.repo.Templates())
	from := cfg.GetMailer().GetFrom()

	issuer := provision.NewIssueTemporaryHandler(app.repo, composer, notifier, from, app.GetLogger("issue"))
	activator := provision.NewActivateAccountHandler(app.repo, composer, notifier, from, app.GetLogger("activate"))

	app.srv.Router().Use(gate.Gate())

	provision.RegisterProvisionRoutes(app.srv.Router(),
		provision.WithControllerLogger(app.GetLogger("ctrl")),
		provision.WithControllerRepo(app.repo),
		provision.WithControllerAuther(auther),
		provision.WithControllerGate(gate),
		provision.WithControllerOwner(cfg.GetOwner()),
		provision.WithControllerHandlers(issuer, activator),
	)

	entry := provision.NewOwnerEntry(issuer, cfg.GetOwner(), app.GetLogger("owner"))
	if err := entry.Run(ctx); err != nil {
		// The server still boots; the operator can retry through /owner.
		app.GetLogger("owner").Error("Startup owner registration failed", "error", err)
	}

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
