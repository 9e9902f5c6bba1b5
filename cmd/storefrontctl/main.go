package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/internal/flashsales"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/internal/vouchers"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefrontctl", Output: os.Stderr})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "storefrontctl"

	logg = logger.New(logger.Options{
		ServiceName: "storefrontctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	app, err := buildCLI(cfg, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if err := app.run(ctx, os.Args[1:]); err != nil {
		os.Exit(exitCode(os.Stderr, err))
	}
}

func buildCLI(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (*cli, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	voucherRepo := vouchers.NewRepository(conn)

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(conn),
		DB:         dbClient,
		Users:      userRepo,
		Shipping:   shipping.NewRepository(conn),
		Products:   inventory.NewLedger(conn),
		Quotas:     flashsales.NewRepository(conn),
		Vouchers:   vouchers.NewLedger(voucherRepo),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:     logg,
		Config:     cfg.Orders,
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	saleService, err := flashsales.NewService(flashsales.ServiceParams{
		Repository: flashsales.NewRepository(conn),
		DB:         dbClient,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("flash sales: %w", err)
	}
	voucherService, err := vouchers.NewService(vouchers.ServiceParams{
		Repository:  voucherRepo,
		DB:          dbClient,
		Customers:   userRepo,
		Logger:      logg,
		WelcomeCode: cfg.Orders.WelcomeDiscountCode,
	})
	if err != nil {
		return nil, fmt.Errorf("vouchers: %w", err)
	}
	return &cli{
		orders:   orderService,
		sales:    saleService,
		vouchers: voucherService,
		catalog:  inventory.NewLedger(conn),
		dlq:      outbox.NewDLQRepository(conn),
		out:      os.Stdout,
		readFile: os.ReadFile,
	}, nil
}

// exitCode prints err for an operator and picks the process status: 2 for
// usage errors, 1 otherwise.
func exitCode(w io.Writer, err error) int {
	if errors.Is(err, errUsage) {
		fmt.Fprintln(w, err)
		return 2
	}
	diag := pkgerrors.Inspect(err)
	fmt.Fprintln(w, diag.Message)
	if diag.Code != "" {
		if details := pkgerrors.As(err).Details(); details != nil {
			fmt.Fprintf(w, "details: %v\n", details)
		}
		if pkgerrors.MetadataFor(diag.Code).Retryable {
			fmt.Fprintln(w, "the failure is transient, retry the command")
		}
	}
	if pg := diag.PG; pg != nil {
		fmt.Fprintf(w, "postgres %s on %s (%s): %s\n", pg.Code, pg.Table, pg.Constraint, pg.Message)
	}
	return 1
}
