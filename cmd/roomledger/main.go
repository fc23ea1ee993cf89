package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/roomledger/internal/arrears"
	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	"github.com/railzwaylabs/roomledger/internal/authorization"
	"github.com/railzwaylabs/roomledger/internal/billing"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/railzwaylabs/roomledger/internal/metering"
	"github.com/railzwaylabs/roomledger/internal/migration"
	"github.com/railzwaylabs/roomledger/internal/observability"
	"github.com/railzwaylabs/roomledger/internal/payment"
	"github.com/railzwaylabs/roomledger/internal/price"
	"github.com/railzwaylabs/roomledger/internal/rating"
	"github.com/railzwaylabs/roomledger/internal/room"
	"github.com/railzwaylabs/roomledger/internal/scheduler"
	"github.com/railzwaylabs/roomledger/internal/server"
	"github.com/railzwaylabs/roomledger/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "roomledger",
		Short:        "Apartment utility billing",
		Version:      readVersionFromEnv(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("ROOMLEDGER_CONFIG", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./roomledger.yaml)")
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newScanArrearsCmd(),
		newSweepPaymentsCmd(),
		newImportNodesCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				baseModules(),
				migration.GateModule,
				migration.DataModule,
				serviceModules(),
				authorization.Module,
				scheduler.Module,
				server.Module,
				fx.Invoke(watchConfig),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				baseModules(),
				migration.Module,
			)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if err := app.Start(ctx); err != nil {
				return fmt.Errorf("migrate failed: %w", err)
			}
			return app.Stop(context.Background())
		},
	}
}

func newScanArrearsCmd() *cobra.Command {
	var (
		building string
		months   int
	)
	cmd := &cobra.Command{
		Use:   "scan-arrears",
		Short: "Print past months with unpaid charges",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc arrearsdomain.Service
			return runOnce(cmd.Context(), []fx.Option{serviceModules(), fx.Populate(&svc)}, func(ctx context.Context) (any, error) {
				return svc.Scan(ctx, building, months)
			})
		},
	}
	cmd.Flags().StringVar(&building, "building", "", "building id")
	cmd.Flags().IntVar(&months, "months", 0, "trailing months (default from config)")
	_ = cmd.MarkFlagRequired("building")
	return cmd
}

func newSweepPaymentsCmd() *cobra.Command {
	var (
		building string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "sweep-payments",
		Short: "Copy payment records from the legacy key to the canonical key",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data *migration.DataMigrations
			return runOnce(cmd.Context(), []fx.Option{migration.DataModule, fx.Populate(&data)}, func(ctx context.Context) (any, error) {
				return data.SweepLegacyPayments(ctx, building, dryRun)
			})
		},
	}
	cmd.Flags().StringVar(&building, "building", "", "building id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	_ = cmd.MarkFlagRequired("building")
	return cmd
}

func newImportNodesCmd() *cobra.Command {
	var (
		building string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "import-nodes",
		Short: "Store a meter kind on every node that has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data *migration.DataMigrations
			return runOnce(cmd.Context(), []fx.Option{migration.DataModule, fx.Populate(&data)}, func(ctx context.Context) (any, error) {
				return data.ImportNodeKinds(ctx, building, dryRun)
			})
		},
	}
	cmd.Flags().StringVar(&building, "building", "", "building id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	_ = cmd.MarkFlagRequired("building")
	return cmd
}

// runOnce starts a short-lived app, runs fn and prints its result as JSON.
func runOnce(ctx context.Context, opts []fx.Option, fn func(context.Context) (any, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app := fx.New(append([]fx.Option{fx.NopLogger, baseModules()}, opts...)...)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	result, runErr := fn(ctx)
	stopErr := app.Stop(context.Background())
	if runErr != nil {
		return runErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return errors.Join(enc.Encode(result), stopErr)
}

func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		store.Module,
	)
}

func serviceModules() fx.Option {
	return fx.Options(
		fx.Provide(registerSnowflake),
		metering.Module,
		rating.Module,
		price.Module,
		room.Module,
		payment.Module,
		billing.Module,
		arrears.Module,
	)
}

func watchConfig(src *config.Source, log *zap.Logger) {
	src.Watch(log)
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
