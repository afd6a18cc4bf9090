package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"aria/internal/catalog"
	"aria/internal/config"
	"aria/internal/logging"
	"aria/internal/observability"
	"aria/internal/rtc"
	serverHTTP "aria/internal/server/http"
)

var (
	cyan  = color.New(color.FgCyan).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "aria-server",
		Short: "Session console server for real-time voice agent rooms",
		Long: "aria-server hosts the token issuance endpoint, provider catalogs, and\n" +
			"metrics behind the voice agent session console.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(v)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to YAML config file")
	flags.Int("port", 0, "listen port (overrides config)")
	flags.String("catalog", "", "path to provider catalog override file")
	flags.Bool("verbose", false, "enable debug logging")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("port", flags.Lookup("port"))
	_ = v.BindPFlag("catalog", flags.Lookup("catalog"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	v.SetEnvPrefix("ARIA")
	v.AutomaticEnv()

	return cmd
}

func runServer(v *viper.Viper) error {
	cfg, meta, err := config.Load(v.GetString("config"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if port := v.GetInt("port"); port > 0 {
		cfg.Port = port
	}
	if path := v.GetString("catalog"); path != "" {
		cfg.CatalogPath = path
	}
	if v.GetBool("verbose") {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		logging.SetDefaultLevel(logging.LevelDebug)
	}
	logger := logging.NewComponentLogger("Main")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load provider catalog: %w", err)
	}
	metrics, err := observability.NewMetricsCollector(cfg.MetricsEnabled)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}
	issuer := rtc.NewIssuer(cfg.APIKey, cfg.APISecret,
		rtc.WithTokenTTL(cfg.TokenTTL),
		rtc.WithAgentDispatchMetadata(cfg.AgentDispatchMetadata),
		rtc.WithIssuerLogger(logging.NewComponentLogger("Issuer")),
	)

	printBanner(cfg, meta, issuer)

	router := serverHTTP.NewRouter(
		serverHTTP.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, Verbose: cfg.Verbose},
		serverHTTP.RouterDeps{
			Issuer:  issuer,
			Catalog: cat,
			Metrics: metrics,
			Logger:  logging.NewComponentLogger("HTTP"),
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func printBanner(cfg config.RuntimeConfig, meta config.Metadata, issuer *rtc.Issuer) {
	fmt.Printf("%s %s\n", cyan("aria-server"), gray("session console"))
	fmt.Printf("  port:    %s\n", green(fmt.Sprintf("%d", cfg.Port)))
	if issuer.Configured() {
		fmt.Printf("  issuer:  %s\n", green("configured"))
	} else {
		fmt.Printf("  issuer:  %s\n", gray("not configured (token endpoint will return 500)"))
	}
	if cfg.ServerURL != "" {
		fmt.Printf("  server:  %s\n", green(cfg.ServerURL))
	}
	fmt.Printf("  config:  %s\n", gray(fmt.Sprintf("loaded at %s", meta.LoadedAt().Format(time.RFC3339))))
}
