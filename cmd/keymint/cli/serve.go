package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keymint/keymint/internal/server"
	"github.com/keymint/keymint/internal/token"
)

const banner = `
 _                          _       _
| | _____ _   _ _ __ ___   (_)_ __ | |_
| |/ / _ \ | | | '_ ` + "`" + ` _ \  | | '_ \| __|
|   <  __/ |_| | | | | | | | | | | | |_
|_|\_\___|\__, |_| |_| |_| |_|_| |_|\__|
          |___/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keymint API server",
		Long:  "Start the HTTP server that issues, lists, and revokes personal access tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format, dev)

	st, err := openTokenStore(cfg)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	logger.Info("token store opened", "driver", cfg.Store.Driver)

	manager := token.NewManager(st)

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}

	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: shutdownTimeout,
		RateLimitPerMin: cfg.Server.RateLimitPerMin,
		CORSOrigins:     cfg.Server.CORS.Origins,
		CORSMethods:     cfg.Server.CORS.Methods,
		Version:         versionString(),
	}

	srv := server.New(srvCfg, st, manager, logger)

	fmt.Printf("→ Keymint %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// newLogger builds the process logger from the logging config. Dev mode
// forces debug level.
func newLogger(level, format string, dev bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if dev {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
