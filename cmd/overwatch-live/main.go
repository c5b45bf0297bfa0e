package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/saint0x/overwatch-demo/internal/app"
	"github.com/saint0x/overwatch-demo/internal/client"
	"github.com/saint0x/overwatch-demo/internal/config"
	"github.com/saint0x/overwatch-demo/internal/logging"
	"github.com/saint0x/overwatch-demo/internal/metrics"
	"github.com/saint0x/overwatch-demo/internal/telemetry"
)

func main() {
	envPath := flag.String("env", ".env", "Dotenv file with OVERWATCH_* variables; missing is fine")
	configPath := flag.String("config", "", "Path to overwatch.yaml (default: ./overwatch.yaml or ~/.config/overwatch/overwatch.yaml)")
	apiKey := flag.String("api-key", "", "Overwatch API key (overrides config and OVERWATCH_API_KEY)")
	wsURL := flag.String("ws-url", "", "Realtime WebSocket URL of the Overwatch daemon")
	baseURL := flag.String("base-url", "", "REST base URL of the Overwatch daemon")
	metricsAddr := flag.String("metrics-addr", "", "Serve /metrics, /healthz and /session on this address")
	debugFlag := flag.Bool("debug", false, "Verbose logging")
	snapshot := flag.Bool("snapshot", false, "Print one REST snapshot as YAML and exit")
	flag.Parse()

	// Real environment variables win over the file.
	envErr := godotenv.Load(*envPath)

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fatal(err)
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *wsURL != "" {
		cfg.Daemon.WSURL = *wsURL
	}
	if *baseURL != "" {
		cfg.Daemon.BaseURL = *baseURL
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *debugFlag {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logPath := cfg.Log.File
	if *snapshot {
		logPath = ""
	}
	logger, closer, err := logging.Open(logPath, cfg.Log.Level)
	if err != nil {
		fatal(err)
	}
	defer closer.Close()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("could not load env file, continuing with existing environment", "path", *envPath, "err", envErr)
	}

	m := metrics.New(nil)
	ow := client.New(clientOptions(cfg, logger, m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ow.Init(ctx, client.InitConfig{APIKey: cfg.APIKey, Debug: cfg.Debug}); err != nil {
		fatal(err)
	}
	defer ow.Disconnect()

	if *snapshot {
		if err := printSnapshot(ctx, ow, os.Stdout); err != nil {
			fatal(err)
		}
		return
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr: cfg.Metrics.Addr,
			Handler: metrics.Handler(m.Registry, func() (any, error) {
				info, err := ow.GetSession()
				return info, err
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	p := tea.NewProgram(app.New(ow, cfg.Daemon.ReconnectDelay), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe, err := app.Bridge(ow, p)
	if err != nil {
		fatal(err)
	}
	defer unsubscribe()
	// The connection may have come up before the bridge subscribed.
	if ow.State() == client.StateSubscribed {
		go p.Send(app.ConnectionMsg{Connected: true})
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func clientOptions(cfg *config.Config, logger *log.Logger, m *metrics.Metrics) client.Options {
	opts := client.Options{
		WSURL:             cfg.Daemon.WSURL,
		BaseURL:           cfg.Daemon.BaseURL,
		HeartbeatInterval: cfg.Daemon.HeartbeatInterval,
		ReconnectDelay:    cfg.Daemon.ReconnectDelay,
		ReadTimeout:       cfg.Daemon.ReadTimeout,
		HTTPTimeout:       cfg.Daemon.HTTPTimeout,
		SnapshotRetries:   cfg.Daemon.SnapshotRetries,
		Page: client.PageMeta{
			Title: cfg.Telemetry.PageTitle,
			Path:  cfg.Telemetry.PagePath,
		},
		Logger:  logger,
		Metrics: m,
	}
	if cfg.Telemetry.Enabled {
		opts.SinkFactory = telemetry.Factory(telemetry.Options{
			Collector: cfg.Telemetry.Collector,
			Rate:      cfg.Telemetry.Rate,
			Burst:     cfg.Telemetry.Burst,
			Logger:    logger.WithPrefix("telemetry"),
		})
	}
	return opts
}

func printSnapshot(ctx context.Context, ow *client.Client, w io.Writer) error {
	data, err := ow.GetSnapshot(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
