package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"walletview/pkg/config"
	"walletview/pkg/logging"
	"walletview/pkg/metrics"
	"walletview/pkg/probe"
	"walletview/pkg/provider"
	"walletview/pkg/server"
	"walletview/pkg/tui"
	"walletview/pkg/watcher"
)

// Version should be set during build
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	testFlag := flag.Bool("t", false, "Probe the wallet provider and exit")
	testLongFlag := flag.Bool("test", false, "Probe the wallet provider and exit")
	jsonFlag := flag.Bool("json", false, "Output probe results as JSON")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	hostFlag := flag.String("host", "127.0.0.1", "Interface for API server in server mode")
	portFlag := flag.Int("port", 8080, "Port for API server in server mode")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("walletview version %s\n", Version)
		return 0
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		return 1
	}
	config.ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration in %s: %v\n", path, err)
		return 1
	}

	probeMode := *testFlag || *testLongFlag
	interactive := !probeMode && !*serverFlag

	// bubbletea owns the terminal in interactive mode
	var logOut io.Writer = os.Stderr
	if interactive {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Output:  logOut,
		Pretty:  true,
		Version: Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("walletview")
	detector := metrics.InstrumentDetector(provider.Endpoint{
		URL:          cfg.Provider.URL,
		Timeout:      cfg.DetectTimeout(),
		PollInterval: cfg.PollInterval(),
		Logger:       logger.With().Str("component", "provider").Logger(),
	}, m)

	if probeMode {
		report := probe.Run(ctx, detector, probe.Options{
			ProviderURL:     cfg.Provider.URL,
			ExpectedWallet:  cfg.Provider.ExpectedWallet,
			BalanceDecimals: cfg.BalanceDecimals,
		})
		if err := probe.Print(os.Stdout, report, *jsonFlag); err != nil {
			fmt.Printf("Error writing report: %v\n", err)
			return 1
		}
		if !report.Found {
			return 1
		}
		return 0
	}

	w := watcher.NewWatcher(detector, watcher.Options{
		ExpectedWallet:  cfg.Provider.ExpectedWallet,
		BalanceDecimals: cfg.BalanceDecimals,
		Logger:          logger,
		Metrics:         m,
	})
	defer w.Stop()

	if *serverFlag {
		srv := server.NewServer(w, m, logger.With().Str("component", "server").Logger())
		go func() {
			if err := w.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("watcher failed to start")
			}
		}()
		logger.Info().Str("host", *hostFlag).Int("port", *portFlag).Str("config", path).Msg("running in server mode")
		if err := srv.Start(ctx, *hostFlag, *portFlag); err != nil {
			logger.Error().Err(err).Msg("server error")
			return 1
		}
		return 0
	}

	// the view starts the watcher itself so detection is rendered
	if err := tui.Start(ctx, w, cfg.Provider.ExpectedWallet, Version); err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}
