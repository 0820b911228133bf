package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loykin/hostbot"
	"github.com/loykin/hostbot/internal/auth"
	"github.com/loykin/hostbot/internal/chat"
	"github.com/loykin/hostbot/internal/config"
	"github.com/loykin/hostbot/internal/history/clickhouse"
	"github.com/loykin/hostbot/internal/logger"
	"github.com/loykin/hostbot/internal/server"
	"github.com/loykin/hostbot/internal/store/factory"
)

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	LogFile    string
	PidFile    string
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the hostbot daemon",
		Long: `Start the hostbot daemon: the script supervisor, the HTTP probe/status
server and, when enabled, the chat command webhook.

Examples:
  hostbot serve                     # built-in defaults, scripts/ in the cwd
  hostbot serve config.toml         # explicit config file
  hostbot serve --daemonize --pidfile=/run/hostbot.pid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}

	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon output to file")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "write daemon PID to file")
	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	if flags.Daemonize {
		return daemonize(flags.PidFile, flags.LogFile)
	}

	logger.Setup(cfg.Log)

	app, err := hostbot.New(cfg.ScriptsDir, hostbot.SupervisorConfig{
		Interpreter:     cfg.Interpreter,
		InterpreterArgs: cfg.InterpreterArgs,
		GracePeriod:     cfg.GracePeriod,
		StopWait:        cfg.StopWait,
		TailBytes:       cfg.TailBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize script store: %w", err)
	}
	app.SetGlobalEnv(cfg.Env)

	if len(cfg.Installer.Command) > 0 {
		app.Installer().Command = cfg.Installer.Command
	}
	if cfg.Installer.Timeout > 0 {
		app.Installer().Timeout = cfg.Installer.Timeout
	}

	if err := hostbot.RegisterMetricsDefault(); err != nil {
		slog.Warn("failed to register metrics", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := factory.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	if st != nil {
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare run store schema: %w", err)
		}
		if err := app.SetStore(st); err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
	}

	if cfg.History.ClickHouse != nil {
		sink, err := clickhouse.New(*cfg.History.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect history sink: %w", err)
		}
		app.SetHistorySinks(sink)
		defer func() { _ = sink.Close() }()
	}

	allow, err := auth.Open(cfg.Auth.Path, cfg.Auth.Admins)
	if err != nil {
		return fmt.Errorf("failed to open allowlist: %w", err)
	}
	defer func() { _ = allow.Close() }()

	router := hostbot.NewRouter(app, cfg.Server.BasePath)

	var webhook *chat.Webhook
	if cfg.Chat.Enabled {
		webhook = chat.NewWebhook()
		bot := chat.NewBot(webhook, app.Supervisor(), app.Janitor(), app.Installer(), allow)
		go bot.Run(ctx)
		router.WithChat(webhook.Handler())
	}

	srv := server.NewServer(cfg.Server.Listen, router)
	slog.Info("hostbot serving",
		"listen", cfg.Server.Listen,
		"base_path", cfg.Server.BasePath,
		"scripts_dir", cfg.ScriptsDir,
		"chat", cfg.Chat.Enabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// Hosted scripts run in their own process groups and are left
	// running on purpose.
	slog.Info("shutting down")
	cancel()
	if webhook != nil {
		webhook.Close()
	}
	return srv.Close()
}
