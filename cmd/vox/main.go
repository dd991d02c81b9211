package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxdialog/internal/assistant"
	"voxdialog/internal/bus"
	"voxdialog/internal/config"
	"voxdialog/internal/ipc"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	configFile := cli.StringP("config", "c", "", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	mode := cli.StringP("mode", "m", config.ModeTrigger, "Listening mode: trigger or continuous")
	file := cli.StringP("file", "f", "", "Answer one question from an audio file and exit")
	cli.Parse()

	setLogger(*logLevel)
	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if cli.CommandLine.Changed("log") {
		cfg.LogLevel = *logLevel
	}
	if cli.CommandLine.Changed("proxy") {
		cfg.Proxy = *proxyAddr
	}
	if cli.CommandLine.Changed("mode") {
		cfg.Mode = *mode
	}
	if err := config.Validate(cfg); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}
	setLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemon, err := build(ctx, cfg, *file)
	if err != nil {
		log.Error("Failed to start", "err", err)
		os.Exit(1)
	}
	defer daemon.close()

	log.Info("Boot up - successful", "mode", cfg.Mode, "llm", cfg.LLM.Backend, "model", cfg.LLM.Model)

	if *file != "" {
		if _, err := daemon.assistant.RunOnce(ctx); err != nil {
			log.Error("Turn failed", "err", err)
			daemon.close()
			os.Exit(1)
		}
		return
	}

	triggers := make(chan struct{}, 1)
	trigger := func() bool {
		select {
		case triggers <- struct{}{}:
			return true
		default:
			return false
		}
	}

	ln, err := ipc.StartServer(cfg.Control.Socket, func(msg ipc.ControlMessage) ipc.Response {
		switch msg.Cmd {
		case ipc.CmdTrigger:
			if !trigger() {
				return ipc.Response{OK: true, Status: "already pending"}
			}
			return ipc.Response{OK: true, Status: "triggered"}
		case ipc.CmdStop:
			log.Info("Stop requested")
			stop()
			return ipc.Response{OK: true, Status: "stopping"}
		case ipc.CmdStatus:
			return ipc.Response{OK: true, Status: status(cfg.Mode, daemon.assistant)}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Response{Error: "unknown command " + msg.Cmd}
		}
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		daemon.close()
		os.Exit(1)
	}
	defer ln.Close()

	if daemon.bus != nil {
		go daemon.bus.Listen(ctx, func(m bus.Message) {
			switch m.Kind {
			case bus.KindTrigger:
				trigger()
			case bus.KindStop:
				log.Info("Stop requested over bus", "from", m.From)
				stop()
			}
		})
	}

	var in <-chan struct{}
	if cfg.Mode == config.ModeTrigger {
		in = triggers
		log.Info("Waiting for triggers", "socket", cfg.Control.Socket)
	}

	daemon.assistant.Run(ctx, in)
	log.Info("Shutting down")
}

func setLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[level],
		TimeFormat: time.TimeOnly,
	})))
}

func status(mode string, a *assistant.Assistant) string {
	if a.Busy() {
		return mode + ", in a turn"
	}
	return mode + ", idle"
}
