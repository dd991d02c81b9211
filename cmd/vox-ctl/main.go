package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"voxdialog/internal/config"
	"voxdialog/internal/ipc"
	"voxdialog/internal/store"
)

const usage = `usage: vox-ctl [flags] <command>

commands:
  trigger      listen for one question
  stop         stop the daemon
  status       show what the daemon is doing
  history [n]  print the last n turns (default 10)

flags:
`

type history interface {
	Recent(ctx context.Context, n int) ([]store.Turn, error)
	Close() error
}

func main() {
	configFile := cli.StringP("config", "c", "", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	socket := cli.StringP("socket", "s", "", "Control socket (overrides config)")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() == 0 {
		cli.Usage()
		os.Exit(2)
	}

	godotenv.Load(*envFile)
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *socket != "" {
		cfg.Control.Socket = *socket
	}

	cmd := cli.Arg(0)
	switch cmd {
	case ipc.CmdTrigger, ipc.CmdStop, ipc.CmdStatus:
		resp, err := ipc.SendCommand(cfg.Control.Socket, ipc.ControlMessage{Cmd: cmd, Args: cli.Args()[1:]})
		if err != nil {
			fmt.Println("vox not running:", err)
			os.Exit(1)
		}
		if resp.Status != "" {
			fmt.Println(resp.Status)
		}

	case "history":
		n := 10
		if cli.NArg() > 1 {
			if n, err = strconv.Atoi(cli.Arg(1)); err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "bad count %q\n", cli.Arg(1))
				os.Exit(2)
			}
		}
		if err := printHistory(cfg.Store, n); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		cli.Usage()
		os.Exit(2)
	}
}

func printHistory(cfg config.StoreConfig, n int) error {
	ctx := context.Background()

	var (
		h   history
		err error
	)
	switch cfg.Backend {
	case config.StorePostgres:
		h, err = store.OpenPostgres(ctx, cfg.DSN)
	default:
		h, err = store.OpenSQLite(ctx, cfg.Path)
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer h.Close()

	turns, err := h.Recent(ctx, n)
	if err != nil {
		return err
	}

	for _, t := range turns {
		fmt.Printf("── %s  [%s]\n", t.Timestamp.Local().Format("2006-01-02 15:04:05"), t.UserLanguage)
		fmt.Println("you: " + indent(t.UserText))
		fmt.Println("vox: " + indent(t.AssistantReply))
		fmt.Println()
	}
	return nil
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n     ")
}
