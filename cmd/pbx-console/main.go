// Command pbx-console is an interactive console for the admin protocol.
//
// It connects to the switch's admin service, logs in, and provides a
// prompt for issuing actions and watching events.
//
// Usage:
//
//	pbx-console -config pbx.yaml
//	pbx-console -address pbx:5038 -username admin -secret secret
//
// Flags:
//
//	-config    YAML configuration file (flags override it)
//	-address   admin service endpoint, host:port
//	-username  login username
//	-secret    login secret
//	-events    login event mask (default "on")
//	-wire-log  write CBOR protocol capture to this file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/pbxkit/pbxkit-go/pkg/config"
	"github.com/pbxkit/pbxkit-go/pkg/connection"
	"github.com/pbxkit/pbxkit-go/pkg/dispatch"
	"github.com/pbxkit/pbxkit-go/pkg/log"
	"github.com/pbxkit/pbxkit-go/pkg/manager"
	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		address    = flag.String("address", "", "admin service endpoint (host:port)")
		username   = flag.String("username", "", "login username")
		secret     = flag.String("secret", "", "login secret")
		events     = flag.String("events", "", "login event mask")
		wireLog    = flag.String("wire-log", "", "protocol capture file")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *secret != "" {
		cfg.Secret = *secret
	}
	if *events != "" {
		cfg.Events = *events
	}
	if *wireLog != "" {
		cfg.WireLog = *wireLog
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pbx> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	logger := slog.New(slog.NewTextHandler(rl.Stderr(), nil))

	mgrCfg := cfg.ManagerConfig()
	mgrCfg.Logger = logger
	if cfg.WireLog != "" {
		capture, err := log.NewFileLogger(cfg.WireLog)
		if err != nil {
			return fmt.Errorf("wire log: %w", err)
		}
		defer capture.Close()
		mgrCfg.WireLogger = capture
	}

	client := manager.NewClient(mgrCfg)

	console := &console{
		client:     client,
		rl:         rl,
		showEvents: true,
	}
	client.Registry().Register(dispatch.Wildcard, console.handleEvent)

	sup := connection.NewSupervisor(
		func(ctx context.Context) error {
			if err := client.Connect(ctx); err != nil {
				return err
			}
			if err := client.Login(ctx); err != nil {
				client.Close()
				return err
			}
			return nil
		},
		connection.Callbacks{
			OnRetry: func(attempt int, delay time.Duration) {
				fmt.Fprintf(rl.Stdout(), "reconnecting (attempt %d) in %s...\n", attempt, delay)
			},
		},
	)
	defer sup.Close()
	sup.SetAutoReconnect(cfg.Reconnect)
	client.OnDisconnect(func(err error) {
		fmt.Fprintln(rl.Stdout(), "connection lost:", err)
		sup.ConnectionLost()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = sup.Connect(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.Address, err)
	}
	fmt.Fprintln(rl.Stdout(), "connected:", client.Banner())
	defer client.Close()

	console.loop()
	return nil
}

// console holds the interactive session state.
type console struct {
	client     *manager.Client
	rl         *readline.Instance
	showEvents bool
}

func (c *console) handleEvent(name string, unit *wire.Unit, conn dispatch.Identity) {
	if !c.showEvents {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", name)
	for _, key := range unit.Keys() {
		if key == wire.KeyEvent {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", key, unit.Get(key))
	}
	fmt.Fprintln(c.rl.Stdout(), b.String())
}

func (c *console) loop() {
	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "action", "a":
			c.cmdAction(args)

		case "ping":
			c.do(manager.Ping{})

		case "status":
			c.do(manager.Status{})

		case "channels":
			c.do(manager.CoreShowChannels{})

		case "queues":
			c.do(manager.QueueStatus{})

		case "hangup":
			if len(args) != 1 {
				fmt.Fprintln(c.rl.Stdout(), "usage: hangup <channel>")
				continue
			}
			c.do(manager.Hangup{Channel: args[0]})

		case "getvar":
			c.cmdGetvar(args)

		case "setvar":
			c.cmdSetvar(args)

		case "events":
			c.cmdEvents(args)

		case "exit", "quit", "q":
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "unknown command %q (try: help)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprint(c.rl.Stdout(), `Commands:
  action <name> [key=value ...]   issue a generic action
  ping                            liveness check
  status                          list active channels (Status)
  channels                        list active channels (CoreShowChannels)
  queues                          queue status
  hangup <channel>                hang up a channel
  getvar <name> [channel]         read a variable
  setvar <name> <value> [channel] set a variable
  events on|off|show|hide         server event mask / local display
  exit                            quit
`)
}

// cmdAction issues a generic action: action Originate Channel=SIP/100 ...
func (c *console) cmdAction(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "usage: action <name> [key=value ...]")
		return
	}
	name := args[0]
	fields := wire.Fields{}
	for _, kv := range args[1:] {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			fmt.Fprintf(c.rl.Stdout(), "ignoring %q: expected key=value\n", kv)
			continue
		}
		fields = fields.Add(key, value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), manager.DefaultActionTimeout)
	defer cancel()
	reply, err := c.client.Send(ctx, name, fields)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "error:", err)
		return
	}
	c.printUnit(reply)
}

func (c *console) cmdGetvar(args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: getvar <name> [channel]")
		return
	}
	channel := ""
	if len(args) == 2 {
		channel = args[1]
	}
	ctx, cancel := context.WithTimeout(context.Background(), manager.DefaultActionTimeout)
	defer cancel()
	value, err := c.client.GetVar(ctx, args[0], channel)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "error:", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s=%s\n", args[0], value)
}

func (c *console) cmdSetvar(args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(c.rl.Stdout(), "usage: setvar <name> <value> [channel]")
		return
	}
	channel := ""
	if len(args) == 3 {
		channel = args[2]
	}
	ctx, cancel := context.WithTimeout(context.Background(), manager.DefaultActionTimeout)
	defer cancel()
	if err := c.client.SetVar(ctx, args[0], args[1], channel); err != nil {
		fmt.Fprintln(c.rl.Stdout(), "error:", err)
	}
}

func (c *console) cmdEvents(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: events on|off|show|hide")
		return
	}
	switch strings.ToLower(args[0]) {
	case "show":
		c.showEvents = true
	case "hide":
		c.showEvents = false
	default:
		c.do(manager.Events{EventMask: args[0]})
	}
}

func (c *console) do(a manager.Action) {
	ctx, cancel := context.WithTimeout(context.Background(), manager.DefaultActionTimeout)
	defer cancel()
	reply, err := c.client.Do(ctx, a)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "error:", err)
		return
	}
	c.printUnit(reply)
}

func (c *console) printUnit(u *wire.Unit) {
	for _, key := range u.Keys() {
		fmt.Fprintf(c.rl.Stdout(), "%s: %s\n", key, u.Get(key))
	}
	for i, ev := range u.Events {
		fmt.Fprintf(c.rl.Stdout(), "--- %d/%d ---\n", i+1, len(u.Events))
		for _, key := range ev.Keys() {
			fmt.Fprintf(c.rl.Stdout(), "%s: %s\n", key, ev.Get(key))
		}
	}
}
