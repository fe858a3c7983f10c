// Command pbx-log views and summarizes protocol capture files.
//
// Capture files are written by the log package (see the wire-log
// options of pbx-console and the library clients).
//
// Usage:
//
//	pbx-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     print events in human-readable form
//	stats    print event counts by protocol, direction, and category
//
// Examples:
//
//	pbx-log view capture.plog
//	pbx-log view -direction in -protocol admin capture.plog
//	pbx-log stats capture.plog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pbxkit/pbxkit-go/pkg/log"
)

const usage = `pbx-log - protocol capture viewer

Usage:
  pbx-log <command> [flags] <file.plog>

Commands:
  view     print events in human-readable form
  stats    print event counts by protocol, direction, and category

Use "pbx-log <command> -help" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = cmdView(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	var (
		direction = fs.String("direction", "", "filter by direction (in, out)")
		protocol  = fs.String("protocol", "", "filter by protocol (admin, callctl)")
		connID    = fs.String("conn-id", "", "filter by connection id")
		actionID  = fs.String("action-id", "", "filter by correlation id")
	)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("view: expected exactly one capture file")
	}

	filter := log.Filter{ConnectionID: *connID, ActionID: *actionID}
	if *direction != "" {
		d, err := parseDirection(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	if *protocol != "" {
		p, err := parseProtocol(*protocol)
		if err != nil {
			return err
		}
		filter.Protocol = &p
	}

	r, err := log.NewFilteredReader(fs.Arg(0), filter)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printEvent(event)
	}
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("stats: expected exactly one capture file")
	}

	r, err := log.NewReader(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	var total int
	byProtocol := map[string]int{}
	byDirection := map[string]int{}
	byCategory := map[string]int{}
	conns := map[string]bool{}

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		total++
		byProtocol[event.Protocol.String()]++
		byDirection[event.Direction.String()]++
		byCategory[event.Category.String()]++
		conns[event.ConnectionID] = true
	}

	fmt.Printf("events:      %d\n", total)
	fmt.Printf("connections: %d\n", len(conns))
	printCounts("protocol", byProtocol)
	printCounts("direction", byDirection)
	printCounts("category", byCategory)
	return nil
}

func printCounts(label string, counts map[string]int) {
	fmt.Printf("%s:\n", label)
	for key, n := range counts {
		fmt.Printf("  %-10s %d\n", key, n)
	}
}

func printEvent(e log.Event) {
	ts := e.Timestamp.Format("15:04:05.000")
	prefix := fmt.Sprintf("%s %-3s %-7s", ts, e.Direction, e.Protocol)

	switch {
	case e.Unit != nil:
		name := e.Unit.Action
		if name == "" {
			name = e.Unit.Event
		}
		if name == "" {
			name = "response " + e.Unit.Response
		}
		fmt.Printf("%s %s action_id=%s size=%d\n", prefix, name, e.Unit.ActionID, e.Unit.Size)
		if len(e.Unit.Raw) > 0 {
			for _, line := range strings.Split(strings.TrimRight(string(e.Unit.Raw), "\r\n"), "\n") {
				fmt.Printf("    %s\n", strings.TrimRight(line, "\r"))
			}
		}
	case e.Line != nil:
		fmt.Printf("%s %s\n", prefix, e.Line.Text)
	case e.StateChange != nil:
		fmt.Printf("%s state %s -> %s\n", prefix, e.StateChange.From, e.StateChange.To)
	case e.Error != nil:
		fmt.Printf("%s error [%s] %s\n", prefix, e.Error.Op, e.Error.Message)
	default:
		fmt.Printf("%s (empty event)\n", prefix)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func parseProtocol(s string) (log.Protocol, error) {
	switch strings.ToLower(s) {
	case "admin":
		return log.ProtocolAdmin, nil
	case "callctl":
		return log.ProtocolCallControl, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}
