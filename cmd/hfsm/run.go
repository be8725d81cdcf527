package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/enetx/g"
	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/internal/traffic"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the traffic light from the terminal",
	Long: `Reads one command per line from standard input:

  NEXT, TICK, CLEAR     send the event
  EMERGENCY [reason]    send EMERGENCY with the reason as payload
  RESET                 return to the initial state
  history               print the transition history
  quit                  exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		m := traffic.Definition().New(
			hfsm.WithID[traffic.Light](g.String(cfg.MachineID)),
			hfsm.WithLogger[traffic.Light](logger),
			hfsm.WithHistoryLimit[traffic.Light](cfg.HistoryLimit),
		)

		return newConsole(m, termenv.ColorProfile()).run(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

var stateColors = map[hfsm.State]string{
	traffic.Green:    "#22c55e",
	traffic.Yellow:   "#eab308",
	traffic.Red:      "#ef4444",
	traffic.Flashing: "#f97316",
}

type console struct {
	machine *hfsm.Machine[traffic.Light]
	profile termenv.Profile
}

func newConsole(m *hfsm.Machine[traffic.Light], profile termenv.Profile) *console {
	return &console{machine: m, profile: profile}
}

func (c *console) paint(state hfsm.State) string {
	return c.profile.String(string(state)).Foreground(c.profile.Color(stateColors[state])).Bold().String()
}

func (c *console) print(out io.Writer, snap hfsm.Snapshot[traffic.Light]) {
	fmt.Fprintf(out, "%s cycles=%d blinks=%d", c.paint(snap.State), snap.Context.Cycles, snap.Context.Blinks)

	if snap.Context.Reason != "" {
		fmt.Fprintf(out, " reason=%q", snap.Context.Reason)
	}

	fmt.Fprintln(out)
}

func (c *console) run(in io.Reader, out io.Writer) error {
	unsubscribe := c.machine.Subscribe(func(next, _ hfsm.Snapshot[traffic.Light]) { c.print(out, next) })
	defer unsubscribe()

	c.print(out, c.machine.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, arg, _ := strings.Cut(line, " ")

		switch command {
		case "quit", "exit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "history":
			c.history(out)
		case "RESET":
			c.machine.Reset()
		default:
			if err := c.send(out, hfsm.Event(command), strings.TrimSpace(arg)); err != nil {
				return err
			}
		}
	}
}

func (c *console) send(out io.Writer, event hfsm.Event, arg string) error {
	var (
		applied bool
		err     error
	)

	if arg != "" {
		applied, err = c.machine.Dispatch(event, map[string]any{"reason": arg})
	} else {
		applied, err = c.machine.Dispatch(event)
	}

	if hfsm.IsConfigError(err) {
		return err
	}

	switch {
	case err != nil:
		fmt.Fprintf(out, "error: %v\n", err)
	case !applied:
		fmt.Fprintf(out, "%s ignored in %s\n", event, c.paint(c.machine.Current()))
	}

	return nil
}

func (c *console) history(out io.Writer) {
	records := c.machine.History()
	if records.Empty() {
		fmt.Fprintln(out, "no transitions yet")
		return
	}

	for i, r := range records {
		fmt.Fprintf(out, "%d. %s cycles=%d\n", i+1, c.paint(r.State), r.Context.Cycles)
	}
}
