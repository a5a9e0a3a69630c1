package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-firecracker/internal/auth"
	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/serialport"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "firecracker",
		Short:         "X10 firecracker transmitter bridge",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newPortsCmd(serialport.Enumerator{}),
		newSendCmd(serialport.Opener{}),
		newTokenCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge daemon (MQTT, HTTP API, health reporting)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", getConfigPath(), "path to the YAML configuration file")
	return cmd
}

func newPortsCmd(en firecracker.Enumerator) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports present on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := firecracker.ListPorts(cmd.Context(), en)
			if err != nil {
				return err
			}
			return printPorts(cmd.OutOrStdout(), ports, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printPorts(w io.Writer, ports []firecracker.PortInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	}

	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "no serial ports found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUSB\tVID:PID\tMANUFACTURER\tSERIAL")
	for _, p := range ports {
		ids := ""
		if p.IsUSB {
			ids = p.VID + ":" + p.PID
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", p.Name, p.IsUSB, ids, p.Manufacturer, p.SerialNumber)
	}
	return tw.Flush()
}

// sendOptions are the flags of the send command.
type sendOptions struct {
	port        string
	baud        int
	warmup      time.Duration
	bitInterval time.Duration
}

func newSendCmd(opener firecracker.Opener) *cobra.Command {
	defaults := config.Default().Protocols.Firecracker
	opts := sendOptions{
		port:        defaults.Port,
		baud:        defaults.Baud,
		warmup:      defaults.Warmup,
		bitInterval: defaults.BitInterval,
	}

	cmd := &cobra.Command{
		Use:   "send <house> <unit> <on|off>",
		Short: "Open the port, send one command and close it",
		Long: `Send a single on/off command to an X10 module.

The port is opened, the transmitter is given its warm-up time, one frame
is clocked out and the port is closed again.

Examples:
  firecracker send A 1 on --port /dev/ttyUSB0
  firecracker send p 16 off --port COM3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOnce(cmd.Context(), cmd.OutOrStdout(), opener, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.port, "port", "p", opts.port, "serial port the transmitter is plugged into")
	cmd.Flags().IntVar(&opts.baud, "baud", opts.baud, "line rate used to open the port")
	cmd.Flags().DurationVar(&opts.warmup, "warmup", opts.warmup, "delay after opening before the first frame")
	cmd.Flags().DurationVar(&opts.bitInterval, "bit-interval", opts.bitInterval, "hold time of each half-bit")
	return cmd
}

// sendOnce parses <house> <unit> <on|off> and transmits one frame.
func sendOnce(ctx context.Context, w io.Writer, opener firecracker.Opener, opts sendOptions, args []string) error {
	house, err := firecracker.ParseHouse(args[0])
	if err != nil {
		return err
	}
	module, err := firecracker.ParseModule(args[1])
	if err != nil {
		return err
	}
	var on bool
	switch strings.ToLower(args[2]) {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("%w: %q (want on or off)", firecracker.ErrInvalidCommand, args[2])
	}

	cmd := firecracker.Command{House: house, Module: module, On: on}
	frame, err := cmd.Encode()
	if err != nil {
		return err
	}

	session := firecracker.NewSession(firecracker.SessionOptions{
		Opener:      opener,
		Baud:        opts.baud,
		Warmup:      opts.warmup,
		BitInterval: opts.bitInterval,
	})

	if err := session.Open(ctx, opts.port); err != nil {
		return err
	}

	sendErr := session.Send(ctx, cmd)

	//nolint:contextcheck // the port is closed even after an interrupt
	closeErr := session.Close(context.Background())
	if sendErr != nil {
		return sendErr
	}
	if closeErr != nil {
		return closeErr
	}

	_, err = fmt.Fprintf(w, "sent %s via %s (frame %s)\n", cmd, opts.port, frame)
	return err
}

// tokenOptions are the flags of the token command.
type tokenOptions struct {
	subject string
	role    string
	ttl     time.Duration
	secret  string
}

func newTokenCmd() *cobra.Command {
	opts := tokenOptions{
		role:   string(auth.RoleOperator),
		ttl:    auth.DefaultTokenTTL,
		secret: config.Default().Security.JWT.Secret,
	}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token for the HTTP API.

The secret defaults to GRAYLOGIC_JWT_SECRET. Roles: viewer, operator, admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return issueToken(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.subject, "subject", "", "token subject, e.g. a user or service name (required)")
	cmd.Flags().StringVar(&opts.role, "role", opts.role, "role granted by the token")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", opts.ttl, "token lifetime, e.g. 30m or 24h")
	cmd.Flags().StringVar(&opts.secret, "secret", opts.secret, "signing secret")
	return cmd
}

func issueToken(w io.Writer, opts tokenOptions) error {
	if opts.secret == "" {
		return fmt.Errorf("a signing secret is required (--secret or GRAYLOGIC_JWT_SECRET)")
	}
	token, err := auth.GenerateAccessToken(opts.subject, auth.Role(opts.role), opts.secret, opts.ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
