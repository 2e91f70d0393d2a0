package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

const (
	MinPort     = 0
	MaxPort     = 65535
	DefaultPort = 2022

	MinTimeout     = 1
	MaxTimeout     = 86400
	DefaultTimeout = 5
)

// Config is everything the server needs at startup. The protocol
// surface comes from the command line; operational extras (ops HTTP,
// issuance ledger, log directory) come from the environment so that the
// CLI contract stays exactly -f/-p/-t.
type Config struct {
	EventsFile string
	Port       uint16
	Timeout    uint32

	OpsAddr    string
	LedgerPath string
	LogDir     string
}

// Parse reads the command line. args is os.Args[1:].
func Parse(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("ticket-server", pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ticket-server -f <events file> [-p <port>] [-t <timeout>]")
	}

	file := flags.StringP("file", "f", "", "path to the events catalogue (required)")
	port := flags.StringP("port", "p", "", fmt.Sprintf("UDP port, %d-%d (default %d)", MinPort, MaxPort, DefaultPort))
	timeout := flags.StringP("timeout", "t", "", fmt.Sprintf("reservation lifetime in seconds, %d-%d (default %d)", MinTimeout, MaxTimeout, DefaultTimeout))

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	if *file == "" {
		return nil, fmt.Errorf("file argument is required")
	}
	if _, err := os.Stat(*file); err != nil {
		return nil, fmt.Errorf("file does not exist: %s", *file)
	}

	cfg := &Config{
		EventsFile: *file,
		Port:       DefaultPort,
		Timeout:    DefaultTimeout,
		OpsAddr:    os.Getenv("OPS_ADDR"),
		LedgerPath: os.Getenv("LEDGER_PATH"),
		LogDir:     os.Getenv("LOG_DIR"),
	}

	if *port != "" {
		value, err := parseNumeric(*port, "port", MinPort, MaxPort)
		if err != nil {
			return nil, err
		}
		cfg.Port = uint16(value)
	}
	if *timeout != "" {
		value, err := parseNumeric(*timeout, "timeout", MinTimeout, MaxTimeout)
		if err != nil {
			return nil, err
		}
		cfg.Timeout = uint32(value)
	}

	return cfg, nil
}

// MustLoad parses os.Args and exits with status 1 on any problem,
// printing the reason and the usage line.
func MustLoad() *Config {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Usage: ticket-server -f <events file> [-p <port>] [-t <timeout>]")
		os.Exit(1)
	}
	return cfg
}

func parseNumeric(value, name string, min, max uint64) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s value is out of range. Acceptable range: %d-%d", name, min, max)
		}
		return 0, fmt.Errorf("%s value is not a number", name)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s value is out of range. Acceptable range: %d-%d", name, min, max)
	}
	return parsed, nil
}
