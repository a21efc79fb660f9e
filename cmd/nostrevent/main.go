package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Mindburn-Labs/nostrevent/pkg/config"
)

const version = "0.1.0"

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = verification failed
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger := newLogger(cfg, stderr)

	switch args[1] {
	case "keygen":
		return runKeygenCmd(args[2:], stdout, stderr)
	case "id":
		return runIDCmd(args[2:], stdout, stderr)
	case "encode":
		return runEncodeCmd(args[2:], stdout, stderr)
	case "sign":
		return runSignCmd(args[2:], cfg, logger, stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], cfg, logger, stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "nostrevent %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("component", "nostrevent")
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "nostrevent %s\n", version)
	fmt.Fprintln(w, "Signed, content-addressed events: canonical ids and BIP-340 signatures.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  nostrevent <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "KEYS")
	printCommand(w, "keygen", "Generate a private key and print it with its public key (--json)")

	printSection(w, "EVENTS")
	printCommand(w, "id", "Print the computed id of an event (--in)")
	printCommand(w, "encode", "Print the canonical serialization of an event (--in)")
	printCommand(w, "sign", "Build and sign an event with NOSTREVENT_SECRET_KEY (--kind, --content, --tag)")
	printCommand(w, "verify", "Verify newline-delimited events (--in, --json, --yaml)")

	printSection(w, "UTILITIES")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %-10s %s\n", name, desc)
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// tagList collects repeated -tag flags. Each value is one comma-separated
// tag row.
type tagList [][]string

var _ flag.Value = (*tagList)(nil)

func (t *tagList) String() string {
	rows := make([]string, len(*t))
	for i, row := range *t {
		rows[i] = strings.Join(row, ",")
	}
	return strings.Join(rows, " ")
}

func (t *tagList) Set(v string) error {
	if v == "" {
		return fmt.Errorf("empty tag")
	}
	*t = append(*t, strings.Split(v, ","))
	return nil
}
