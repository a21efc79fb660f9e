package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/nostrevent/pkg/config"
	"github.com/Mindburn-Labs/nostrevent/pkg/crypto"
	"github.com/Mindburn-Labs/nostrevent/pkg/event"
)

// runKeygenCmd implements `nostrevent keygen`.
func runKeygenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output keys as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	sk, err := crypto.GeneratePrivateKey()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	pub, err := crypto.PublicKeyFromPrivate(sk)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]string{
			"secret_key": hex.EncodeToString(sk),
			"public_key": hex.EncodeToString(pub),
		}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "secret_key: %x\n", sk)
	_, _ = fmt.Fprintf(stdout, "public_key: %x\n", pub)
	return 0
}

// runIDCmd implements `nostrevent id`: prints the id recomputed from the
// fields, ignoring any stored id.
func runIDCmd(args []string, stdout, stderr io.Writer) int {
	e, code := readEventArg("id", args, stderr)
	if e == nil {
		return code
	}
	id, err := e.ComputeID()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, id)
	return 0
}

// runEncodeCmd implements `nostrevent encode`.
func runEncodeCmd(args []string, stdout, stderr io.Writer) int {
	e, code := readEventArg("encode", args, stderr)
	if e == nil {
		return code
	}
	b, err := e.CanonicalBytes()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = stdout.Write(b)
	_, _ = fmt.Fprintln(stdout)
	return 0
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func readEventArg(name string, args []string, stderr io.Writer) (*event.Event, int) {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var in string
	cmd.StringVar(&in, "in", "", "Event JSON file (default stdin)")

	if err := cmd.Parse(args); err != nil {
		return nil, 2
	}

	data, err := readInput(in)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read event: %v\n", err)
		return nil, 2
	}
	e, err := event.Decode(data)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, 2
	}
	return e, 0
}

// runSignCmd implements `nostrevent sign`. Fields come from flags, or from an
// event JSON given with --in whose id, pubkey and signature are replaced.
func runSignCmd(args []string, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("sign", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		in        string
		kind      int
		content   string
		createdAt int64
		tags      tagList
	)
	cmd.StringVar(&in, "in", "", "Event JSON to sign instead of building from flags")
	cmd.IntVar(&kind, "kind", 1, "Event kind")
	cmd.StringVar(&content, "content", "", "Event content")
	cmd.Int64Var(&createdAt, "created-at", 0, "Unix seconds (default now)")
	cmd.Var(&tags, "tag", "Tag row as comma-separated values (repeatable)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if cfg.SecretKey == "" {
		_, _ = fmt.Fprintln(stderr, "Error: NOSTREVENT_SECRET_KEY is required")
		return 2
	}
	signer, err := crypto.NewSchnorrSignerFromHex(cfg.SecretKey, "env")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer signer.Zero()

	var b *event.Builder
	if in != "" {
		data, err := readInput(in)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot read event: %v\n", err)
			return 2
		}
		e, err := event.Decode(data)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		b = e.ToBuilder()
	} else {
		if !flagSet(cmd, "created-at") {
			createdAt = time.Now().Unix()
		}
		b = event.NewBuilder().CreatedAt(createdAt).Kind(kind).Content(content)
		for _, row := range tags {
			b.AddTag(row...)
		}
	}

	e, err := b.BuildSigned(signer)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger.Debug("event signed", "id", e.ID(), "kind", e.Kind(), "pubkey", e.PublicKey())

	text, err := e.ToText()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = stdout.Write(text)
	_, _ = fmt.Fprintln(stdout)
	return 0
}
