// Package verifier provides offline batch verification of signed events.
//
// Each event gets two independent checks: id_matches recomputes the id from
// the fields, and signature_valid checks the signature against the stored id
// and public key. A forged signature and a tampered field are therefore told
// apart in the report. Nothing here touches the network.
package verifier

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/nostrevent/pkg/event"
	"github.com/Mindburn-Labs/nostrevent/pkg/observability"
)

const VerifierVersion = "0.1.0"

// Check names.
const (
	CheckDecode         = "decode"
	CheckIDMatches      = "id_matches"
	CheckSignatureValid = "signature_valid"
)

// DefaultMaxLineSize bounds one NDJSON record in VerifyStream.
const DefaultMaxLineSize = 4 << 20

// VerifyReport is the structured output of a verification run.
type VerifyReport struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	Verified    bool          `json:"verified" yaml:"verified"`
	Timestamp   time.Time     `json:"timestamp" yaml:"timestamp"`
	Events      []EventResult `json:"events" yaml:"events"`
	EventCount  int           `json:"event_count" yaml:"event_count"`
	Rejected    int           `json:"rejected" yaml:"rejected"`
	IssueCount  int           `json:"issue_count" yaml:"issue_count"`
	Summary     string        `json:"summary" yaml:"summary"`
	VerifierVer string        `json:"verifier_version" yaml:"verifier_version"`
}

// EventResult is the outcome for one event.
type EventResult struct {
	Index    int           `json:"index" yaml:"index"`
	Line     int           `json:"line,omitempty" yaml:"line,omitempty"`
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	PubKey   string        `json:"pubkey,omitempty" yaml:"pubkey,omitempty"`
	Kind     int           `json:"kind" yaml:"kind"`
	Verified bool          `json:"verified" yaml:"verified"`
	Checks   []CheckResult `json:"checks" yaml:"checks"`
}

// CheckResult represents a single verification check.
type CheckResult struct {
	Name   string `json:"name" yaml:"name"`
	Pass   bool   `json:"pass" yaml:"pass"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"` // failure reason
}

// FirstFailure returns the name of the first failed check, or "".
func (r EventResult) FirstFailure() string {
	for _, c := range r.Checks {
		if !c.Pass {
			return c.Name
		}
	}
	return ""
}

// Option configures a verification run.
type Option func(*options)

type options struct {
	concurrency int
	provider    *observability.Provider
	clock       func() time.Time
	maxLineSize int
}

// WithConcurrency bounds the number of events checked at once. Values below
// one fall back to GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithProvider records spans and metrics for the run and each event.
func WithProvider(p *observability.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithClock overrides the clock for deterministic testing.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithMaxLineSize bounds a single record read by VerifyStream. Values below
// 1 select DefaultMaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(o *options) { o.maxLineSize = n }
}

func newOptions(opts []Option) options {
	o := options{
		concurrency: runtime.GOMAXPROCS(0),
		clock:       time.Now,
		maxLineSize: DefaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}
	if o.maxLineSize < 1 {
		o.maxLineSize = DefaultMaxLineSize
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o
}

type item struct {
	ev        *event.Event
	line      int
	decodeErr error
}

// VerifyEvents checks every event concurrently. Results keep input order. A
// nil event is reported as failing to decode. The only error returned is
// ctx's.
func VerifyEvents(ctx context.Context, events []*event.Event, opts ...Option) (*VerifyReport, error) {
	items := make([]item, len(events))
	for i, e := range events {
		items[i] = item{ev: e}
		if e == nil {
			items[i].decodeErr = fmt.Errorf("event is nil")
		}
	}
	return run(ctx, items, newOptions(opts))
}

// VerifyStream reads newline-delimited JSON events from r and verifies them.
// Blank lines are skipped. A line that fails to decode becomes a failed
// result rather than aborting the run.
func VerifyStream(ctx context.Context, r io.Reader, opts ...Option) (*VerifyReport, error) {
	o := newOptions(opts)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, o.maxLineSize)), o.maxLineSize)

	var items []item
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		ev, err := event.Decode(text)
		items = append(items, item{ev: ev, line: line, decodeErr: err})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return run(ctx, items, o)
}

func run(ctx context.Context, items []item, o options) (*VerifyReport, error) {
	report := &VerifyReport{
		RunID:       uuid.NewString(),
		Verified:    true,
		Timestamp:   o.clock().UTC(),
		Events:      make([]EventResult, len(items)),
		EventCount:  len(items),
		VerifierVer: VerifierVersion,
	}

	var finish func(error)
	if o.provider != nil {
		ctx, finish = o.provider.TrackOperation(ctx, observability.OpVerifyBatch,
			observability.BatchAttributes(report.RunID, len(items))...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := verifyItem(gctx, items[i], o.provider)
			res.Index = i
			report.Events[i] = res
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if finish != nil {
		finish(err)
	}
	if err != nil {
		return nil, err
	}

	for _, res := range report.Events {
		if !res.Verified {
			report.Rejected++
		}
		for _, c := range res.Checks {
			if !c.Pass {
				report.IssueCount++
			}
		}
	}
	if report.Rejected > 0 {
		report.Verified = false
		report.Summary = fmt.Sprintf("FAIL: %d/%d events rejected", report.Rejected, report.EventCount)
	} else {
		report.Summary = fmt.Sprintf("PASS: %d/%d events verified", report.EventCount, report.EventCount)
	}
	return report, nil
}

func verifyItem(ctx context.Context, it item, p *observability.Provider) EventResult {
	res := EventResult{Line: it.line}
	if it.decodeErr != nil {
		res.Checks = []CheckResult{{Name: CheckDecode, Pass: false, Reason: it.decodeErr.Error()}}
		if p != nil {
			p.RecordVerification(ctx, false, CheckDecode)
		}
		return res
	}

	e := it.ev
	res.ID = e.ID()
	res.PubKey = e.PublicKey()
	res.Kind = e.Kind()

	var finish func(error)
	if p != nil {
		_, finish = p.TrackOperation(ctx, observability.OpVerify,
			observability.EventAttributes(e.Kind(), e.ID())...)
	}

	idCheck, idErr := checkID(e)
	sigCheck, sigErr := checkSignature(e)
	res.Checks = []CheckResult{idCheck, sigCheck}
	res.Verified = idCheck.Pass && sigCheck.Pass

	if finish != nil {
		err := idErr
		if err == nil {
			err = sigErr
		}
		finish(err)
		p.RecordVerification(ctx, res.Verified, res.FirstFailure())
	}
	return res
}

func checkID(e *event.Event) (CheckResult, error) {
	ok, err := e.CheckID()
	if err != nil {
		return CheckResult{Name: CheckIDMatches, Pass: false, Reason: err.Error()}, err
	}
	if !ok {
		computed, _ := e.ComputeID()
		return CheckResult{
			Name:   CheckIDMatches,
			Pass:   false,
			Reason: fmt.Sprintf("id mismatch: stored %s, computed %s", e.ID(), computed),
		}, nil
	}
	return CheckResult{Name: CheckIDMatches, Pass: true, Detail: "id matches canonical hash"}, nil
}

func checkSignature(e *event.Event) (CheckResult, error) {
	ok, err := e.CheckSignature()
	if err != nil {
		return CheckResult{Name: CheckSignatureValid, Pass: false, Reason: err.Error()}, err
	}
	if !ok {
		return CheckResult{Name: CheckSignatureValid, Pass: false, Reason: "signature does not verify for id under pubkey"}, nil
	}
	return CheckResult{Name: CheckSignatureValid, Pass: true, Detail: "BIP-340 signature valid"}, nil
}
