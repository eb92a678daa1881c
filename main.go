// Command gortx runs a compiled structural transfer rule set over an
// Apertium stream:
//
//	gortx [flags] rules_file [input_file [output_file]]
//
// The rules file may instead be given by GORTX_RULES, and -serve's address
// by GORTX_SERVE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/logio"
	"github.com/jcorbin/gortx/internal/ruleset"
	"github.com/jcorbin/gortx/internal/server"
	"github.com/jcorbin/gortx/internal/transfer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var log logio.Logger
	log.SetOutput(os.Stderr)

	cmd, err := parseCommand(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		stop()
		os.Exit(0)
	} else if err != nil {
		log.Errorf("%v", err)
	} else if err := cmd.run(ctx, &log, os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Errorf("%+v", err)
	}
	stop()
	os.Exit(log.ExitCode())
}

type command struct {
	rulesPath  string
	inputPath  string
	outputPath string

	coref       bool
	both        bool
	everything  bool
	filterTrace bool
	filter      bool
	ruleTrace   bool
	steps       bool
	linear      bool
	trees       bool
	treeMode    string
	nullFlush   bool

	timeout    time.Duration
	decompile  bool
	serve      string
	traceJSON  bool
	arenaLimit int
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseCommand(name string, args []string, getenv func(string) string, stderr io.Writer) (*command, error) {
	var cmd command
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %v [flags] rules_file [input_file [output_file]]\n", name)
		fs.PrintDefaults()
	}

	fs.BoolVar(&cmd.coref, "a", false, "expect coreference LUs from apertium-anaphora")
	fs.BoolVar(&cmd.both, "b", false, "print text as well as trees (use with -T)")
	fs.BoolVar(&cmd.everything, "e", false, "print a complete trace of execution")
	fs.BoolVar(&cmd.filterTrace, "f", false, "trace branch filtering")
	fs.BoolVar(&cmd.filter, "F", true, "filter branches whenever a token is read, not only when output is forced")
	fs.StringVar(&cmd.treeMode, "m", "flat", "tree output mode: flat, nest, latex, dot, or box")
	fs.BoolVar(&cmd.ruleTrace, "r", false, "print the rules that are being applied")
	fs.BoolVar(&cmd.steps, "s", false, "print the instructions executed by the stack machine")
	fs.BoolVar(&cmd.linear, "t", false, "mimic the behavior of apertium-transfer and apertium-interchunk")
	fs.BoolVar(&cmd.trees, "T", false, "print parse trees rather than apply output rules")
	fs.BoolVar(&cmd.nullFlush, "z", false, "flush output on \\0")

	fs.DurationVar(&cmd.timeout, "timeout", 0, "specify a time limit")
	fs.BoolVar(&cmd.decompile, "decompile", false, "print a listing of the rules and exit")
	fs.StringVar(&cmd.serve, "serve", envOr(getenv, "GORTX_SERVE", ""), "serve translations over HTTP on the given address")
	fs.BoolVar(&cmd.traceJSON, "trace-json", false, "write trace events as JSON records")
	fs.IntVar(&cmd.arenaLimit, "arena-limit", 0, "limit the number of chunks and parse nodes per translation unit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) > 0 {
		cmd.rulesPath, rest = rest[0], rest[1:]
	} else {
		cmd.rulesPath = getenv("GORTX_RULES")
	}
	if len(rest) > 0 {
		cmd.inputPath, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		cmd.outputPath, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments %q", rest)
	}
	if cmd.rulesPath == "" {
		fs.Usage()
		return nil, errors.New("no rules file given")
	}
	if cmd.serve != "" && (cmd.inputPath != "" || cmd.outputPath != "") {
		return nil, errors.New("-serve takes no input or output file")
	}
	if _, err := chunk.ParseTreeMode(cmd.treeMode); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// traceEvents returns the log trace events selected by flags.
func (cmd *command) traceEvents() (events transfer.TraceSet) {
	if cmd.everything {
		events |= transfer.TraceAll
	}
	if cmd.filterTrace {
		events |= transfer.TraceBranches
	}
	if cmd.ruleTrace {
		events |= transfer.TraceRules | transfer.TraceOutput
	}
	if cmd.steps {
		events |= transfer.TraceSteps
	}
	return events
}

func (cmd *command) options(log *logio.Logger, stderr io.Writer) []transfer.Option {
	opts := []transfer.Option{
		transfer.WithCoref(cmd.coref),
		transfer.WithFilter(cmd.filter),
		transfer.WithLinear(cmd.linear),
		transfer.WithNullFlush(cmd.nullFlush),
	}
	if cmd.trees {
		mode, _ := chunk.ParseTreeMode(cmd.treeMode)
		opts = append(opts, transfer.WithTrees(mode, cmd.both))
	}
	if cmd.arenaLimit > 0 {
		opts = append(opts, transfer.WithArenaLimit(cmd.arenaLimit))
	}

	events := cmd.traceEvents()
	switch {
	case cmd.traceJSON:
		zlog := zerolog.New(stderr).With().Timestamp().Logger()
		opts = append(opts, transfer.WithTracer(transfer.ZerologTracer{
			Log:   zlog,
			Steps: events&transfer.TraceSteps != 0,
		}))
	case events != 0:
		opts = append(opts, transfer.WithTracer(transfer.NewLogTracer(log.Leveledf("TRACE"), events)))
	}
	if cmd.everything {
		opts = append(opts, transfer.WithLogf(log.Leveledf("DEBUG")))
	}
	return opts
}

func (cmd *command) run(ctx context.Context, log *logio.Logger, stdin io.Reader, stdout, stderr io.Writer) (rerr error) {
	rs, err := ruleset.Load(cmd.rulesPath)
	if err != nil {
		return err
	}

	if cmd.serve != "" {
		zlog := zerolog.New(stderr).With().Timestamp().Str("rules", cmd.rulesPath).Logger()
		srv := server.New(rs, zlog, cmd.options(log, stderr)...)
		srv.Timeout = cmd.timeout
		zlog.Info().Str("addr", cmd.serve).Msg("serving")
		return server.ListenAndServe(ctx, cmd.serve, srv, 10*time.Second)
	}

	in, out := stdin, stdout
	if cmd.inputPath != "" && cmd.inputPath != "-" {
		f, err := os.Open(cmd.inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if cmd.outputPath != "" && cmd.outputPath != "-" {
		f, err := os.Create(cmd.outputPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); rerr == nil {
				rerr = cerr
			}
		}()
		out = f
	}

	if cmd.decompile {
		return rs.Decompile(out)
	}

	if cmd.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.timeout)
		defer cancel()
	}
	return transfer.New(rs, cmd.options(log, stderr)...).Process(ctx, in, out)
}
