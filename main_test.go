package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gortx/internal/logio"
	"github.com/jcorbin/gortx/internal/ruleset"
)

func writeRules(t *testing.T) string {
	b := ruleset.NewBuilder()
	b.Rule("adj-n", 0, `CHUNK STRING "NP<np>" APPENDSURFACE
		INT 2 PUSHINPUT APPENDCHILD INT 1 BLANK APPENDCHILD INT 1 PUSHINPUT APPENDCHILD
		OUTPUT`, "adj", "n")
	rs := b.MustBuild()

	path := filepath.Join(t.TempDir(), "rules.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = rs.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func Test_parseCommand(t *testing.T) {
	for _, tc := range []struct {
		name   string
		args   []string
		env    map[string]string
		expect func(t *testing.T, cmd *command)
		err    string
	}{
		{
			name: "defaults",
			args: []string{"rules.bin"},
			expect: func(t *testing.T, cmd *command) {
				assert.Equal(t, "rules.bin", cmd.rulesPath)
				assert.Equal(t, "", cmd.inputPath)
				assert.True(t, cmd.filter)
				assert.Equal(t, "flat", cmd.treeMode)
				assert.Equal(t, "", cmd.serve)
			},
		},
		{
			name: "files and flags",
			args: []string{"-a", "-t", "-z", "-T", "-b", "-m", "box", "-timeout", "2s", "-F=false",
				"rules.bin", "in.txt", "out.txt"},
			expect: func(t *testing.T, cmd *command) {
				assert.Equal(t, "in.txt", cmd.inputPath)
				assert.Equal(t, "out.txt", cmd.outputPath)
				assert.True(t, cmd.coref && cmd.linear && cmd.nullFlush && cmd.trees && cmd.both)
				assert.False(t, cmd.filter)
				assert.Equal(t, "box", cmd.treeMode)
				assert.Equal(t, 2*time.Second, cmd.timeout)
			},
		},
		{
			name: "rules from env",
			env:  map[string]string{"GORTX_RULES": "env.bin", "GORTX_SERVE": ":8080"},
			expect: func(t *testing.T, cmd *command) {
				assert.Equal(t, "env.bin", cmd.rulesPath)
				assert.Equal(t, ":8080", cmd.serve)
			},
		},
		{
			name: "serve flag wins over env",
			args: []string{"-serve", ":9090", "rules.bin"},
			env:  map[string]string{"GORTX_SERVE": ":8080"},
			expect: func(t *testing.T, cmd *command) {
				assert.Equal(t, ":9090", cmd.serve)
			},
		},
		{name: "no rules", err: "no rules file given"},
		{name: "extra args", args: []string{"a", "b", "c", "d"}, err: `unexpected arguments ["d"]`},
		{name: "bad mode", args: []string{"-m", "bush", "rules.bin"}, err: "not a recognized tree mode"},
		{name: "serve with files", args: []string{"-serve", ":0", "rules.bin", "in.txt"}, err: "-serve takes no input"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var stderr bytes.Buffer
			cmd, err := parseCommand("gortx", tc.args, env(tc.env), &stderr)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			tc.expect(t, cmd)
		})
	}
}

func Test_parseCommand_help(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseCommand("gortx", []string{"-h"}, env(nil), &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "Usage: gortx [flags] rules_file")
	assert.Contains(t, stderr.String(), "-trace-json")
}

type bufCloser struct{ bytes.Buffer }

func (*bufCloser) Close() error { return nil }

type cmdTest struct {
	name  string
	args  []string
	input string

	stdout    string
	stdoutHas string
	expect    func(t *testing.T, logged, stderr string)
}

func (ct cmdTest) run(t *testing.T, rulesPath string) {
	cmd, err := parseCommand("gortx", append(ct.args, rulesPath), env(nil), io.Discard)
	require.NoError(t, err)

	var log logio.Logger
	var logOut bufCloser
	log.SetOutput(&logOut)
	var stdout, stderr bytes.Buffer
	err = cmd.run(context.Background(), &log, strings.NewReader(ct.input), &stdout, &stderr)
	t.Logf("log:\n%s", logOut.String())
	require.NoError(t, err)

	if ct.stdout != "" {
		assert.Equal(t, ct.stdout, stdout.String())
	}
	if ct.stdoutHas != "" {
		assert.Contains(t, stdout.String(), ct.stdoutHas)
	}
	if ct.expect != nil {
		ct.expect(t, logOut.String(), stderr.String())
	}
}

func Test_command_run(t *testing.T) {
	rulesPath := writeRules(t)
	input := "^red<adj>/rojo<adj>$ ^car<n>/coche<n>$\n"
	for _, ct := range []cmdTest{
		{
			name:   "translate",
			input:  input,
			stdout: "^coche<n>$ ^rojo<adj>$\n",
		},
		{
			name:   "linear",
			args:   []string{"-t"},
			input:  input,
			stdout: "^coche<n>$ ^rojo<adj>$\n",
		},
		{
			name:   "trees",
			args:   []string{"-T"},
			input:  input,
			stdout: "^NP<np>{^car<n>/coche<n>$ ^red<adj>/rojo<adj>$}$\n",
		},
		{
			name:      "decompile",
			args:      []string{"-decompile"},
			stdoutHas: "Rule 0 adj-n",
		},
		{
			name:   "rule trace",
			args:   []string{"-r"},
			input:  input,
			stdout: "^coche<n>$ ^rojo<adj>$\n",
			expect: func(t *testing.T, logged, stderr string) {
				assert.Contains(t, logged, "TRACE: + branch 1 adj-n => ")
				assert.NotContains(t, logged, "TRACE: > read")
			},
		},
		{
			name:  "everything",
			args:  []string{"-e"},
			input: input,
			expect: func(t *testing.T, logged, stderr string) {
				assert.Contains(t, logged, "TRACE: > read")
				assert.Contains(t, logged, "TRACE: . adj-n @")
				assert.Contains(t, logged, "DEBUG: # unit 1 done")
			},
		},
		{
			name:  "json trace",
			args:  []string{"-trace-json"},
			input: input,
			expect: func(t *testing.T, logged, stderr string) {
				assert.Contains(t, stderr, `"event":"commit"`)
				assert.Empty(t, logged)
			},
		},
	} {
		t.Run(ct.name, func(t *testing.T) { ct.run(t, rulesPath) })
	}
}

func Test_command_run_files(t *testing.T) {
	rulesPath := writeRules(t)
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.txt")
	outPath := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("^red<adj>/rojo<adj>$ ^car<n>/coche<n>$"), 0o644))

	cmd, err := parseCommand("gortx", []string{rulesPath, inPath, outPath}, env(nil), io.Discard)
	require.NoError(t, err)
	var log logio.Logger
	require.NoError(t, cmd.run(context.Background(), &log, nil, nil, io.Discard))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "^coche<n>$ ^rojo<adj>$", string(out))
}

func Test_command_run_missingRules(t *testing.T) {
	cmd, err := parseCommand("gortx", []string{filepath.Join(t.TempDir(), "nope.bin")}, env(nil), io.Discard)
	require.NoError(t, err)
	var log logio.Logger
	err = cmd.run(context.Background(), &log, strings.NewReader(""), io.Discard, io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
