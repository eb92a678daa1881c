package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

type namedReader interface {
	io.ReadCloser
	Name() string
}

var (
	in  namedReader    = os.Stdin
	out io.WriteCloser = os.Stdout
)

func parseFlags() {
	flag.Parse()

	args := flag.Args()

	if len(args) > 0 {
		name := args[0]
		f, err := os.Open(name)
		if err != nil {
			log.Fatalf("failed to open %v: %v", name, err)
		}
		args = args[1:]
		in = f
	}

	if len(args) > 0 {
		name := args[0]
		f, err := os.Create(name)
		if err != nil {
			log.Fatalf("failed to create %v: %v", name, err)
		}
		args = args[1:]
		out = f
	}
}

func main() {
	ctx := context.Background()
	parseFlags()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})

	eg.Go(func() error {
		gofmt := exec.CommandContext(ctx, "goimports")
		fmtPipe, err := gofmt.StdinPipe()
		if err != nil {
			return err
		}

		defer out.Close()
		gofmt.Stdout = out
		gofmt.Stderr = os.Stderr

		out = fmtPipe

		close(ready)
		if err := gofmt.Run(); err != nil {
			return fmt.Errorf("goimports run failed: %w", err)
		}
		return nil
	})

	eg.Go(func() (rerr error) {
		select {
		case <-ctx.Done():
		case <-ready:
		}

		defer func() {
			if cerr := in.Close(); rerr == nil {
				rerr = cerr
			}
			if cerr := out.Close(); rerr == nil {
				rerr = cerr
			}
		}()

		return run(ctx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

var (
	packageDecl = regexp.MustCompile(`^package (\w+)`)
	opcodeConst = regexp.MustCompile(`^\s+(\w+)\s+Op = '(.+?)'`)
)

func run(ctx context.Context) error {
	var (
		pkg   []byte
		names [][]byte
		seen  = make(map[string]string)
	)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Bytes()
		if match := packageDecl.FindSubmatch(line); len(match) > 0 && pkg == nil {
			pkg = append([]byte(nil), match[1]...)
		} else if match := opcodeConst.FindSubmatch(line); len(match) > 0 {
			name, code := string(match[1]), string(match[2])
			if prior, dup := seen[code]; dup {
				return fmt.Errorf("opcode '%s' used by both %v and %v", code, prior, name)
			}
			seen[code] = name
			names = append(names, append([]byte(nil), match[1]...))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if pkg == nil {
		return fmt.Errorf("no package declaration in %v", in.Name())
	}

	var buf bytes.Buffer
	buf.Grow(64 * len(names))
	buf.WriteString("package ")
	buf.Write(pkg)
	buf.WriteString("\n\n")

	buf.WriteString("// @generated from ")
	buf.WriteString(in.Name())
	buf.WriteString("\n\n")

	if args := flag.Args(); len(args) >= 2 {
		buf.WriteString("//go:generate go run ../../scripts/gen_opnames.go --")
		for _, arg := range args {
			buf.WriteByte(' ')
			buf.WriteString(arg)
		}
		buf.WriteString("\n\n")
	}

	buf.WriteString("var opNames = [256]string{\n")
	for _, name := range names {
		buf.WriteByte('\t')
		buf.Write(name)
		buf.WriteString(": \"")
		buf.Write(bytes.ToUpper(name))
		buf.WriteString("\",\n")
	}
	buf.WriteString("}\n")

	_, err := buf.WriteTo(out)
	return err
}
