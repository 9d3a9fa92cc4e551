package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/simpl2021/simplc/compiler"
)

const assemblerJarEnv = "SIMPLC_ASSEMBLER_JAR"

var (
	outFileName string
	disasmOnly  bool
	debug       bool
	timeout     time.Duration
)

func atExit(err error) {
	if err == nil {
		return
	}
	if debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	flag.StringVar(&outFileName, "o", "", "`filename` to use for the assembly listing (default: source name with .j)")
	flag.BoolVar(&disasmOnly, "S", false, "print the instruction listing and exit, without invoking the assembler")
	flag.BoolVar(&debug, "debug", false, "print a full error stack on failure")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "time limit for the external assembler invocation")
	flag.Parse()

	jar := os.Getenv(assemblerJarEnv)
	if jar == "" {
		err = errors.Errorf("%s must name the assembler jar", assemblerJarEnv)
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		err = errors.New("usage: simplc [flags] source.spl")
		return
	}
	srcPath := args[0]

	src, openErr := os.Open(srcPath)
	if openErr != nil {
		err = errors.Wrap(openErr, "cannot open source file")
		return
	}
	defer src.Close()

	name := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	if disasmOnly {
		var listing string
		listing, err = compiler.Disassemble(name, src)
		if err != nil {
			return
		}
		fmt.Print(listing)
		return
	}

	if outFileName == "" {
		outFileName = name + ".j"
	}
	out, createErr := os.Create(outFileName)
	if createErr != nil {
		err = errors.Wrap(createErr, "cannot create listing file")
		return
	}
	if err = compiler.Compile(name, src, out); err != nil {
		out.Close()
		return
	}
	if err = out.Close(); err != nil {
		err = errors.Wrap(err, "cannot finish writing listing file")
		return
	}

	err = runAssembler(jar, outFileName, timeout)
}

// runAssembler invokes the external assembler on the just-written listing,
// draining its stdout and stderr concurrently so a talkative assembler
// can never deadlock on a full pipe while simplc waits on Wait.
func runAssembler(jar, listingPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "java", "-jar", jar, listingPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "opening assembler stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "opening assembler stderr")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "starting assembler")
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		_, err := io.Copy(os.Stdout, stdout)
		return err
	})
	eg.Go(func() error {
		_, err := io.Copy(os.Stderr, stderr)
		return err
	})

	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "draining assembler output")
	}
	if err := cmd.Wait(); err != nil {
		return errors.Wrap(err, "assembler run failed")
	}
	return nil
}
