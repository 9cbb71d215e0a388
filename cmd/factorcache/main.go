/*
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command factorcache demonstrates LRU memoization on prime
// factorisation.
//
// Usage:
//
//	factorcache [-env-file path] bench [flags]
//	factorcache [-env-file path] serve [flags]
//
// bench times a run of random requests through the plain factoriser, the
// single-threaded cache and the sharded concurrent cache. serve answers
// requests over gRPC and HTTP from one sharded cache until interrupted.
//
// Settings are read from FACTORCACHE_* environment variables, a .env file
// and the subcommand's flags, later sources winning.
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
)

var errUsage = errors.New("usage: factorcache [-env-file path] bench|serve [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "factorcache:", err)
		}
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	top := flag.NewFlagSet("factorcache", flag.ContinueOnError)
	top.SetOutput(stderr)
	envFile := top.String("env-file", "", "dotenv file to read (default .env, if present)")
	if err := top.Parse(args); err != nil {
		return err
	}
	if top.NArg() == 0 {
		return errUsage
	}

	environ, err := readEnvironment(*envFile)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(environ)
	if err != nil {
		return err
	}

	cmd, cmdArgs := top.Arg(0), top.Args()[1:]
	var runCmd func(context.Context, Config, io.Writer) error
	switch cmd {
	case "bench":
		runCmd = bench
	case "serve":
		runCmd = serve
	default:
		return fmt.Errorf("unknown command %q; %w", cmd, errUsage)
	}

	flags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flags.SetOutput(stderr)
	cfg.bindFlags(flags)
	if err := flags.Parse(cmdArgs); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments %q; %w", flags.Args(), errUsage)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	return runCmd(ctx, cfg, stderr)
}
