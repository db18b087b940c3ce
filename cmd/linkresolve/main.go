// Copyright 2024 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// linkresolve resolves the links, images,
// and link reference definitions in Markdown files.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"zombiezen.com/go/linkresolve"
	"zombiezen.com/go/linkresolve/internal/config"
)

// Globals are the flags shared by every subcommand.
type Globals struct {
	Config  string `name:"config" short:"c" help:"Configuration file path" type:"path"`
	Verbose bool   `name:"verbose" short:"v" help:"Enable verbose logging"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Resolve ResolveCmd `cmd:"" help:"Resolve brackets in Markdown files and print the result"`
	Defs    DefsCmd    `cmd:"" help:"List link reference definitions"`
	Watch   WatchCmd   `cmd:"" help:"Resolve files again whenever they change"`
}

// env is the environment that a subcommand runs in.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
	opts   *linkresolve.Options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		slog.Error("linkresolve failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("linkresolve"),
		kong.Description("Resolve Markdown links, images, and link reference definitions"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	opts := new(linkresolve.Options)
	if cli.Config != "" {
		cfg, err := config.Load(cli.Config)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		opts = cfg.Options()
		logger.Debug("Loaded configuration", "config_path", cli.Config, "references", len(opts.Predefined))
	}

	return kctx.Run(&env{
		ctx:    ctx,
		stdin:  stdin,
		stdout: stdout,
		logger: logger,
		opts:   opts,
	})
}
