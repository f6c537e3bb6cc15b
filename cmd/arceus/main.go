/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/carverauto/arceus/cmd/arceus/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	configPath := flag.StringP("config", "c", os.Getenv("ARCEUS_CONFIG"), "Path to coordinator config file (JSON or YAML)")
	host := flag.String("host", "", "Override the device listen host")
	port := flag.IntP("port", "p", 0, "Override the device listen port")
	flag.Parse()

	opts := app.Options{ConfigPath: *configPath}

	if flag.CommandLine.Changed("host") {
		opts.ListenHost = host
	}

	if flag.CommandLine.Changed("port") {
		opts.ListenPort = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, opts)
}
