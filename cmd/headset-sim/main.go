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

// headset-sim connects to a coordinator as a fake headset: it registers,
// sends heartbeats and battery reports, and answers every command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	addr := flag.StringP("addr", "a", "127.0.0.1:8888", "Coordinator device address")
	model := flag.String("model", "Quest 3", "Reported device model")
	serial := flag.StringP("serial", "s", "SIM-0001", "Reported device serial")
	heartbeat := flag.Duration("heartbeat", 5*time.Second, "Heartbeat interval")
	battery := flag.Uint8("battery", 100, "Starting battery level")
	charging := flag.Bool("charging", false, "Report the battery as charging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("serial", *serial).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &headset{
		model:     *model,
		serial:    *serial,
		heartbeat: *heartbeat,
		logger:    log,
		battery:   min(*battery, 100),
		charging:  *charging,
	}

	if err := h.run(ctx, *addr); err != nil {
		log.Fatal().Err(err).Msg("Simulator stopped")
	}
}
