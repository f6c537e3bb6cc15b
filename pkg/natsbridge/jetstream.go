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

package natsbridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
)

// JetStreamPublisher publishes events to a JetStream stream.
type JetStreamPublisher struct {
	js     jetstream.JetStream
	stream string
	logger logger.Logger
}

// NewJetStreamPublisher wraps an existing JetStream context.
func NewJetStreamPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *JetStreamPublisher {
	return &JetStreamPublisher{
		js:     js,
		stream: streamName,
		logger: log,
	}
}

// Publish implements Publisher and waits for the stream's ack.
func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Trace().Str("subject", subject).Uint64("seq", ack.Sequence).Msg("Published event")

	return nil
}

// Connect dials NATS with connection-state logging, opens JetStream (in
// cfg.Domain when set) and makes sure the events stream exists.
func Connect(
	ctx context.Context, cfg models.NATSConfig, ev models.EventsConfig, log logger.Logger, extraOpts ...nats.Option,
) (*JetStreamPublisher, *nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("arceus"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS != nil {
		tlsConfig, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, nats.Secure(tlsConfig))
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	pub, err := NewPublisherWithDomain(ctx, nc, cfg.Domain, ev.StreamName, []string{ev.SubjectPrefix + ".>"}, log)
	if err != nil {
		nc.Close()

		return nil, nil, err
	}

	return pub, nc, nil
}

// NewPublisherWithDomain opens JetStream on nc and creates streamName with
// subjects if it does not exist yet.
func NewPublisherWithDomain(
	ctx context.Context, nc *nats.Conn, domain, streamName string, subjects []string, log logger.Logger,
) (*JetStreamPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}
	} else {
		js, err = jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
	}

	_, err = js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return nil, fmt.Errorf("failed to look up stream %s: %w", streamName, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Strs("subjects", subjects).Msg("Created JetStream stream")
	}

	return NewJetStreamPublisher(js, streamName, log), nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoResponders)
}
