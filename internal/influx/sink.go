package influx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/SteelMorgan/admin-gluster/internal/config"
	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/SteelMorgan/admin-gluster/internal/measurement"
	"github.com/SteelMorgan/admin-gluster/internal/retry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const writePath = "/write"

// Options tune delivery behaviour
type Options struct {
	Timeout        time.Duration // Per-request timeout
	Retry          retry.Config
	AlertThreshold int // Consecutive failures before logging at error level
}

// StatusError is a non-2xx response from the backend
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("line protocol write returned %q", e.Status)
	}
	return fmt.Sprintf("line protocol write returned %q %q", e.Status, e.Body)
}

// Retryable reports whether the backend may accept the same write later
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Sink writes measurements to the InfluxDB v1 write endpoint
type Sink struct {
	cfg            config.SinkConfig
	client         *resty.Client
	retryCfg       retry.Config
	alertThreshold int64

	failures atomic.Int64
}

// NewSink creates a sink for the given backend
func NewSink(cfg config.SinkConfig, opts Options) *Sink {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "text/plain; charset=utf-8")

	if cfg.Username != "" || cfg.Password != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	if cfg.Precision == "" {
		cfg.Precision = config.WritePrecision
	}

	threshold := opts.AlertThreshold
	if threshold < 1 {
		threshold = 1
	}

	return &Sink{
		cfg:            cfg,
		client:         client,
		retryCfg:       opts.Retry,
		alertThreshold: int64(threshold),
	}
}

// Write encodes and sends one measurement, retrying transient failures.
// Every returned error wraps domain.ErrDeliveryFailure.
func (s *Sink) Write(ctx context.Context, m domain.Measurement) error {
	body, err := Encode(m)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)
	}

	err = retry.Do(ctx, s.attemptPolicy(), func() error {
		return s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err)
	}

	return nil
}

// attemptPolicy drops to a single attempt while the backend is considered down,
// i.e. the consecutive failure count has reached the alert threshold. The first
// success restores the configured retries.
func (s *Sink) attemptPolicy() retry.Config {
	cfg := s.retryCfg
	if s.failures.Load() >= s.alertThreshold {
		cfg.MaxAttempts = 1
	}
	return cfg
}

func (s *Sink) post(ctx context.Context, body []byte) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"db":        s.cfg.Database,
			"precision": s.cfg.Precision,
		}).
		SetBody(body).
		Post(writePath)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return &StatusError{
			Code:   resp.StatusCode(),
			Status: resp.Status(),
			Body:   strings.TrimSpace(resp.String()),
		}
	}

	return nil
}

// Emit writes a measurement and logs any failure instead of returning it.
// Failures are counted; once the consecutive count reaches the alert
// threshold every further failure is logged at error level and writes are
// no longer retried until one succeeds. It reports whether the write succeeded.
func (s *Sink) Emit(ctx context.Context, m domain.Measurement) bool {
	if err := s.Write(ctx, m); err != nil {
		failures := s.failures.Add(1)

		event := log.Warn()
		if failures >= s.alertThreshold {
			event = log.Error().Bool("persistent", true).Bool("retries_suspended", true)
		}
		event.
			Err(err).
			Int64("consecutive_failures", failures).
			Str("volume", m.TagValue(measurement.TagVolumeName)).
			Str("brick", m.TagValue(measurement.TagBrickName)).
			Msg("Failed to write measurement")
		return false
	}

	if previous := s.failures.Swap(0); previous > 0 {
		log.Info().
			Int64("previous_failures", previous).
			Msg("Metrics delivery recovered")
	}
	return true
}

// ConsecutiveFailures returns the number of failed writes since the last success
func (s *Sink) ConsecutiveFailures() int64 {
	return s.failures.Load()
}

// LogSink encodes measurements and logs them without sending (read-only mode)
type LogSink struct{}

// Emit logs the encoded measurement. It reports false if the measurement cannot be encoded.
func (LogSink) Emit(_ context.Context, m domain.Measurement) bool {
	line, err := Encode(m)
	if err != nil {
		log.Warn().Err(err).Str("measurement", m.Name).Msg("Failed to encode measurement")
		return false
	}

	log.Info().
		Str("line", strings.TrimSuffix(string(line), "\n")).
		Msg("Read-only mode: measurement not sent")
	return true
}
