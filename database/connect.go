package database

import (
	"context"
	"database/sql"
	"fmt"
	nurl "net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PingConfig bounds the retries made while a freshly opened handle is
// verified. Only connection establishment is retried, never a script.
type PingConfig struct {
	MaxRetries       uint
	MaxRetryInterval time.Duration
	MaxElapsedTime   time.Duration
}

// DefaultPingConfig is used when drivers are opened by URL.
var DefaultPingConfig = PingConfig{
	MaxRetries:       3,
	MaxRetryInterval: 5 * time.Second,
	MaxElapsedTime:   30 * time.Second,
}

// ConnectRetriesParam is the URL query parameter overriding the retries of
// DefaultPingConfig for one connection.
const ConnectRetriesParam = "x-connect-retries"

// PingConfigFromQuery returns DefaultPingConfig with the retries given by q
// applied.
func PingConfigFromQuery(q nurl.Values) (PingConfig, error) {
	config := DefaultPingConfig
	if v := q.Get(ConnectRetriesParam); v != "" {
		retries, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return PingConfig{}, fmt.Errorf("%v: %w", ConnectRetriesParam, err)
		}
		config.MaxRetries = uint(retries)
	}
	return config, nil
}

// Ping verifies db is reachable, retrying with exponential backoff.
func Ping(ctx context.Context, db *sql.DB, config PingConfig) error {
	return backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, newBackoff(ctx, config))
}

func newBackoff(ctx context.Context, config PingConfig) backoff.BackOff {
	if ctx == nil {
		ctx = context.Background()
	}

	retrier := backoff.WithMaxRetries(backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         config.MaxRetryInterval,
		MaxElapsedTime:      config.MaxElapsedTime,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx), uint64(config.MaxRetries))

	retrier.Reset()

	return retrier
}
