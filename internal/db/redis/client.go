// Package redis implements db.Store on Redis 8 search through rueidis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/esgate/internal/db"
)

var _ db.Store = (*Store)(nil)

// readyPollInterval spaces PINGs while waiting for the server.
const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is a read-mostly search client: FT index lifecycle plus queries.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the given addresses. Client-side caching is off since
// every call is an FT command.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // reply parsers expect RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newStore(client), nil
}

func newStore(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connections.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately and then every readyPollInterval until the
// server answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// command sends one FT command: name followed by args.
func (s *Store) command(ctx context.Context, name string, args ...string) rueidis.RedisResult {
	return s.client.Do(ctx, s.client.B().Arbitrary(name).Args(args...).Build())
}

// exec sends a command whose reply carries no data.
func (s *Store) exec(ctx context.Context, name string, args ...string) error {
	return s.command(ctx, name, args...).Error()
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &db.Error{Op: op, Err: err}
}

// isRedisErr reports whether err is a server reply containing substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

// isUnknownIndex matches the "index not found" replies across search module versions.
func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") ||
		isRedisErr(err, "not found")
}
