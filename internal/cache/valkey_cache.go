package cache

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// valkeyCache implements Cache using Valkey; all keys share a prefix
type valkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache connects to the Valkey server at valkeyURL and pings it
func NewValkeyCache(ctx context.Context, valkeyURL, prefix string) (Cache, error) {
	addr, password, db, err := parseValkeyURL(valkeyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Valkey URL: %w", err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Password:    password,
		SelectDB:    db,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	c := &valkeyCache{client: client, prefix: prefix}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Health(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return c, nil
}

func (c *valkeyCache) key(key string) string {
	return c.prefix + key
}

func (c *valkeyCache) fail(op, key string, err error) error {
	return &CacheError{Layer: "valkey", Operation: op, Key: key, Err: err}
}

// Get retrieves a value from Valkey
func (c *valkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, c.fail("get", key, err)
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil, c.fail("get", key, err)
	}
	return data, nil
}

// Set stores a value in Valkey with expiration
func (c *valkeyCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	var cmd valkey.Completed
	if expiration > 0 {
		cmd = c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value)).Ex(expiration).Build()
	} else {
		cmd = c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value)).Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return c.fail("set", key, err)
	}
	return nil
}

// Delete removes a key from Valkey
func (c *valkeyCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.key(key)).Build()).Error(); err != nil {
		return c.fail("delete", key, err)
	}
	return nil
}

// Exists checks if a key exists in Valkey
func (c *valkeyCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Do(ctx, c.client.B().Exists().Key(c.key(key)).Build()).AsInt64()
	if err != nil {
		return false, c.fail("exists", key, err)
	}
	return count > 0, nil
}

// TTL returns the time left on a key. PTTL answers -1 for keys without an
// expiry and -2 for missing keys; both map to zero.
func (c *valkeyCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ms, err := c.client.Do(ctx, c.client.B().Pttl().Key(c.key(key)).Build()).AsInt64()
	if err != nil {
		return 0, c.fail("ttl", key, err)
	}
	if ms <= 0 {
		return 0, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Close closes the Valkey connection
func (c *valkeyCache) Close() error {
	c.client.Close()
	return nil
}

// Health pings Valkey
func (c *valkeyCache) Health(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey health check failed: %w", err)
	}
	return nil
}

// parseValkeyURL extracts host:port, password and database number.
// The path may carry the database index, as in valkey://host:6379/2.
func parseValkeyURL(valkeyURL string) (address, password string, db int, err error) {
	u, err := url.Parse(valkeyURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Host == "" {
		return "", "", 0, fmt.Errorf("missing host in URL")
	}
	address = u.Host

	if u.User != nil {
		password, _ = u.User.Password()
	}

	if path := strings.Trim(u.Path, "/"); path != "" {
		db, err = strconv.Atoi(path)
		if err != nil || db < 0 {
			return "", "", 0, fmt.Errorf("invalid database index %q", path)
		}
	}

	return address, password, db, nil
}
