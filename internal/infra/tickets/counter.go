package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ticket"
)

const keyPrefix = "ticket:"

// Connect accepts either a redis:// URL or a plain host:port.
func Connect(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}), nil
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Next(ctx context.Context, service customer.ServiceType) (int, error) {
	n, err := c.client.Incr(ctx, keyPrefix+string(service)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr ticket counter %s: %w", service, err)
	}
	return ticket.Wrap(n), nil
}

func (c *RedisCounter) Current(ctx context.Context, service customer.ServiceType) (int, error) {
	n, err := c.client.Get(ctx, keyPrefix+string(service)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ticket counter %s: %w", service, err)
	}
	return ticket.Wrap(n), nil
}

// Ping backs the readiness check.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// MemoryCounter is used when no Redis address is configured. Numbers reset
// on restart.
type MemoryCounter struct {
	mu       sync.Mutex
	counters map[customer.ServiceType]*atomic.Int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counters: make(map[customer.ServiceType]*atomic.Int64)}
}

func (c *MemoryCounter) counter(service customer.ServiceType) *atomic.Int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counters[service]
	if !ok {
		n = new(atomic.Int64)
		c.counters[service] = n
	}
	return n
}

func (c *MemoryCounter) Next(_ context.Context, service customer.ServiceType) (int, error) {
	return ticket.Wrap(c.counter(service).Add(1)), nil
}

func (c *MemoryCounter) Current(_ context.Context, service customer.ServiceType) (int, error) {
	return ticket.Wrap(c.counter(service).Load()), nil
}
