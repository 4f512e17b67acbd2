package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocelery/gocelery"
	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

// ErrAwaitTimeout indicates a task result did not arrive within the await
// deadline. A timed-out await is a failure, never a success.
var ErrAwaitTimeout = errors.New("timed out awaiting task result")

// resultPollInterval is how often a handle checks the result backend while
// awaiting a task outcome
const resultPollInterval = 500 * time.Millisecond

// Handle identifies a submitted task and allows blocking on its result
type Handle interface {
	TaskID() string
	Get(timeout time.Duration) (interface{}, error)
}

// Config holds the broker connection settings for the dispatcher
type Config struct {
	BrokerURL     string
	ResultBackend string
}

// Dispatcher submits named jobs to the external celery worker pool and awaits
// their results. It maintains one shared client, lazily created on first use,
// so concurrent submissions reuse the same broker connection pool.
type Dispatcher struct {
	mu      sync.Mutex
	cfg     Config
	pools   []*redis.Pool
	celery  *gocelery.CeleryClient
	backend gocelery.CeleryBackend
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher; no broker connection is made until the
// first submission
func NewDispatcher(cfg Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		logger: logger,
	}
}

// Submit enqueues a named job with positional arguments. A broker that is
// unreachable surfaces as an error from the dial, bounded by the connect
// timeout; submission never hangs indefinitely.
func (d *Dispatcher) Submit(taskName string, args ...interface{}) (Handle, error) {
	client, backend, err := d.getClient()
	if err != nil {
		return nil, fmt.Errorf("celery client: %w", err)
	}

	result, err := client.Delay(taskName, args...)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", taskName, err)
	}

	d.logger.Debug("Task submitted",
		zap.String("task", taskName),
		zap.String("task_id", result.TaskID))

	return &asyncHandle{taskID: result.TaskID, backend: backend}, nil
}

// Await blocks until the task completes, fails, or the timeout elapses.
// Timeouts are reported as ErrAwaitTimeout so callers can distinguish a slow
// job from a failed one.
func (d *Dispatcher) Await(handle Handle, timeout time.Duration) (interface{}, error) {
	value, err := handle.Get(timeout)
	if err != nil {
		return nil, fmt.Errorf("await task %s: %w", handle.TaskID(), err)
	}
	return value, nil
}

// Reconfigure tears down the current broker connection, best effort, and
// records the new settings; the next submission dials fresh. Teardown errors
// are logged, not fatal, because a new pool is about to replace the old one
// anyway.
func (d *Dispatcher) Reconfigure(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, pool := range d.pools {
		if err := pool.Close(); err != nil {
			d.logger.Error("Error closing broker pool during reconfiguration", zap.Error(err))
		}
	}

	d.pools = nil
	d.celery = nil
	d.backend = nil
	d.cfg = cfg
}

func (d *Dispatcher) getClient() (*gocelery.CeleryClient, gocelery.CeleryBackend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.celery != nil {
		return d.celery, d.backend, nil
	}

	brokerPool := newRedisPool(d.cfg.BrokerURL)
	backendPool := brokerPool
	if d.cfg.ResultBackend != d.cfg.BrokerURL {
		backendPool = newRedisPool(d.cfg.ResultBackend)
	}

	backend := &gocelery.RedisCeleryBackend{Pool: backendPool}
	client, err := gocelery.NewCeleryClient(
		&gocelery.RedisCeleryBroker{Pool: brokerPool, QueueName: "celery"},
		backend,
		1,
	)
	if err != nil {
		brokerPool.Close()
		if backendPool != brokerPool {
			backendPool.Close()
		}
		return nil, nil, err
	}

	d.pools = []*redis.Pool{brokerPool}
	if backendPool != brokerPool {
		d.pools = append(d.pools, backendPool)
	}
	d.celery = client
	d.backend = backend

	return client, backend, nil
}

func newRedisPool(uri string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(uri,
				redis.DialConnectTimeout(5*time.Second),
				redis.DialReadTimeout(10*time.Second),
				redis.DialWriteTimeout(10*time.Second))
		},
	}
}

// asyncHandle polls the result backend for a submitted task's outcome. It
// reads the stored result message itself, rather than going through the
// client's blocking getter, so a FAILURE written by the worker is reported as
// a task failure instead of being polled past until the deadline.
type asyncHandle struct {
	taskID  string
	backend gocelery.CeleryBackend
	poll    time.Duration
}

func (h *asyncHandle) TaskID() string {
	return h.taskID
}

func (h *asyncHandle) Get(timeout time.Duration) (interface{}, error) {
	poll := h.poll
	if poll <= 0 {
		poll = resultPollInterval
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-deadline:
			return nil, fmt.Errorf("%w: no result for task %s within %v", ErrAwaitTimeout, h.taskID, timeout)
		case <-ticker.C:
			message, err := h.backend.GetResult(h.taskID)
			if err != nil || message == nil {
				// Nothing stored yet
				continue
			}
			switch message.Status {
			case "SUCCESS":
				return message.Result, nil
			case "FAILURE", "REVOKED":
				return nil, fmt.Errorf("task %s finished with status %s", h.taskID, message.Status)
			default:
				// PENDING/STARTED/RETRY: the worker is still on it
			}
		}
	}
}
