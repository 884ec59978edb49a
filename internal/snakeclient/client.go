// Package snakeclient performs the outbound HTTP calls to remote snake
// servers: /start, /move, /end. It absorbs every per-snake failure mode
// (timeout, transport error, malformed response) into a total fallback
// function so the turn driver's loop stays branch-free on errors
// (SPEC_FULL.md §4.A, §9).
package snakeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"snake-arena-backend/internal/models"
	"snake-arena-backend/internal/rules"
)

// MoveResult is the outcome of one /move call, successful or not.
type MoveResult struct {
	SnakeID   string
	Direction models.Direction
	LatencyMS *int64
	TimedOut  bool
	Shout     *string
}

// moveResponse is the wire shape of a snake's /move reply.
type moveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

// Client issues requests to remote snake servers over a shared,
// keep-alive connection pool, matching the teacher's pattern of a
// single pooled resource (pgxpool.Pool, redis.Client) reused across
// calls rather than dialing per-request.
type Client struct {
	http *http.Client
	log  *slog.Logger

	perHostRPS float64
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Config tunes the client's connection pool and per-host rate limit.
type Config struct {
	MaxIdleConnsPerHost int
	PerHostRPS          float64 // 0 disables rate limiting
}

// New builds a Client with a shared Transport sized per cfg.
func New(cfg Config, log *slog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxIdleConns:        cfg.MaxIdleConnsPerHost * 8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http:       &http.Client{Transport: transport},
		log:        log,
		perHostRPS: cfg.PerHostRPS,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// resolveFallback is the total function every failure path calls
// through: it never fails, and its output is always a valid direction.
func resolveFallback(last *models.Direction) models.Direction {
	if last != nil {
		return *last
	}
	return models.DirectionUp
}

func withYou(state rules.GameState, you rules.Snake) rules.GameState {
	state.You = you
	return state
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	if c.perHostRPS <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.perHostRPS), int(c.perHostRPS*2)+1)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) waitForHost(ctx context.Context, host string) {
	if l := c.limiterFor(host); l != nil {
		_ = l.Wait(ctx)
	}
}

func (c *Client) post(ctx context.Context, url string, body any, timeout time.Duration) ([]byte, time.Duration, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request body: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.waitForHost(reqCtx, req.URL.Host)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, elapsed, fmt.Errorf("read response body: %w", err)
	}
	return buf.Bytes(), elapsed, nil
}

// Move calls one snake's /move endpoint and resolves any failure
// (timeout, transport error, unparseable JSON) to a fallback direction.
func (c *Client) Move(ctx context.Context, baseURL string, state rules.GameState, snake rules.Snake, timeout time.Duration, lastMove *models.Direction) MoveResult {
	moveURL := buildEndpointURL(baseURL, "move")
	body := withYou(state, snake)

	raw, elapsed, err := c.post(ctx, moveURL, body, timeout)
	if err != nil {
		c.log.Warn("move request failed, using fallback", "snake_id", snake.ID, "error", err)
		return MoveResult{
			SnakeID:   snake.ID,
			Direction: resolveFallback(lastMove),
			TimedOut:  true,
		}
	}

	var resp moveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Warn("move response did not parse, using fallback", "snake_id", snake.ID, "error", err)
		ms := elapsed.Milliseconds()
		return MoveResult{
			SnakeID:   snake.ID,
			Direction: resolveFallback(lastMove),
			LatencyMS: &ms,
			TimedOut:  false,
		}
	}

	direction, ok := models.ParseDirection(resp.Move)
	if !ok {
		direction = resolveFallback(lastMove)
	}

	ms := elapsed.Milliseconds()
	result := MoveResult{
		SnakeID:   snake.ID,
		Direction: direction,
		LatencyMS: &ms,
		TimedOut:  false,
	}
	if resp.Shout != "" {
		shout := resp.Shout
		result.Shout = &shout
	}
	return result
}

// Start fires /start for one snake. Errors are logged and dropped; they
// must never block a match (SPEC_FULL.md §4.A).
func (c *Client) Start(ctx context.Context, baseURL string, state rules.GameState, snake rules.Snake, timeout time.Duration) {
	startURL := buildEndpointURL(baseURL, "start")
	if _, _, err := c.post(ctx, startURL, withYou(state, snake), timeout); err != nil {
		c.log.Warn("start call failed", "snake_id", snake.ID, "error", err)
	}
}

// End fires /end for one snake. Errors are logged and dropped.
func (c *Client) End(ctx context.Context, baseURL string, state rules.GameState, snake rules.Snake, timeout time.Duration) {
	endURL := buildEndpointURL(baseURL, "end")
	if _, _, err := c.post(ctx, endURL, withYou(state, snake), timeout); err != nil {
		c.log.Warn("end call failed", "snake_id", snake.ID, "error", err)
	}
}

// SnakeURL pairs a snake id with its remote base URL.
type SnakeURL struct {
	SnakeID string
	URL     string
}

// MovesParallel calls /move for every alive snake concurrently and
// waits for all of them, each bounded by timeout independently. Total
// wall time is timeout plus a small constant, never the sum of the
// individual calls.
func (c *Client) MovesParallel(ctx context.Context, state rules.GameState, urls []SnakeURL, timeout time.Duration, lastMoves map[string]models.Direction) []MoveResult {
	alive := state.AliveSnakes()
	results := make([]MoveResult, len(alive))

	g, gctx := errgroup.WithContext(ctx)
	for i, snake := range alive {
		i, snake := i, snake
		baseURL, ok := findURL(urls, snake.ID)
		if !ok {
			continue
		}
		g.Go(func() error {
			var last *models.Direction
			if d, ok := lastMoves[snake.ID]; ok {
				last = &d
			}
			results[i] = c.Move(gctx, baseURL, state, snake, timeout, last)
			return nil
		})
	}
	_ = g.Wait() // Move never returns an error; this only waits for completion.

	return results
}

// StartParallel fires /start for every snake on the board concurrently
// and waits for all of them (fire-and-forget per call).
func (c *Client) StartParallel(ctx context.Context, state rules.GameState, urls []SnakeURL, timeout time.Duration) {
	g, gctx := errgroup.WithContext(ctx)
	for _, snake := range state.Board.Snakes {
		snake := snake
		baseURL, ok := findURL(urls, snake.ID)
		if !ok {
			continue
		}
		g.Go(func() error {
			c.Start(gctx, baseURL, state, snake, timeout)
			return nil
		})
	}
	_ = g.Wait()
}

// EndParallel fires /end for every snake on the board concurrently and
// waits for all of them.
func (c *Client) EndParallel(ctx context.Context, state rules.GameState, urls []SnakeURL, timeout time.Duration) {
	g, gctx := errgroup.WithContext(ctx)
	for _, snake := range state.Board.Snakes {
		snake := snake
		baseURL, ok := findURL(urls, snake.ID)
		if !ok {
			continue
		}
		g.Go(func() error {
			c.End(gctx, baseURL, state, snake, timeout)
			return nil
		})
	}
	_ = g.Wait()
}

func findURL(urls []SnakeURL, snakeID string) (string, bool) {
	for _, u := range urls {
		if u.SnakeID == snakeID {
			return u.URL, true
		}
	}
	return "", false
}
