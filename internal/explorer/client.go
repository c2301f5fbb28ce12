// Package explorer is an HTTP client for the ledger explorer API. It serves as
// the activity oracle for address discovery and fetches transactions and
// balances.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/txinfo"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Client talks to one explorer backend.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRate limits outgoing requests to perSecond. Zero disables pacing.
func WithRate(perSecond int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = ratelimit.New(perSecond)
		} else {
			c.limiter = ratelimit.NewUnlimited()
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for the explorer at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: ratelimit.NewUnlimited(),
		logger:  log.Explorer,
	}
	c.cb = newCircuitBreaker(c.logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned when the explorer answers with a non-200 status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("explorer error %d: %s", e.StatusCode, e.Message)
}

// AddressesUsed reports, for every address, whether it has ever appeared in a
// transaction.
func (c *Client) AddressesUsed(ctx context.Context, addrs []types.Address) (map[types.Address]bool, error) {
	out := make(map[types.Address]bool, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}

	body := make([]string, len(addrs))
	for i, a := range addrs {
		body[i] = a.String()
	}

	var used []bool
	if err := c.do(ctx, http.MethodPost, "/addresses/used", body, &used); err != nil {
		return nil, err
	}
	if len(used) != len(addrs) {
		return nil, fmt.Errorf("addresses used: got %d answers for %d addresses", len(used), len(addrs))
	}
	for i, a := range addrs {
		out[a] = used[i]
	}
	return out, nil
}

// Transaction fetches a confirmed transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash types.Hash) (*txinfo.Transaction, error) {
	var tx txinfo.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+hash.String(), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// AddressTransactions fetches one page of an address's confirmed
// transactions, newest first. Pages start at 1.
func (c *Client) AddressTransactions(ctx context.Context, addr types.Address, page, limit int) ([]txinfo.Transaction, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/addresses/" + addr.String() + "/transactions?" + q.Encode()

	var txs []txinfo.Transaction
	if err := c.do(ctx, http.MethodGet, path, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Balance is the native balance of an address in atto units.
type Balance struct {
	Balance       *big.Int
	LockedBalance *big.Int
}

// AddressBalance fetches the balance of addr.
func (c *Client) AddressBalance(ctx context.Context, addr types.Address) (*Balance, error) {
	var raw struct {
		Balance       string `json:"balance"`
		LockedBalance string `json:"lockedBalance"`
	}
	if err := c.do(ctx, http.MethodGet, "/addresses/"+addr.String()+"/balance", nil, &raw); err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(raw.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("invalid balance %q", raw.Balance)
	}
	locked := new(big.Int)
	if raw.LockedBalance != "" {
		if _, ok := locked.SetString(raw.LockedBalance, 10); !ok {
			return nil, fmt.Errorf("invalid locked balance %q", raw.LockedBalance)
		}
	}
	return &Balance{Balance: bal, LockedBalance: locked}, nil
}

// do performs one paced, circuit-broken JSON request. A nil in skips the
// request body and a nil out discards the response.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	c.limiter.Take()

	_, err := c.cb.Execute(func() (interface{}, error) {
		var body io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("Explorer request")

		if resp.StatusCode != http.StatusOK {
			msg := strings.TrimSpace(string(data))
			if len(msg) > maxErrorBody {
				msg = msg[:maxErrorBody]
			}
			return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func newCircuitBreaker(logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "explorer",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.7
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn().Msg("explorer seems down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				logger.Info().Msg("checking explorer status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				logger.Info().Msg("explorer seems ok, restart allowing requests")
			}
		},
	})
}
