package chainstate

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/metrics"
)

const safeABIJSON = `[
	{"inputs":[],"name":"nonce","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getOwners","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"}
]`

var safeABI = mustParseABI(safeABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Backend is the subset of ethclient.Client the reader calls.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads chain state over JSON-RPC at the latest block.
type Client struct {
	backend Backend
	chainID string
	timeout time.Duration
	logger  *slog.Logger
}

func Dial(ctx context.Context, rpcURL, chainID string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewClient(ec, chainID, timeout, logger), nil
}

func NewClient(backend Backend, chainID string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend: backend,
		chainID: chainID,
		timeout: timeout,
		logger:  logger.With("component", "chainstate", "chainId", chainID),
	}
}

func (c *Client) observe(method string, start time.Time, err error) {
	metrics.UpstreamCallsTotal.WithLabelValues("rpc", method, metrics.ClassifyError(err)).Inc()
	metrics.UpstreamLatency.WithLabelValues("rpc", method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("rpc call failed", "method", method, "err", err)
	}
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (bal *big.Int, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func(start time.Time) { c.observe("eth_getBalance", start, err) }(time.Now())

	bal, err = c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, apperr.Wrapf(apperr.ErrUpstreamUnavailable, "balance of %s: %v", addr.Hex(), err)
	}
	return bal, nil
}

func (c *Client) Code(ctx context.Context, addr common.Address) (code []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func(start time.Time) { c.observe("eth_getCode", start, err) }(time.Now())

	code, err = c.backend.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, apperr.Wrapf(apperr.ErrUpstreamUnavailable, "code of %s: %v", addr.Hex(), err)
	}
	return code, nil
}

func (c *Client) call(ctx context.Context, safe common.Address, method string) (out []interface{}, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func(start time.Time) { c.observe("eth_call:"+method, start, err) }(time.Now())

	data, err := safeABI.Pack(method)
	if err != nil {
		return nil, err
	}
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &safe, Data: data}, nil)
	if err != nil {
		return nil, apperr.Wrapf(apperr.ErrUpstreamUnavailable, "%s on %s: %v", method, safe.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, apperr.Wrap(apperr.ErrNotFound, ErrSafeNotFound.Error())
	}
	out, err = safeABI.Unpack(method, raw)
	if err != nil {
		return nil, apperr.Wrapf(apperr.ErrUpstreamUnavailable, "decode %s: %v", method, err)
	}
	return out, nil
}

func (c *Client) SafeNonce(ctx context.Context, safe common.Address) (uint64, error) {
	out, err := c.call(ctx, safe, "nonce")
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, apperr.Wrap(apperr.ErrUpstreamUnavailable, "unexpected nonce value")
	}
	return n.Uint64(), nil
}

func (c *Client) SafeOwners(ctx context.Context, safe common.Address) ([]common.Address, error) {
	out, err := c.call(ctx, safe, "getOwners")
	if err != nil {
		return nil, err
	}
	owners, ok := out[0].([]common.Address)
	if !ok {
		return nil, apperr.Wrap(apperr.ErrUpstreamUnavailable, "unexpected owners value")
	}
	return owners, nil
}
