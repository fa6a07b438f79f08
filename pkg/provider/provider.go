// Package provider talks to an EIP-1193 style wallet provider over JSON-RPC.
//
// The wallet owns keys, signing and chain access. This package only exposes
// the handful of calls and events a connection view needs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// CodeUserRejected is the EIP-1193 error code for a request the user declined.
const CodeUserRejected = 4001

// DefaultDetectTimeout bounds a silent probe.
const DefaultDetectTimeout = 3 * time.Second

// DefaultPollInterval is used when the transport cannot push events.
const DefaultPollInterval = 4 * time.Second

// ErrNotFound is returned by Detect when no provider answers.
var ErrNotFound = errors.New("no wallet provider found")

// Subscription is a registered event listener.
type Subscription = event.Subscription

// Provider is the wallet capability handed to a connection view.
type Provider interface {
	// ClientVersion is the provider's self-reported identity, "" if unknown.
	ClientVersion() string
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]string, error)
	// RequestAccounts asks the user for authorization and may be rejected.
	RequestAccounts(ctx context.Context) ([]string, error)
	// Balance returns the raw hex wei balance of account at the latest block.
	Balance(ctx context.Context, account string) (string, error)
	// ChainID returns the raw hex chain identifier.
	ChainID(ctx context.Context) (string, error)
	// SubscribeAccounts delivers every new authorized account set.
	SubscribeAccounts(ctx context.Context, ch chan<- []string) (Subscription, error)
	// SubscribeChain delivers every new hex chain identifier.
	SubscribeChain(ctx context.Context, ch chan<- string) (Subscription, error)
	Close()
}

// Detector finds a provider without triggering any permission prompt.
type Detector interface {
	Detect(ctx context.Context) (Provider, error)
}

// Endpoint detects a provider listening at a JSON-RPC URL (ws, http or IPC path).
type Endpoint struct {
	URL          string
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Detect dials the endpoint and confirms a provider answers a non-prompting
// call. Any failure is reported as ErrNotFound.
func (e Endpoint) Detect(ctx context.Context) (Provider, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultDetectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, e.URL)
	if err != nil {
		e.Logger.Debug().Str("url", e.URL).Err(err).Msg("provider dial failed")
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	version, err := probe(ctx, client)
	if err != nil {
		client.Close()
		e.Logger.Debug().Str("url", e.URL).Err(err).Msg("provider did not answer")
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	e.Logger.Info().Str("url", e.URL).Str("client", version).Msg("provider detected")
	return New(client, version, e.PollInterval, e.Logger), nil
}

func probe(ctx context.Context, client *rpc.Client) (string, error) {
	var version string
	if err := client.CallContext(ctx, &version, "web3_clientVersion"); err == nil {
		return version, nil
	}
	var chainID string
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return "", err
	}
	return "", nil
}

// Identifies reports whether a provider with clientVersion is the expected
// wallet. An empty expectation accepts any provider.
func Identifies(clientVersion, expected string) bool {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return true
	}
	return strings.Contains(strings.ToLower(clientVersion), strings.ToLower(expected))
}

// ErrorMessage returns the provider-supplied message carried by err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Error()
	}
	return err.Error()
}

// IsUserRejection reports whether err is the user declining a request.
func IsUserRejection(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == CodeUserRejected
}

// RPCProvider implements Provider on a go-ethereum rpc.Client.
type RPCProvider struct {
	client       *rpc.Client
	version      string
	pollInterval time.Duration
	logger       zerolog.Logger
}

// New wraps an already-dialed client.
func New(client *rpc.Client, clientVersion string, pollInterval time.Duration, logger zerolog.Logger) *RPCProvider {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RPCProvider{
		client:       client,
		version:      clientVersion,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (p *RPCProvider) ClientVersion() string {
	return p.version
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	return accounts, nil
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, fmt.Errorf("eth_requestAccounts: %w", err)
	}
	return accounts, nil
}

func (p *RPCProvider) Balance(ctx context.Context, account string) (string, error) {
	if !common.IsHexAddress(account) {
		return "", fmt.Errorf("eth_getBalance: invalid address %q", account)
	}
	var balance string
	if err := p.client.CallContext(ctx, &balance, "eth_getBalance", account, "latest"); err != nil {
		return "", fmt.Errorf("eth_getBalance: %w", err)
	}
	return balance, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (string, error) {
	var chainID string
	if err := p.client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return "", fmt.Errorf("eth_chainId: %w", err)
	}
	return chainID, nil
}

// SubscribeAccounts listens for accountsChanged. Transports without
// notifications fall back to polling eth_accounts.
func (p *RPCProvider) SubscribeAccounts(ctx context.Context, ch chan<- []string) (Subscription, error) {
	sub, err := p.client.Subscribe(ctx, "eth", ch, "accountsChanged")
	if err == nil {
		return sub, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.logger.Debug().Err(err).Dur("interval", p.pollInterval).Msg("accountsChanged not pushed, polling eth_accounts")
	baseline, berr := p.Accounts(ctx)
	return pollSubscription(p.pollInterval, p.Accounts, slices.Equal[[]string], ch, baseline, berr == nil), nil
}

// SubscribeChain listens for chainChanged. Transports without notifications
// fall back to polling eth_chainId.
func (p *RPCProvider) SubscribeChain(ctx context.Context, ch chan<- string) (Subscription, error) {
	sub, err := p.client.Subscribe(ctx, "eth", ch, "chainChanged")
	if err == nil {
		return sub, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.logger.Debug().Err(err).Dur("interval", p.pollInterval).Msg("chainChanged not pushed, polling eth_chainId")
	baseline, berr := p.ChainID(ctx)
	eq := func(a, b string) bool { return strings.EqualFold(a, b) }
	return pollSubscription(p.pollInterval, p.ChainID, eq, ch, baseline, berr == nil), nil
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

// pollSubscription re-reads a value every interval and delivers it on ch
// whenever it differs from the last value seen. Read errors are skipped.
func pollSubscription[T any](interval time.Duration, read func(context.Context) (T, error), equal func(a, b T) bool, ch chan<- T, last T, primed bool) Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				v, err := read(ctx)
				if err != nil {
					continue
				}
				if primed && equal(last, v) {
					continue
				}
				wasPrimed := primed
				last, primed = v, true
				if !wasPrimed {
					continue
				}
				select {
				case ch <- v:
				case <-quit:
					return nil
				}
			case <-quit:
				return nil
			}
		}
	})
}
