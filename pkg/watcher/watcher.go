package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"walletview/pkg/metrics"
	"walletview/pkg/models"
	"walletview/pkg/provider"
	"walletview/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoProvider is returned by actions that need a detected provider.
	ErrNoProvider = errors.New("no wallet provider detected")
	// ErrConnectUnavailable is returned when the connect action is not offered.
	ErrConnectUnavailable = errors.New("connect is not available")
	// ErrStopped is returned once the watcher has been torn down.
	ErrStopped = errors.New("watcher stopped")
)

const defaultConnectError = "account request failed"

// Options configures a Watcher.
type Options struct {
	ExpectedWallet  string
	BalanceDecimals int
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

// Watcher owns the state of one connection view: it probes for a provider,
// keeps the wallet state in sync with provider events and runs the connect
// action. Every change is broadcast to subscribers as an Event.
type Watcher struct {
	detector provider.Detector
	opts     Options
	logger   zerolog.Logger

	mu         sync.RWMutex
	state      models.ViewState
	provider   provider.Provider
	refreshSeq uint64
	chainSeq   uint64
	lastChain  string
	subs       []provider.Subscription
	started    bool
	stopped    bool

	// pendingConnect keeps IsConnecting set until the refresh after an
	// approved connect commits or fails
	pendingConnect bool

	subMu       sync.Mutex
	subscribers []Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher that will use detector to find its provider.
func NewWatcher(detector provider.Detector, opts Options) *Watcher {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		detector: detector,
		opts:     opts,
		logger:   opts.Logger.With().Str("session", id).Logger(),
		state:    models.ViewState{SessionID: id},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// notify must be called with w.mu held so subscribers see snapshots in order.
func (w *Watcher) notify(t EventType) {
	event := Event{Type: t, State: w.state.Clone()}
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			w.logger.Warn().Str("event", string(t)).Msg("subscriber is slow, dropping event")
		}
	}
}

// Snapshot returns a copy of the current view state.
func (w *Watcher) Snapshot() models.ViewState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Clone()
}

// CanConnect reports whether the connect action is currently offered.
func (w *Watcher) CanConnect() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.CanConnect()
}

// Start probes for a provider, reads the already-authorized accounts and
// registers the accountsChanged and chainChanged listeners. A missing
// provider is a normal outcome and is not reported as an error. The watcher
// stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.started = true
	w.mu.Unlock()
	context.AfterFunc(ctx, w.Stop)

	p, err := w.detector.Detect(w.ctx)

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		if p != nil {
			p.Close()
		}
		return ErrStopped
	}
	found := err == nil && p != nil
	w.state.HasProvider = &found
	if !found {
		w.logger.Info().Err(err).Msg("injected provider does not exist")
		w.notify(EventProviderDetected)
		w.mu.Unlock()
		return nil
	}
	w.provider = p
	w.state.ClientVersion = p.ClientVersion()
	w.state.WalletIdentified = provider.Identifies(p.ClientVersion(), w.opts.ExpectedWallet)
	w.logger.Info().
		Str("client", p.ClientVersion()).
		Bool("identified", w.state.WalletIdentified).
		Msg("injected provider exists")
	w.notify(EventProviderDetected)
	w.mu.Unlock()

	accounts, err := p.Accounts(w.ctx)
	if err != nil {
		if w.ctx.Err() != nil {
			return ErrStopped
		}
		w.logger.Warn().Err(err).Msg("failed to read authorized accounts")
	} else {
		w.applyAccounts(accounts, EventAccountsChanged)
	}

	accCh := make(chan []string, 16)
	accSub, err := p.SubscribeAccounts(w.ctx, accCh)
	if err != nil {
		return fmt.Errorf("subscribe accountsChanged: %w", err)
	}
	chainCh := make(chan string, 16)
	chainSub, err := p.SubscribeChain(w.ctx, chainCh)
	if err != nil {
		accSub.Unsubscribe()
		return fmt.Errorf("subscribe chainChanged: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		accSub.Unsubscribe()
		chainSub.Unsubscribe()
		return ErrStopped
	}
	w.subs = append(w.subs, accSub, chainSub)
	w.wg.Add(1)
	go w.eventLoop(accCh, chainCh, accSub, chainSub)
	return nil
}

// Stop deregisters the provider listeners, cancels in-flight provider calls
// and waits for pending work. Results that arrive afterwards are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.cancel()
	subs := w.subs
	w.subs = nil
	p := w.provider
	w.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	w.wg.Wait()
	if p != nil {
		p.Close()
	}
	w.logger.Debug().Msg("watcher stopped")
}

func (w *Watcher) eventLoop(accCh <-chan []string, chainCh <-chan string, accSub, chainSub provider.Subscription) {
	defer w.wg.Done()
	accErr, chainErr := accSub.Err(), chainSub.Err()
	for {
		select {
		case accounts := <-accCh:
			w.logger.Debug().Strs("accounts", accounts).Msg("accountsChanged")
			w.applyAccounts(accounts, EventAccountsChanged)
		case chainID := <-chainCh:
			w.logger.Debug().Str("chain_id", chainID).Msg("chainChanged")
			w.applyChain(chainID)
		case err := <-accErr:
			if err != nil {
				w.logger.Warn().Err(err).Msg("accountsChanged subscription ended")
			}
			accErr = nil
		case err := <-chainErr:
			if err != nil {
				w.logger.Warn().Err(err).Msg("chainChanged subscription ended")
			}
			chainErr = nil
		case <-w.ctx.Done():
			return
		}
	}
}

// applyAccounts replaces the wallet state for a new account set. An empty
// set resets to defaults at once; otherwise balance and chain are re-read
// and only the newest refresh is committed.
func (w *Watcher) applyAccounts(accounts []string, t EventType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applyAccountsLocked(accounts, t)
}

func (w *Watcher) applyAccountsLocked(accounts []string, t EventType) {
	if w.ctx.Err() != nil {
		return
	}
	w.refreshSeq++
	if len(accounts) == 0 {
		w.state.Wallet = models.WalletState{}
		w.finishConnect()
		w.notify(t)
		return
	}

	p := w.provider
	token, chainSeq := w.refreshSeq, w.chainSeq
	accounts = append([]string(nil), accounts...)
	w.wg.Add(1)
	go w.refresh(p, token, chainSeq, accounts)
}

func (w *Watcher) refresh(p provider.Provider, token, chainSeq uint64, accounts []string) {
	defer w.wg.Done()

	var balance, chainID string
	g, ctx := errgroup.WithContext(w.ctx)
	g.Go(func() error {
		var err error
		balance, err = p.Balance(ctx, accounts[0])
		return err
	})
	g.Go(func() error {
		var err error
		chainID, err = p.ChainID(ctx)
		return err
	})
	err := g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	if err != nil {
		w.logger.Warn().Err(err).Str("account", accounts[0]).Msg("wallet refresh failed")
		if token == w.refreshSeq && w.pendingConnect {
			w.finishConnect()
			w.notify(EventAccountsChanged)
		}
		return
	}
	if token != w.refreshSeq {
		w.opts.Metrics.RecordStaleRefresh()
		w.logger.Debug().Uint64("token", token).Uint64("latest", w.refreshSeq).Msg("discarding stale wallet refresh")
		return
	}
	if chainSeq != w.chainSeq {
		// a chainChanged arrived while this refresh was in flight
		chainID = w.lastChain
	}
	w.state.Wallet = models.WalletState{
		Accounts: accounts,
		Balance:  utils.FormatBalance(balance, w.opts.BalanceDecimals),
		ChainID:  chainID,
	}
	w.finishConnect()
	w.notify(EventWalletRefreshed)
}

// finishConnect clears a connect that was waiting for its wallet refresh.
func (w *Watcher) finishConnect() {
	if w.pendingConnect {
		w.pendingConnect = false
		w.state.IsConnecting = false
	}
}

// applyChain updates only the chain of a connected wallet.
func (w *Watcher) applyChain(chainID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return
	}
	w.chainSeq++
	w.lastChain = chainID
	if !w.state.Wallet.Connected() {
		return
	}
	w.state.Wallet.ChainID = chainID
	w.notify(EventChainChanged)
}

// Connect asks the provider for account authorization. It is only offered
// when a provider of the expected wallet type is present, no account is
// connected and no request is in flight. A rejection is recorded in the
// view state and also returned. After approval the view stays connecting
// until the wallet refresh for the approved accounts commits or fails.
func (w *Watcher) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return ErrStopped
	}
	if !w.state.ProviderFound() {
		w.mu.Unlock()
		return ErrNoProvider
	}
	if !w.state.CanConnect() {
		w.mu.Unlock()
		return ErrConnectUnavailable
	}
	w.state.IsConnecting = true
	p := w.provider
	w.notify(EventConnectStarted)
	w.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	accounts, err := p.RequestAccounts(callCtx)

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return ErrStopped
	}
	if err != nil {
		w.state.IsConnecting = false
		msg := provider.ErrorMessage(err)
		if msg == "" {
			msg = defaultConnectError
		}
		w.state.Error = true
		w.state.ErrorMessage = msg
		w.notify(EventConnectFailed)
		w.mu.Unlock()

		outcome := "error"
		if provider.IsUserRejection(err) {
			outcome = "rejected"
		}
		w.opts.Metrics.RecordConnect(outcome)
		w.logger.Info().Err(err).Str("outcome", outcome).Msg("account request failed")
		return err
	}
	w.state.Error = false
	w.state.ErrorMessage = ""
	w.pendingConnect = true
	w.applyAccountsLocked(accounts, EventAccountsChanged)
	if len(accounts) > 0 {
		w.notify(EventAccountsChanged)
	}
	w.mu.Unlock()

	w.opts.Metrics.RecordConnect("ok")
	w.logger.Info().Int("accounts", len(accounts)).Msg("account request approved")
	return nil
}

// Resync re-reads the authorized accounts without prompting.
func (w *Watcher) Resync() error {
	w.mu.RLock()
	p := w.provider
	w.mu.RUnlock()
	if w.ctx.Err() != nil {
		return ErrStopped
	}
	if p == nil {
		return ErrNoProvider
	}
	accounts, err := p.Accounts(w.ctx)
	if err != nil {
		return err
	}
	w.applyAccounts(accounts, EventAccountsChanged)
	return nil
}

// DismissError clears a captured connect error.
func (w *Watcher) DismissError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.Error {
		return
	}
	w.state.Error = false
	w.state.ErrorMessage = ""
	w.notify(EventErrorDismissed)
}
