// Package txengine keeps the gateway's view of multisig transactions
// consistent with a lagging indexer and the chain. Each transaction moves
// PROPOSED -> QUEUED -> EXECUTED, or to REMOVED before execution.
package txengine

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/btree"
	"golang.org/x/sync/errgroup"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/chainstate"
	"safe-gateway-lite/internal/indexer"
	"safe-gateway-lite/internal/metrics"
	"safe-gateway-lite/internal/model"
)

// Chains resolves the chain state reader for a chain id.
type Chains interface {
	Reader(chainID string) (chainstate.Reader, error)
}

type EventType string

const (
	EventProposed  EventType = "PROPOSED"
	EventConfirmed EventType = "CONFIRMED"
	EventDeleted   EventType = "DELETED"
	EventExecuted  EventType = "EXECUTED"
)

// Event describes a change to one transaction of a Safe.
type Event struct {
	Type       EventType      `json:"type"`
	ChainID    string         `json:"chainId"`
	Safe       string         `json:"safe"`
	SafeTxHash string         `json:"safeTxHash"`
	Nonce      uint64         `json:"nonce"`
	Status     model.TxStatus `json:"status"`
}

// Notifier receives engine events. The engine publishes outside its locks,
// but Publish should still return promptly.
type Notifier interface {
	Publish(ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

type Options struct {
	Chains   Chains
	Indexer  indexer.Indexer
	Notifier Notifier
	Now      func() time.Time
	Logger   *slog.Logger
	// Retention is how long EXECUTED and REMOVED records stay in memory
	// (default 24h). Evicted ones are adopted again from the indexer.
	Retention time.Duration
}

// DefaultRetention bounds how long terminal records are kept.
const DefaultRetention = 24 * time.Hour

// nonceEntry orders a Safe's live transactions by nonce.
type nonceEntry struct {
	nonce uint64
	hash  string
}

func lessNonce(a, b nonceEntry) bool {
	if a.nonce != b.nonce {
		return a.nonce < b.nonce
	}
	return a.hash < b.hash
}

// retiredRecord remembers when a record became terminal.
type retiredRecord struct {
	key string
	at  time.Time
}

type Engine struct {
	chains    Chains
	indexer   indexer.Indexer
	notifier  Notifier
	now       func() time.Time
	logger    *slog.Logger
	retention time.Duration

	safeLocks *keyedMutex

	mu      sync.RWMutex
	records map[string]*model.Transaction        // chainID|hash
	live    map[string]*btree.BTreeG[nonceEntry] // chainID|safe
	retired []retiredRecord                      // oldest first
}

func New(opts Options) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Engine{
		chains:    opts.Chains,
		indexer:   opts.Indexer,
		notifier:  opts.Notifier,
		now:       opts.Now,
		logger:    opts.Logger.With("component", "txengine"),
		retention: opts.Retention,
		safeLocks: newKeyedMutex(),
		records:   make(map[string]*model.Transaction),
		live:      make(map[string]*btree.BTreeG[nonceEntry]),
	}
}

func recordKey(chainID, safeTxHash string) string {
	return chainID + "|" + strings.ToLower(safeTxHash)
}

func safeKey(chainID, safe string) string {
	return chainID + "|" + safe
}

func parseChainID(raw string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() <= 0 {
		return nil, apperr.Wrapf(apperr.ErrInvalidInput, "invalid chain id %q", raw)
	}
	return id, nil
}

// upstream keeps the kind of an already classified error and reports
// anything else as an unavailable upstream.
func upstream(err error, op string) error {
	if _, ok := apperr.Kind(err); ok {
		return err
	}
	return apperr.Wrapf(apperr.ErrUpstreamUnavailable, "%s: %v", op, err)
}

// indexLocked records tx's nonce as used when its status is live and
// releases it otherwise. Callers hold e.mu.
func (e *Engine) indexLocked(tx *model.Transaction) {
	key := safeKey(tx.ChainID, tx.Safe)
	tree, ok := e.live[key]
	entry := nonceEntry{nonce: tx.Nonce, hash: strings.ToLower(tx.SafeTxHash)}
	if !tx.Status.Live() {
		if ok {
			tree.Delete(entry)
			if tree.Len() == 0 {
				delete(e.live, key)
			}
		}
		return
	}
	if !ok {
		tree = btree.NewG(8, lessNonce)
		e.live[key] = tree
	}
	tree.ReplaceOrInsert(entry)
}

// nextNonce is max(onchain, highest live nonce + 1).
func (e *Engine) nextNonce(chainID, safe string, onchain uint64) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tree, ok := e.live[safeKey(chainID, safe)]
	if !ok {
		return onchain
	}
	top, ok := tree.Max()
	if !ok || top.nonce+1 <= onchain {
		return onchain
	}
	return top.nonce + 1
}

// transition moves tx to status to. Callers hold e.mu.
func (e *Engine) transition(tx *model.Transaction, to model.TxStatus) {
	tx.Status = to
	e.indexLocked(tx)
	now := e.now()
	if to.Terminal() {
		e.retired = append(e.retired, retiredRecord{key: recordKey(tx.ChainID, tx.SafeTxHash), at: now})
	}
	e.pruneLocked(now)
	metrics.TxTransitionsTotal.WithLabelValues(tx.ChainID, string(to)).Inc()
}

// pruneLocked evicts records that have been terminal for longer than the
// retention. Callers hold e.mu.
func (e *Engine) pruneLocked(now time.Time) {
	for len(e.retired) > 0 && now.Sub(e.retired[0].at) >= e.retention {
		r := e.retired[0]
		e.retired = e.retired[1:]
		if rec, ok := e.records[r.key]; ok && rec.Status.Terminal() {
			delete(e.records, r.key)
		}
	}
}

func newEvent(t EventType, tx model.Transaction) Event {
	return Event{
		Type:       t,
		ChainID:    tx.ChainID,
		Safe:       tx.Safe,
		SafeTxHash: tx.SafeTxHash,
		Nonce:      tx.Nonce,
		Status:     tx.Status,
	}
}

// emit publishes events. It is called with no engine lock held so a slow
// notifier cannot stall other operations on the Safe.
func (e *Engine) emit(events []Event) {
	for _, ev := range events {
		e.notifier.Publish(ev)
	}
}

func (e *Engine) reader(chainID, rawSafe string) (chainstate.Reader, common.Address, error) {
	if _, err := parseChainID(chainID); err != nil {
		return nil, common.Address{}, err
	}
	safe, err := address.Parse(rawSafe)
	if err != nil {
		return nil, common.Address{}, err
	}
	r, err := e.chains.Reader(chainID)
	if err != nil {
		return nil, common.Address{}, err
	}
	return r, safe, nil
}

// refreshQueue merges the indexer queue of safe into local state, so nonce
// decisions also see transactions proposed elsewhere or before a restart.
// It returns the on-chain nonce, the merged queue and the EXECUTED events
// the merge produced.
func (e *Engine) refreshQueue(ctx context.Context, chainID string, safe common.Address) (uint64, []model.Transaction, []Event, error) {
	remote, _, onchain, err := e.listing(ctx, chainID, safe.Hex(), e.indexer.Queued)
	if err != nil {
		return 0, nil, nil, err
	}

	merged := make([]model.Transaction, 0, len(remote))
	var events []Event
	e.mu.Lock()
	for _, it := range remote {
		if it.Nonce < onchain && !it.IsExecuted {
			// the nonce was consumed on chain by another transaction
			continue
		}
		tx, ev := e.mergeLocked(it, chainID, safe.Hex())
		if ev == EventExecuted {
			events = append(events, newEvent(ev, tx))
		}
		merged = append(merged, tx)
	}
	e.mu.Unlock()
	return onchain, merged, events, nil
}

func (e *Engine) RecommendNonce(ctx context.Context, chainID, rawSafe string) (model.Nonces, error) {
	_, safe, err := e.reader(chainID, rawSafe)
	if err != nil {
		return model.Nonces{}, err
	}

	var events []Event
	defer func() { e.emit(events) }()
	unlock := e.safeLocks.Lock(safeKey(chainID, safe.Hex()))
	defer unlock()

	var onchain uint64
	if onchain, _, events, err = e.refreshQueue(ctx, chainID, safe); err != nil {
		return model.Nonces{}, err
	}
	return model.Nonces{CurrentNonce: onchain, RecommendedNonce: e.nextNonce(chainID, safe.Hex(), onchain)}, nil
}

func (e *Engine) requireOwner(ctx context.Context, r chainstate.Reader, safe common.Address, signer string) error {
	owner, err := chainstate.IsOwner(ctx, r, safe, common.HexToAddress(signer))
	if err != nil {
		return upstream(err, "read safe owners")
	}
	if !owner {
		return apperr.Wrapf(apperr.ErrUnauthorized, "%s is not an owner of %s", signer, safe.Hex())
	}
	return nil
}

// Propose validates in, forwards it to the indexer and records it as
// PROPOSED with the proposer's confirmation.
func (e *Engine) Propose(ctx context.Context, sess auth.Session, chainID, rawSafe string, in ProposeInput) (model.Transaction, error) {
	r, safe, err := e.reader(chainID, rawSafe)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, hash, err := in.normalize(chainID, safe.Hex())
	if err != nil {
		return model.Transaction{}, err
	}
	if !address.Equal(sess.Address, tx.Proposer) {
		return model.Transaction{}, apperr.Wrap(apperr.ErrUnauthorized, "sender does not match the session")
	}
	sig, err := auth.DecodeSignature(in.Signature)
	if err != nil {
		return model.Transaction{}, apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	signer, err := auth.RecoverSafeSignature(hash, sig)
	if err != nil || signer.Hex() != tx.Proposer {
		return model.Transaction{}, apperr.Wrap(apperr.ErrSignatureMismatch, "signature was not produced by sender")
	}
	if err := e.requireOwner(ctx, r, safe, tx.Proposer); err != nil {
		return model.Transaction{}, err
	}

	var events []Event
	defer func() { e.emit(events) }()
	unlock := e.safeLocks.Lock(safeKey(chainID, tx.Safe))
	defer unlock()

	onchain, _, events, err := e.refreshQueue(ctx, chainID, safe)
	if err != nil {
		return model.Transaction{}, err
	}

	e.mu.RLock()
	_, known := e.records[recordKey(chainID, tx.SafeTxHash)]
	e.mu.RUnlock()
	if known {
		return model.Transaction{}, apperr.Wrapf(apperr.ErrConflict, "transaction %s already exists", tx.SafeTxHash)
	}

	if next := e.nextNonce(chainID, tx.Safe, onchain); tx.Nonce != next {
		return model.Transaction{}, apperr.Wrapf(apperr.ErrNonceConflict, "nonce %d is not the next nonce %d", tx.Nonce, next)
	}

	tx.SubmittedAt = e.now().UnixMilli()
	tx.Confirmations = []model.Confirmation{{Signer: tx.Proposer, Signature: in.Signature, SubmittedAt: tx.SubmittedAt}}
	req := indexer.ProposeRequest{Transaction: indexer.FromModel(tx), Sender: tx.Proposer, Signature: in.Signature}
	if err := e.indexer.Propose(ctx, req); err != nil {
		e.logger.Warn("propose not forwarded", "chain", chainID, "safe", tx.Safe, "safeTxHash", tx.SafeTxHash, "err", err)
		return model.Transaction{}, upstream(err, "forward proposal")
	}

	e.mu.Lock()
	key := recordKey(chainID, tx.SafeTxHash)
	rec, adopted := e.records[key]
	if adopted {
		// a concurrent listing already picked it up from the indexer
		if rec.Safe != tx.Safe {
			e.mu.Unlock()
			return model.Transaction{}, apperr.Wrapf(apperr.ErrConflict, "transaction %s belongs to another safe", tx.SafeTxHash)
		}
		if !rec.Confirmed(tx.Proposer) {
			rec.Confirmations = append(rec.Confirmations, tx.Confirmations[0])
		}
	} else {
		rec = &tx
		e.records[key] = rec
		e.transition(rec, model.TxStatusProposed)
	}
	out := rec.Clone()
	e.mu.Unlock()

	e.logger.Info("transaction proposed", "chain", chainID, "safe", out.Safe, "safeTxHash", out.SafeTxHash, "nonce", out.Nonce)
	events = append(events, newEvent(EventProposed, out))
	return out, nil
}

func (e *Engine) lookup(chainID, safeTxHash string) (model.Transaction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[recordKey(chainID, safeTxHash)]
	if !ok {
		return model.Transaction{}, false
	}
	return rec.Clone(), true
}

// resolve returns the record of hash, adopting it from the indexer when
// the gateway has not seen it yet. It reports false only when neither
// knows the transaction.
func (e *Engine) resolve(ctx context.Context, chainID string, hash common.Hash) (model.Transaction, bool, error) {
	if tx, ok := e.lookup(chainID, hash.Hex()); ok {
		return tx, true, nil
	}
	it, err := e.indexer.Transaction(ctx, chainID, hash.Hex())
	if apperr.Is(err, apperr.ErrNotFound) {
		return model.Transaction{}, false, nil
	}
	if err != nil {
		return model.Transaction{}, false, upstream(err, "indexer lookup")
	}
	safe, err := address.Checksum(it.Safe)
	if err != nil {
		return model.Transaction{}, false, apperr.Wrapf(apperr.ErrUpstreamUnavailable, "indexer returned safe %q", it.Safe)
	}

	e.mu.Lock()
	tx, ev := e.mergeLocked(it, chainID, safe)
	e.mu.Unlock()
	e.logger.Debug("transaction adopted", "chain", chainID, "safe", safe, "safeTxHash", tx.SafeTxHash, "status", tx.Status)
	if ev != "" {
		e.emit([]Event{newEvent(ev, tx)})
	}
	return tx, true, nil
}

func (e *Engine) GetTransaction(ctx context.Context, chainID, rawHash string) (model.Transaction, error) {
	if _, err := parseChainID(chainID); err != nil {
		return model.Transaction{}, err
	}
	hash, err := parseHash(rawHash)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, ok, err := e.resolve(ctx, chainID, hash)
	if err != nil {
		return model.Transaction{}, err
	}
	if !ok {
		return model.Transaction{}, apperr.Wrap(apperr.ErrNotFound, "Transaction not found")
	}
	return tx, nil
}

// Confirm adds the session owner's signature to a pending transaction.
// A second confirmation by the same owner returns the record unchanged.
func (e *Engine) Confirm(ctx context.Context, sess auth.Session, chainID, rawHash, signature string) (model.Transaction, error) {
	if _, err := parseChainID(chainID); err != nil {
		return model.Transaction{}, err
	}
	hash, err := parseHash(rawHash)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, ok, err := e.resolve(ctx, chainID, hash)
	if err != nil {
		return model.Transaction{}, err
	}
	if !ok {
		return model.Transaction{}, apperr.Wrap(apperr.ErrNotFound, "Transaction not found")
	}
	if tx.Status.Terminal() {
		return model.Transaction{}, apperr.Wrapf(apperr.ErrConflict, "transaction is %s", tx.Status)
	}

	sig, err := auth.DecodeSignature(signature)
	if err != nil {
		return model.Transaction{}, apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	signer, err := auth.RecoverSafeSignature(hash, sig)
	if err != nil {
		return model.Transaction{}, apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	if !address.Equal(signer.Hex(), sess.Address) {
		return model.Transaction{}, apperr.Wrap(apperr.ErrSignatureMismatch, "signature was not produced by the session owner")
	}
	if tx.Confirmed(signer.Hex()) {
		return tx, nil
	}

	r, safe, err := e.reader(chainID, tx.Safe)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := e.requireOwner(ctx, r, safe, signer.Hex()); err != nil {
		return model.Transaction{}, err
	}

	var events []Event
	defer func() { e.emit(events) }()
	unlock := e.safeLocks.Lock(safeKey(chainID, tx.Safe))
	defer unlock()

	if tx, ok = e.lookup(chainID, hash.Hex()); !ok {
		return model.Transaction{}, apperr.Wrap(apperr.ErrNotFound, "Transaction not found")
	}
	if tx.Status.Terminal() {
		return model.Transaction{}, apperr.Wrapf(apperr.ErrConflict, "transaction is %s", tx.Status)
	}
	conf := model.Confirmation{Signer: signer.Hex(), Signature: signature, SubmittedAt: e.now().UnixMilli()}
	err = e.indexer.Confirm(ctx, chainID, tx.SafeTxHash, indexer.Confirmation{Owner: conf.Signer, Signature: conf.Signature, SubmittedAt: conf.SubmittedAt})
	if err != nil {
		return model.Transaction{}, upstream(err, "forward confirmation")
	}

	e.mu.Lock()
	rec, ok := e.records[recordKey(chainID, tx.SafeTxHash)]
	if !ok {
		e.mu.Unlock()
		return model.Transaction{}, apperr.Wrap(apperr.ErrNotFound, "Transaction not found")
	}
	if !rec.Confirmed(conf.Signer) {
		rec.Confirmations = append(rec.Confirmations, conf)
		metrics.TxConfirmationsTotal.WithLabelValues(chainID).Inc()
	}
	out := rec.Clone()
	e.mu.Unlock()

	events = append(events, newEvent(EventConfirmed, out))
	return out, nil
}

// Delete removes a transaction that has not been executed. The signature
// is the proposer's EIP-712 DeleteRequest for the current or previous
// hour. Only a transaction unknown to both the gateway and the indexer is
// a no-op.
func (e *Engine) Delete(ctx context.Context, _ auth.Session, chainID, rawHash, signature string) error {
	id, err := parseChainID(chainID)
	if err != nil {
		return err
	}
	hash, err := parseHash(rawHash)
	if err != nil {
		return err
	}
	tx, ok, err := e.resolve(ctx, chainID, hash)
	if err != nil {
		return err
	}
	if !ok || tx.Status == model.TxStatusRemoved {
		return nil
	}

	var events []Event
	defer func() { e.emit(events) }()
	unlock := e.safeLocks.Lock(safeKey(chainID, tx.Safe))
	defer unlock()

	// re-read under the safe lock
	if tx, ok = e.lookup(chainID, hash.Hex()); !ok || tx.Status == model.TxStatusRemoved {
		return nil
	}
	if tx.Status == model.TxStatusExecuted {
		return apperr.Wrap(apperr.ErrConflict, "transaction is already executed")
	}

	sig, err := auth.DecodeSignature(signature)
	if err != nil {
		return apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	safe := common.HexToAddress(tx.Safe)
	build := func(totp int64) apitypes.TypedData {
		return auth.DeleteRequestTypedData(id, safe, hash, totp)
	}
	proposer := common.HexToAddress(tx.Proposer)
	if _, err := auth.RecoverWindowed(e.now(), sig, build, func(a common.Address) bool { return a == proposer }); err != nil {
		return apperr.Wrap(apperr.ErrSignatureMismatch, "delete request was not signed by the proposer")
	}

	if err := e.indexer.Delete(ctx, chainID, tx.SafeTxHash, signature); err != nil {
		return upstream(err, "forward delete")
	}

	e.mu.Lock()
	rec, ok := e.records[recordKey(chainID, tx.SafeTxHash)]
	if !ok {
		rec = &tx
		e.records[recordKey(chainID, tx.SafeTxHash)] = rec
	}
	if rec.Status == model.TxStatusExecuted {
		e.mu.Unlock()
		return apperr.Wrap(apperr.ErrConflict, "transaction is already executed")
	}
	e.transition(rec, model.TxStatusRemoved)
	out := rec.Clone()
	e.mu.Unlock()

	e.logger.Info("transaction removed", "chain", chainID, "safe", out.Safe, "safeTxHash", out.SafeTxHash)
	events = append(events, newEvent(EventDeleted, out))
	return nil
}

// listing fetches one indexer listing together with the on-chain nonce.
func (e *Engine) listing(ctx context.Context, chainID, rawSafe string, list func(context.Context, string, string) ([]indexer.Item, error)) ([]indexer.Transaction, common.Address, uint64, error) {
	r, safe, err := e.reader(chainID, rawSafe)
	if err != nil {
		return nil, safe, 0, err
	}
	var (
		items   []indexer.Item
		onchain uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if items, err = list(gctx, chainID, safe.Hex()); err != nil {
			return upstream(err, "indexer listing")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if onchain, err = r.SafeNonce(gctx, safe); err != nil {
			return upstream(err, "read safe nonce")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, safe, 0, err
	}
	return indexer.Transactions(items), safe, onchain, nil
}

// mergeLocked overlays the local record for it, adopting transactions the
// gateway has not seen yet. Callers hold e.mu.
func (e *Engine) mergeLocked(it indexer.Transaction, chainID, safe string) (out model.Transaction, ev EventType) {
	remote := it.ToModel()
	remote.ChainID, remote.Safe = chainID, safe
	remote.SafeTxHash = common.HexToHash(remote.SafeTxHash).Hex()
	key := recordKey(chainID, remote.SafeTxHash)
	rec, ok := e.records[key]
	if !ok {
		rec = &remote
		e.records[key] = rec
		e.transition(rec, remote.Status)
		return rec.Clone(), ""
	}

	for _, c := range remote.Confirmations {
		if !rec.Confirmed(c.Signer) {
			rec.Confirmations = append(rec.Confirmations, c)
		}
	}
	switch {
	case remote.Status == model.TxStatusExecuted && rec.Status != model.TxStatusExecuted:
		rec.ExecutedAt, rec.TxHash = remote.ExecutedAt, remote.TxHash
		e.transition(rec, model.TxStatusExecuted)
		ev = EventExecuted
	case remote.Status == model.TxStatusQueued && rec.Status == model.TxStatusProposed:
		e.transition(rec, model.TxStatusQueued)
	}
	return rec.Clone(), ev
}

// GetQueue lists the Safe's pending transactions as the indexer reports
// them, with local state overlaid. Removed transactions the indexer still
// lists are returned with status REMOVED.
func (e *Engine) GetQueue(ctx context.Context, chainID, rawSafe string) ([]model.Transaction, error) {
	_, safe, err := e.reader(chainID, rawSafe)
	if err != nil {
		return nil, err
	}
	_, out, events, err := e.refreshQueue(ctx, chainID, safe)
	if err != nil {
		return nil, err
	}
	e.emit(events)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Nonce != out[j].Nonce {
			return out[i].Nonce < out[j].Nonce
		}
		return out[i].SubmittedAt < out[j].SubmittedAt
	})
	e.logger.Debug("queue listed", "chain", chainID, "safe", safe.Hex(), "count", len(out))
	return out, nil
}

// GetHistory lists executed transactions, newest first.
func (e *Engine) GetHistory(ctx context.Context, chainID, rawSafe string) ([]model.Transaction, error) {
	remote, safe, _, err := e.listing(ctx, chainID, rawSafe, e.indexer.History)
	if err != nil {
		return nil, err
	}

	out := make([]model.Transaction, 0, len(remote))
	var events []Event
	e.mu.Lock()
	for _, it := range remote {
		if !it.IsExecuted {
			continue
		}
		tx, ev := e.mergeLocked(it, chainID, safe.Hex())
		if ev == EventExecuted {
			e.logger.Info("transaction executed", "chain", chainID, "safe", tx.Safe, "safeTxHash", tx.SafeTxHash)
			events = append(events, newEvent(ev, tx))
		}
		out = append(out, tx)
	}
	e.mu.Unlock()
	e.emit(events)
	sort.SliceStable(out, func(i, j int) bool {
		return executedAt(out[i]) > executedAt(out[j])
	})
	return out, nil
}

func executedAt(tx model.Transaction) int64 {
	if tx.ExecutedAt == nil {
		return 0
	}
	return *tx.ExecutedAt
}
