// Package operation drives state-changing contract calls through a fixed
// lifecycle: form -> precheck -> confirm -> submitting -> confirming ->
// succeeded | failed. Once a transaction is submitted the lifecycle only
// moves forward; there is no cancellation past that point.
package operation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrBusy      = errors.New("another operation is in progress")
	ErrNoPending = errors.New("no pending operation")
	ErrTooLate   = errors.New("operation already submitted; it can no longer be cancelled")
	ErrNotFailed = errors.New("operation has not failed; nothing to retry")
)

type State string

const (
	StateForm       State = "form"
	StatePrecheck   State = "precheck"
	StateConfirm    State = "confirm"
	StateSubmitting State = "submitting"
	StateConfirming State = "confirming"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// Error classes surfaced in snapshots and history entries.
const (
	ErrClassPrecheck = "precheck"
	ErrClassReverted = "reverted"
	ErrClassTimeout  = "timeout"
	ErrClassNetwork  = "network"
)

const (
	BannerSuccess = "success"
	BannerError   = "error"

	// DefaultBannerTTL is how long a banner stays up before dismissing itself.
	DefaultBannerTTL = 5 * time.Second
)

type (
	// Definition describes one submittable operation. Validation of the
	// underlying form data happens before a Definition is ever built; the
	// controller only sees operations whose inputs are well-formed.
	Definition struct {
		Kind        string
		Label       string
		Detail      map[string]string
		SuccessText string

		// Precheck runs against current contract state before the operation
		// may be confirmed, and again on every retry. Optional.
		Precheck func(ctx context.Context) error
		// Submit signs and broadcasts the transaction.
		Submit func(ctx context.Context) (common.Hash, error)
		// Wait blocks until the transaction is mined.
		Wait func(ctx context.Context, txHash common.Hash) (chain.Receipt, error)
	}

	// Banner is a transient outcome notice. It dismisses itself after the
	// controller's TTL unless dismissed explicitly first.
	Banner struct {
		Kind    string    `json:"kind"`
		Text    string    `json:"text"`
		ShownAt time.Time `json:"shown_at"` // UTC
	}

	// Snapshot is a point-in-time copy of the controller's visible state.
	Snapshot struct {
		State      State             `json:"state"`
		Kind       string            `json:"kind,omitempty"`
		Label      string            `json:"label,omitempty"`
		Detail     map[string]string `json:"detail,omitempty"`
		TxHash     string            `json:"tx_hash,omitempty"`
		Receipt    *chain.Receipt    `json:"receipt,omitempty"`
		Error      string            `json:"error,omitempty"`
		ErrorClass string            `json:"error_class,omitempty"`
		Banner     *Banner           `json:"banner,omitempty"`
		StartedAt  time.Time         `json:"started_at,omitempty"` // UTC
	}

	Deps struct {
		Logger    core.Logger
		History   *history.List       // defaults to a fresh list of history.DefaultCap
		BannerTTL time.Duration       // defaults to DefaultBannerTTL
		OnDone    func(history.Entry) // called after each terminal outcome; optional
	}

	// Controller runs at most one operation at a time.
	Controller struct {
		logger    core.Logger
		log       *history.List
		bannerTTL time.Duration
		onDone    func(history.Entry)

		mu          sync.Mutex
		state       State
		def         *Definition
		txHash      common.Hash
		receipt     *chain.Receipt
		opErr       error
		banner      *Banner
		bannerTimer *time.Timer
		bannerSeq   int
		startedAt   time.Time
	}
)

func NewController(deps Deps) *Controller {
	if deps.History == nil {
		deps.History = history.NewList(history.DefaultCap)
	}
	if deps.BannerTTL <= 0 {
		deps.BannerTTL = DefaultBannerTTL
	}
	return &Controller{
		logger:    deps.Logger,
		log:       deps.History,
		bannerTTL: deps.BannerTTL,
		onDone:    deps.OnDone,
		state:     StateForm,
	}
}

// Begin prechecks def and, on success, parks it awaiting confirmation.
// It only proceeds from the form state or from a settled outcome; a new
// operation cannot preempt one that is still in flight.
func (c *Controller) Begin(ctx context.Context, def Definition) error {
	c.mu.Lock()
	if !(c.state == StateForm || c.state.Terminal()) {
		c.mu.Unlock()
		return ErrBusy
	}
	c.clearLocked()
	c.def = &def
	c.state = StatePrecheck
	c.startedAt = NowFunc().UTC()
	c.mu.Unlock()

	return c.precheck(ctx, &def)
}

func (c *Controller) precheck(ctx context.Context, def *Definition) error {
	var err error
	if def.Precheck != nil {
		err = def.Precheck(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateForm
		c.opErr = err
		return err
	}
	c.state = StateConfirm
	return nil
}

// Confirm submits the pending operation and waits for its receipt. The
// controller advances through submitting and confirming while this runs,
// so concurrent Snapshot callers observe progress. The outcome is recorded
// in history and returned.
func (c *Controller) Confirm(ctx context.Context) (history.Entry, error) {
	c.mu.Lock()
	switch c.state {
	case StateConfirm: // pass
	case StateSubmitting, StateConfirming, StatePrecheck:
		c.mu.Unlock()
		return history.Entry{}, ErrBusy
	default:
		c.mu.Unlock()
		return history.Entry{}, ErrNoPending
	}
	def := c.def
	c.state = StateSubmitting
	c.mu.Unlock()

	txHash, err := def.Submit(ctx)
	if err != nil {
		return c.finish(def, common.Hash{}, nil, err), err
	}

	c.mu.Lock()
	c.txHash = txHash
	c.state = StateConfirming
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Info(fmt.Sprintf("%s: submitted tx %s", def.Kind, txHash.Hex()))
	}

	receipt, err := def.Wait(ctx, txHash)
	if err != nil {
		return c.finish(def, txHash, nil, err), err
	}
	if !receipt.Succeeded() {
		return c.finish(def, txHash, &receipt, chain.ErrReverted), chain.ErrReverted
	}
	return c.finish(def, txHash, &receipt, nil), nil
}

// Cancel abandons the parked operation and returns to the form. It refuses
// once submission has started.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConfirm:
		c.clearLocked()
		c.state = StateForm
		return nil
	case StatePrecheck, StateSubmitting, StateConfirming:
		return ErrTooLate
	default:
		return ErrNoPending
	}
}

// Edit returns to the form while keeping the parked operation visible, so
// its summary can seed the next attempt.
func (c *Controller) Edit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConfirm:
		c.state = StateForm
		return nil
	case StatePrecheck, StateSubmitting, StateConfirming:
		return ErrTooLate
	default:
		return ErrNoPending
	}
}

// Retry re-prechecks a failed operation and, if contract state still
// allows it, parks it for confirmation again.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return ErrNotFailed
	}
	if c.def == nil {
		c.mu.Unlock()
		return ErrNoPending
	}
	def := c.def
	c.dismissBannerLocked()
	c.txHash = common.Hash{}
	c.receipt = nil
	c.opErr = nil
	c.state = StatePrecheck
	c.mu.Unlock()

	return c.precheck(ctx, def)
}

// Reset clears any settled outcome and returns to an empty form.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePrecheck, StateSubmitting, StateConfirming:
		return ErrBusy
	default:
		c.clearLocked()
		c.state = StateForm
		return nil
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:     c.state,
		StartedAt: c.startedAt,
	}
	if c.def != nil {
		snap.Kind = c.def.Kind
		snap.Label = c.def.Label
		snap.Detail = copyDetail(c.def.Detail)
	}
	if (c.txHash != common.Hash{}) {
		snap.TxHash = c.txHash.Hex()
	}
	if c.receipt != nil {
		r := *c.receipt
		snap.Receipt = &r
	}
	if c.opErr != nil {
		snap.Error = c.opErr.Error()
		snap.ErrorClass = classify(c.opErr)
	}
	if c.banner != nil {
		b := *c.banner
		snap.Banner = &b
	}
	return snap
}

// Banner returns the current outcome notice, if any.
func (c *Controller) Banner() *Banner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil {
		return nil
	}
	b := *c.banner
	return &b
}

// DismissBanner hides the outcome notice ahead of its TTL.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissBannerLocked()
}

// History returns the controller's outcome log, newest first.
func (c *Controller) History() []history.Entry {
	return c.log.Entries()
}

func (c *Controller) finish(def *Definition, txHash common.Hash, receipt *chain.Receipt, opErr error) history.Entry {
	c.mu.Lock()

	c.txHash = txHash
	c.receipt = receipt
	c.opErr = opErr

	entry := history.Entry{
		Kind:      def.Kind,
		Label:     def.Label,
		Detail:    copyDetail(def.Detail),
		CreatedAt: NowFunc().UTC(),
	}
	if (txHash != common.Hash{}) {
		entry.TxHash = txHash.Hex()
	}

	if opErr != nil {
		c.state = StateFailed
		entry.Error = opErr.Error()
		if entry.Detail == nil {
			entry.Detail = make(map[string]string, 1)
		}
		entry.Detail["error_class"] = classify(opErr)
		c.showBannerLocked(BannerError, fmt.Sprintf("%s failed: %v", def.Label, opErr))
	} else {
		c.state = StateSucceeded
		entry.Succeeded = true
		text := def.SuccessText
		if text == "" {
			text = fmt.Sprintf("%s succeeded", def.Label)
		}
		c.showBannerLocked(BannerSuccess, text)
	}
	entry = c.log.Push(entry)
	c.mu.Unlock()

	if opErr != nil && c.logger != nil {
		c.logger.Error(fmt.Sprintf("%s: %v", def.Kind, opErr), opErr)
	}
	if c.onDone != nil {
		c.onDone(entry)
	}
	return entry
}

func (c *Controller) showBannerLocked(kind, text string) {
	c.dismissBannerLocked()
	c.banner = &Banner{Kind: kind, Text: text, ShownAt: NowFunc().UTC()}
	seq := c.bannerSeq
	c.bannerTimer = time.AfterFunc(c.bannerTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.bannerSeq == seq {
			c.banner = nil
		}
	})
}

func (c *Controller) dismissBannerLocked() {
	if c.bannerTimer != nil {
		c.bannerTimer.Stop()
		c.bannerTimer = nil
	}
	c.banner = nil
	c.bannerSeq++
}

func (c *Controller) clearLocked() {
	c.def = nil
	c.txHash = common.Hash{}
	c.receipt = nil
	c.opErr = nil
	c.startedAt = time.Time{}
	c.dismissBannerLocked()
}

func classify(err error) string {
	switch {
	case err == nil:
		return ""
	case core.IsPrecheckError(err):
		return ErrClassPrecheck
	case chain.IsRevert(err):
		return ErrClassReverted
	case errors.Is(err, chain.ErrReceiptTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrClassTimeout
	default:
		return ErrClassNetwork
	}
}

func copyDetail(detail map[string]string) map[string]string {
	if detail == nil {
		return nil
	}
	out := make(map[string]string, len(detail))
	for k, v := range detail {
		out[k] = v
	}
	return out
}
