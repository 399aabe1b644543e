package trade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapscope/internal/amount"
	"swapscope/internal/model"
)

// State of the approval/swap machine. A trade walks Idle -> NeedsApproval ->
// Approving -> ApprovalConfirmed -> Swapping -> SwapConfirmed (skipping the
// approval leg when the allowance already covers the trade); Failed is
// reachable from Approving and Swapping.
type State string

const (
	StateIdle              State = "idle"
	StateNeedsApproval     State = "needs_approval"
	StateApproving         State = "approving"
	StateApprovalConfirmed State = "approval_confirmed"
	StateSwapping          State = "swapping"
	StateSwapConfirmed     State = "swap_confirmed"
	StateFailed            State = "failed"
)

var (
	// ErrTradeInFlight rejects a new trade while one is outstanding. Callers
	// disable the action instead of queuing.
	ErrTradeInFlight = errors.New("trade already in flight")
	// ErrNoRoute means the plan carries no usable route and must not be
	// submitted.
	ErrNoRoute = errors.New("routing unavailable")
)

// MaxApproval is the unlimited allowance requested on approval. Granting the
// router indefinite spend authority is a deliberate trust decision traded
// against one approval transaction per token instead of one per trade.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

const (
	// slippageBps bounds the counter amount at 5% off the quote. Fixed
	// policy, not user-configurable.
	slippageBps = 500
	bpsDenom    = 10000

	// deadlineWindow is added to the submission time; the receiving contract
	// enforces it.
	deadlineWindow = 20 * time.Minute
)

// Executor issues the on-chain calls the orchestrator sequences.
type Executor interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, value *big.Int) (common.Hash, error)
	Swap(ctx context.Context, params model.SwapParams) (common.Hash, error)
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

// Hooks observe the machine. OnSettled fires once the swap confirms, so the
// caller can clear both amount fields and invalidate derived chain reads.
type Hooks struct {
	OnState       func(State)
	OnTransaction func(model.PendingTransaction)
	OnSettled     func()
}

// Plan is a fully-resolved trade ready for execution.
type Plan struct {
	TokenIn   model.TokenInfo
	TokenOut  model.TokenInfo
	Mode      model.TradeMode
	Amount    string // human driving amount
	Route     model.RouteSelection
	Quoted    *big.Int // counter amount from the last successful quote, nil if none
	Owner     common.Address
	Recipient common.Address
	Router    common.Address // spender for approvals and swap target
}

// Failure describes where and why a trade terminated.
type Failure struct {
	Stage    State
	Category Category
	Err      error
}

// Outcome reports the transactions a trade produced.
type Outcome struct {
	Approval *model.PendingTransaction
	Swap     *model.PendingTransaction
	Failure  *Failure
}

// Orchestrator sequences the approval transaction (when needed) and the swap
// transaction into one user-facing action. Only one trade may be in flight.
type Orchestrator struct {
	exec   Executor
	hooks  Hooks
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	busy  bool
}

func NewOrchestrator(exec Executor, hooks Hooks, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		exec:   exec,
		hooks:  hooks,
		logger: logger,
		now:    time.Now,
		state:  StateIdle,
	}
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Execute runs the full trade. It returns ErrTradeInFlight when a prior trade
// is still outstanding. On any transaction rejection or revert the machine
// passes through Failed and settles back in Idle with nothing carried over to
// the next attempt.
func (o *Orchestrator) Execute(ctx context.Context, plan Plan) (Outcome, error) {
	if !o.begin() {
		return Outcome{}, ErrTradeInFlight
	}
	defer o.end()

	if !plan.Route.Routable() {
		return Outcome{}, ErrNoRoute
	}

	driving, required, bound, err := o.resolveAmounts(plan)
	if err != nil {
		return Outcome{}, err
	}

	allowance, err := o.exec.Allowance(ctx, plan.TokenIn.Address, plan.Owner, plan.Router)
	if err != nil {
		return Outcome{}, fmt.Errorf("read allowance: %w", err)
	}

	var outcome Outcome
	if allowance.Cmp(required) < 0 {
		o.setState(StateNeedsApproval)
		o.logger.Info("approval required",
			zap.String("token", plan.TokenIn.Address.Hex()),
			zap.String("allowance", allowance.String()),
			zap.String("required", required.String()),
		)

		o.setState(StateApproving)
		hash, err := o.exec.Approve(ctx, plan.TokenIn.Address, plan.Router, MaxApproval)
		if err != nil {
			return o.fail(outcome, StateApproving, err)
		}
		outcome.Approval = o.track(model.TxApprove, hash)

		if err := o.exec.WaitConfirmed(ctx, hash); err != nil {
			o.settle(outcome.Approval, model.TxFailed)
			return o.fail(outcome, StateApproving, err)
		}
		o.settle(outcome.Approval, model.TxConfirmed)
		o.setState(StateApprovalConfirmed)

		// The cached allowance is stale the moment the approval was
		// submitted; re-read before trusting it again.
		if refreshed, err := o.exec.Allowance(ctx, plan.TokenIn.Address, plan.Owner, plan.Router); err == nil {
			allowance = refreshed
		} else {
			o.logger.Warn("allowance refresh failed", zap.Error(err))
		}
		// Approval confirmed: continue into the swap without user action.
	}

	params := model.SwapParams{
		TokenIn:           plan.TokenIn.Address,
		TokenOut:          plan.TokenOut.Address,
		PoolIndex:         plan.Route.PoolIndex,
		Recipient:         plan.Recipient,
		Deadline:          uint64(o.now().Add(deadlineWindow).Unix()),
		Mode:              plan.Mode,
		Amount:            driving,
		Bound:             bound,
		SqrtPriceLimitX96: plan.Route.PriceLimit,
	}

	o.setState(StateSwapping)
	hash, err := o.exec.Swap(ctx, params)
	if err != nil {
		return o.fail(outcome, StateSwapping, err)
	}
	outcome.Swap = o.track(model.TxSwap, hash)

	if err := o.exec.WaitConfirmed(ctx, hash); err != nil {
		o.settle(outcome.Swap, model.TxFailed)
		return o.fail(outcome, StateSwapping, err)
	}
	o.settle(outcome.Swap, model.TxConfirmed)
	o.setState(StateSwapConfirmed)

	if o.hooks.OnSettled != nil {
		o.hooks.OnSettled()
	}

	return outcome, nil
}

// resolveAmounts derives the driving amount, the input amount the allowance
// must cover, and the slippage bound for the counter side.
func (o *Orchestrator) resolveAmounts(plan Plan) (driving, required, bound *big.Int, err error) {
	drivingDecimals := plan.TokenIn.Decimals
	if plan.Mode == model.ExactOut {
		drivingDecimals = plan.TokenOut.Decimals
	}
	driving, err = amount.Parse(plan.Amount, drivingDecimals)
	if err != nil {
		return nil, nil, nil, err
	}
	if driving.Sign() <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: zero amount", amount.ErrInvalidAmount)
	}

	if plan.Mode == model.ExactOut {
		// The input side is only known from the quote. Without one the
		// allowance check and the input cap degrade to the maximum
		// representable amount, which disables slippage protection.
		if plan.Quoted == nil {
			o.logger.Warn("no quote for exact-output trade, slippage protection disabled")
			return driving, MaxApproval, new(big.Int).Set(MaxApproval), nil
		}
		required = plan.Quoted
		bound = applySlippage(plan.Quoted, true)
		return driving, required, bound, nil
	}

	required = driving
	if plan.Quoted == nil {
		o.logger.Warn("no quote for exact-input trade, minimum output set to zero")
		bound = new(big.Int)
	} else {
		bound = applySlippage(plan.Quoted, false)
	}
	return driving, required, bound, nil
}

// applySlippage moves the quoted amount 5% against the trader: up for a
// maximum input, down for a minimum output.
func applySlippage(quoted *big.Int, up bool) *big.Int {
	factor := big.NewInt(bpsDenom - slippageBps)
	if up {
		factor = big.NewInt(bpsDenom + slippageBps)
	}
	bound := new(big.Int).Mul(quoted, factor)
	return bound.Div(bound, big.NewInt(bpsDenom))
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return false
	}
	o.busy = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.busy = false
	o.state = StateIdle
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("trade state", zap.String("state", string(s)))
	if o.hooks.OnState != nil {
		o.hooks.OnState(s)
	}
}

func (o *Orchestrator) track(kind model.TxKind, hash common.Hash) *model.PendingTransaction {
	tx := &model.PendingTransaction{Kind: kind, Hash: hash, Status: model.TxSubmitted}
	o.logger.Info("transaction submitted", zap.String("kind", string(kind)), zap.String("hash", hash.Hex()))
	if o.hooks.OnTransaction != nil {
		o.hooks.OnTransaction(*tx)
	}
	return tx
}

func (o *Orchestrator) settle(tx *model.PendingTransaction, status model.TxStatus) {
	tx.Status = status
	if o.hooks.OnTransaction != nil {
		o.hooks.OnTransaction(*tx)
	}
}

func (o *Orchestrator) fail(outcome Outcome, stage State, err error) (Outcome, error) {
	category := Classify(err)
	o.logger.Error("trade failed",
		zap.String("stage", string(stage)),
		zap.String("category", string(category)),
		zap.Error(err),
	)
	o.setState(StateFailed)
	outcome.Failure = &Failure{Stage: stage, Category: category, Err: err}
	return outcome, fmt.Errorf("%s: %w", stage, err)
}
