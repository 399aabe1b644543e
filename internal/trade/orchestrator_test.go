package trade

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapscope/internal/model"
)

var (
	tokenA   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	owner    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	routerAt = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeExecutor struct {
	mu sync.Mutex

	allowance     *big.Int
	allowanceErr  error
	approveErr    error
	swapErr       error
	waitErr       map[common.Hash]error
	waitGate      chan struct{} // when set, WaitConfirmed blocks until closed
	bumpAllowance bool          // approval confirmation raises the allowance

	approvals []*big.Int
	swaps     []model.SwapParams
	waited    []common.Hash
}

var (
	approveHash = common.HexToHash("0x01")
	swapHash    = common.HexToHash("0x02")
)

func (f *fakeExecutor) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowanceErr != nil {
		return nil, f.allowanceErr
	}
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeExecutor) Approve(ctx context.Context, token, spender common.Address, value *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approveErr != nil {
		return common.Hash{}, f.approveErr
	}
	f.approvals = append(f.approvals, new(big.Int).Set(value))
	return approveHash, nil
}

func (f *fakeExecutor) Swap(ctx context.Context, params model.SwapParams) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swapErr != nil {
		return common.Hash{}, f.swapErr
	}
	f.swaps = append(f.swaps, params)
	return swapHash, nil
}

func (f *fakeExecutor) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	f.mu.Lock()
	gate := f.waitGate
	f.waited = append(f.waited, hash)
	err := f.waitErr[hash]
	if hash == approveHash && err == nil && f.bumpAllowance {
		f.allowance = new(big.Int).Set(MaxApproval)
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int: %s", s)
	}
	return n
}

func plan(t *testing.T, quoted *big.Int) Plan {
	return Plan{
		TokenIn:   model.TokenInfo{Address: tokenA, Decimals: 18, Symbol: "AAA"},
		TokenOut:  model.TokenInfo{Address: tokenB, Decimals: 18, Symbol: "BBB"},
		Mode:      model.ExactIn,
		Amount:    "10",
		Route:     model.RouteSelection{PoolIndex: 4, PriceLimit: big.NewInt(1 << 40)},
		Quoted:    quoted,
		Owner:     owner,
		Recipient: owner,
		Router:    routerAt,
	}
}

func TestExecuteApproveThenSwap(t *testing.T) {
	exec := &fakeExecutor{
		allowance:     new(big.Int), // no prior approval
		waitErr:       map[common.Hash]error{},
		bumpAllowance: true,
	}

	var states []State
	settled := false
	o := NewOrchestrator(exec, Hooks{
		OnState:   func(s State) { states = append(states, s) },
		OnSettled: func() { settled = true },
	}, nil)

	quoted := bigFromString(t, "9850000000000000000") // 9.85
	outcome, err := o.Execute(context.Background(), plan(t, quoted))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	wantStates := []State{StateNeedsApproval, StateApproving, StateApprovalConfirmed, StateSwapping, StateSwapConfirmed}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("state sequence mismatch: %v", states)
	}

	if len(exec.approvals) != 1 || exec.approvals[0].Cmp(MaxApproval) != 0 {
		t.Fatalf("expected one maximal approval, got %v", exec.approvals)
	}

	if len(exec.swaps) != 1 {
		t.Fatalf("expected one swap, got %d", len(exec.swaps))
	}
	swap := exec.swaps[0]
	if swap.Amount.Cmp(bigFromString(t, "10000000000000000000")) != 0 {
		t.Fatalf("driving amount mismatch: %s", swap.Amount)
	}
	// 9.85 minus 5%.
	if swap.Bound.Cmp(bigFromString(t, "9357500000000000000")) != 0 {
		t.Fatalf("minimum output mismatch: %s", swap.Bound)
	}
	if swap.PoolIndex != 4 {
		t.Fatalf("pool index mismatch: %d", swap.PoolIndex)
	}
	if swap.SqrtPriceLimitX96.Sign() == 0 {
		t.Fatalf("price limit must be set")
	}

	// Approval confirmation must be observed before the swap is waited on.
	if !reflect.DeepEqual(exec.waited, []common.Hash{approveHash, swapHash}) {
		t.Fatalf("confirmation order mismatch: %v", exec.waited)
	}

	if !settled {
		t.Fatalf("OnSettled must fire after swap confirmation")
	}
	if outcome.Approval == nil || outcome.Approval.Status != model.TxConfirmed {
		t.Fatalf("approval outcome mismatch: %+v", outcome.Approval)
	}
	if outcome.Swap == nil || outcome.Swap.Status != model.TxConfirmed {
		t.Fatalf("swap outcome mismatch: %+v", outcome.Swap)
	}
	if o.State() != StateIdle {
		t.Fatalf("machine must return to idle, got %s", o.State())
	}
}

func TestExecuteSkipsApprovalWhenCovered(t *testing.T) {
	exec := &fakeExecutor{
		allowance: bigFromString(t, "100000000000000000000"),
		waitErr:   map[common.Hash]error{},
	}

	var states []State
	o := NewOrchestrator(exec, Hooks{OnState: func(s State) { states = append(states, s) }}, nil)

	if _, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18))); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(exec.approvals) != 0 {
		t.Fatalf("no approval expected, got %d", len(exec.approvals))
	}
	want := []State{StateSwapping, StateSwapConfirmed}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("state sequence mismatch: %v", states)
	}
}

func TestExecuteApprovalFailureStopsTrade(t *testing.T) {
	exec := &fakeExecutor{
		allowance: new(big.Int),
		waitErr:   map[common.Hash]error{approveHash: errors.New("execution reverted")},
	}

	settled := false
	o := NewOrchestrator(exec, Hooks{OnSettled: func() { settled = true }}, nil)

	outcome, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18)))
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(exec.swaps) != 0 {
		t.Fatalf("swap must not be submitted after approval failure")
	}
	if outcome.Failure == nil || outcome.Failure.Stage != StateApproving {
		t.Fatalf("failure stage mismatch: %+v", outcome.Failure)
	}
	if settled {
		t.Fatalf("OnSettled must not fire on failure")
	}
	if o.State() != StateIdle {
		t.Fatalf("machine must return to idle after failure, got %s", o.State())
	}

	// A fresh attempt starts clean and can succeed.
	exec.mu.Lock()
	exec.waitErr = map[common.Hash]error{}
	exec.bumpAllowance = true
	exec.mu.Unlock()
	if _, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18))); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestExecuteSwapRevertClassified(t *testing.T) {
	exec := &fakeExecutor{
		allowance: bigFromString(t, "100000000000000000000"),
		waitErr:   map[common.Hash]error{swapHash: errors.New("ERC20: transfer amount exceeds allowance")},
	}
	o := NewOrchestrator(exec, Hooks{}, nil)

	outcome, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18)))
	if err == nil {
		t.Fatalf("expected error")
	}
	if outcome.Failure.Category != CategoryInsufficientAllowance {
		t.Fatalf("category mismatch: %s", outcome.Failure.Category)
	}
	if outcome.Swap == nil || outcome.Swap.Status != model.TxFailed {
		t.Fatalf("swap status mismatch: %+v", outcome.Swap)
	}
}

func TestExecuteRejectsConcurrentTrade(t *testing.T) {
	gate := make(chan struct{})
	exec := &fakeExecutor{
		allowance: bigFromString(t, "100000000000000000000"),
		waitErr:   map[common.Hash]error{},
		waitGate:  gate,
	}
	o := NewOrchestrator(exec, Hooks{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18)))
		done <- err
	}()

	// Wait until the first trade blocks on confirmation.
	deadline := time.After(2 * time.Second)
	for {
		exec.mu.Lock()
		waiting := len(exec.waited) > 0
		exec.mu.Unlock()
		if waiting {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first trade never reached confirmation wait")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := o.Execute(context.Background(), plan(t, big.NewInt(1e18))); !errors.Is(err, ErrTradeInFlight) {
		t.Fatalf("expected ErrTradeInFlight, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first trade: %v", err)
	}
}

func TestExecuteRequiresRoute(t *testing.T) {
	o := NewOrchestrator(&fakeExecutor{allowance: new(big.Int)}, Hooks{}, nil)

	p := plan(t, big.NewInt(1e18))
	p.Route.PriceLimit = new(big.Int) // sentinel: do not submit
	if _, err := o.Execute(context.Background(), p); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}

	p.Route.PriceLimit = nil
	if _, err := o.Execute(context.Background(), p); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute for nil limit, got %v", err)
	}
}

func TestExecuteExactOutBounds(t *testing.T) {
	exec := &fakeExecutor{
		allowance: bigFromString(t, "100000000000000000000000"),
		waitErr:   map[common.Hash]error{},
	}
	o := NewOrchestrator(exec, Hooks{}, nil)

	p := plan(t, bigFromString(t, "10000000000000000000")) // quoted input: 10
	p.Mode = model.ExactOut
	p.Amount = "9.85"

	if _, err := o.Execute(context.Background(), p); err != nil {
		t.Fatalf("execute: %v", err)
	}
	swap := exec.swaps[0]
	if swap.Amount.Cmp(bigFromString(t, "9850000000000000000")) != 0 {
		t.Fatalf("driving output mismatch: %s", swap.Amount)
	}
	// 10 plus 5%.
	if swap.Bound.Cmp(bigFromString(t, "10500000000000000000")) != 0 {
		t.Fatalf("maximum input mismatch: %s", swap.Bound)
	}
}

func TestExecuteExactOutWithoutQuoteDisablesProtection(t *testing.T) {
	exec := &fakeExecutor{
		allowance:     new(big.Int),
		waitErr:       map[common.Hash]error{},
		bumpAllowance: true,
	}
	o := NewOrchestrator(exec, Hooks{}, nil)

	p := plan(t, nil)
	p.Mode = model.ExactOut

	if _, err := o.Execute(context.Background(), p); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// No quoted input: any finite allowance is insufficient and the input cap
	// degrades to the maximum representable amount.
	if len(exec.approvals) != 1 {
		t.Fatalf("expected an approval, got %d", len(exec.approvals))
	}
	if exec.swaps[0].Bound.Cmp(MaxApproval) != 0 {
		t.Fatalf("expected unlimited input bound, got %s", exec.swaps[0].Bound)
	}
}

func TestExecuteMalformedAmount(t *testing.T) {
	o := NewOrchestrator(&fakeExecutor{allowance: new(big.Int)}, Hooks{}, nil)

	p := plan(t, big.NewInt(1e18))
	p.Amount = "not a number"
	if _, err := o.Execute(context.Background(), p); err == nil {
		t.Fatalf("expected error for malformed amount")
	}

	p.Amount = "0"
	if _, err := o.Execute(context.Background(), p); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want Category
	}{
		{"user rejected transaction", CategoryUserCancelled},
		{"MetaMask Tx Signature: User denied transaction signature.", CategoryUserCancelled},
		{"request cancelled", CategoryUserCancelled},
		{"ERC20: transfer amount exceeds allowance", CategoryInsufficientAllowance},
		{"execution reverted: STF", CategoryInsufficientAllowance},
		{"insufficient funds for gas * price + value", CategoryInsufficientFunds},
		{"ERC20: transfer amount exceeds balance", CategoryInsufficientFunds},
		{"intrinsic gas too low", CategoryInsufficientGas},
		{"out of gas", CategoryInsufficientGas},
		{"Transaction too old", CategoryTimeout},
		{"deadline exceeded", CategoryTimeout},
		{"something novel went wrong", CategoryOther},
	}

	for _, tc := range cases {
		if got := Classify(errors.New(tc.msg)); got != tc.want {
			t.Fatalf("classify %q: got %s, want %s", tc.msg, got, tc.want)
		}
	}
	if got := Classify(nil); got != CategoryOther {
		t.Fatalf("nil error: got %s", got)
	}
}
