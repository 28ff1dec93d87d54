package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

func TestIsRevert(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: ErrReverted, want: true},
		{name: "wrapped sentinel", err: errors.Wrap(ErrReverted, "confirming"), want: true},
		{name: "revert with reason", err: &RevertError{Reason: "not admin"}, want: true},
		{name: "wrapped revert with reason", err: errors.Wrap(&RevertError{Reason: "paused"}, "submitting"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRevert(tt.err); got != tt.want {
				t.Errorf("IsRevert() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestRevertError_Error(t *testing.T) {
	if got, want := (&RevertError{}).Error(), "execution reverted"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
	if got, want := (&RevertError{Reason: "not admin"}).Error(), "execution reverted: not admin"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
}

func TestReceipt_Succeeded(t *testing.T) {
	if (Receipt{Status: ReceiptStatusFailed}).Succeeded() {
		t.Error("Succeeded() = true for a failed receipt")
	}
	if !(Receipt{Status: ReceiptStatusSuccessful}).Succeeded() {
		t.Error("Succeeded() = false for a successful receipt")
	}
}

func TestOutputCoercion(t *testing.T) {
	addr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	out := []interface{}{true, big.NewInt(42), addr, "hello"}

	if !Bool(out, 0) {
		t.Error("Bool(out, 0) = false; want true")
	}
	if got := BigInt(out, 1); got.Int64() != 42 {
		t.Errorf("BigInt(out, 1) = %v; want 42", got)
	}
	if got := Address(out, 2); got != addr {
		t.Errorf("Address(out, 2) = %v; want %v", got, addr)
	}
	if got := String(out, 3); got != "hello" {
		t.Errorf("String(out, 3) = %q; want %q", got, "hello")
	}

	// out of range and type mismatches fall back to zero values
	if Bool(out, 9) {
		t.Error("Bool(out, 9) = true; want false")
	}
	if got := BigInt(out, 0); got == nil || got.Sign() != 0 {
		t.Errorf("BigInt(out, 0) = %v; want 0", got)
	}
	if got := String(out, 1); got != "" {
		t.Errorf("String(out, 1) = %q; want empty", got)
	}
	if got := Address(out, 9); got != (common.Address{}) {
		t.Errorf("Address(out, 9) = %v; want zero", got)
	}
}

func TestShortAddr(t *testing.T) {
	addr := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if got, want := ShortAddr(addr), "0xf39F…2266"; got != want {
		t.Errorf("ShortAddr() = %q; want %q", got, want)
	}
}
