package gethchain

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func Test_schoolABI_parses(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(schoolABI))
	if err != nil {
		t.Fatalf("abi.JSON() error = %v", err)
	}

	methods := []string{
		"hasRole", "grantRole", "revokeRole", "renounceRole",
		"registerStudent", "registerStudents", "markAttendance", "updateReputation", "getStudent", "attendanceOf",
		"tuitionStatus", "tuitionFee",
		"treasuryBalance", "paused", "pause", "unpause", "withdraw",
	}
	for _, method := range methods {
		if _, ok := parsed.Methods[method]; !ok {
			t.Errorf("method %q missing from abi", method)
		}
	}
}

func Test_asRevert(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantOK     bool
		wantReason string
	}{
		{name: "revert with reason", err: errors.New("execution reverted: not admin"), wantOK: true, wantReason: "not admin"},
		{name: "bare revert", err: errors.New("execution reverted"), wantOK: true, wantReason: ""},
		{name: "nested in rpc error", err: errors.New("rpc error: execution reverted: contract is paused"), wantOK: true, wantReason: "contract is paused"},
		{name: "unrelated error", err: errors.New("connection refused"), wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rerr, ok := asRevert(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("asRevert() ok = %v; want %v", ok, tt.wantOK)
			}
			if ok && rerr.Reason != tt.wantReason {
				t.Errorf("Reason = %q; want %q", rerr.Reason, tt.wantReason)
			}
		})
	}
}
