package tests

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/operation"
	"github.com/trezcool/shule/core/treasury"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

// runs before any operation has settled; every log reads empty
func Test_adminApi_retrieveDashboard(t *testing.T) {
	dash := echoapi.DashboardResponse{
		Account:       testutil.AdminAddr.Hex(),
		Profile:       profileFor(testutil.AdminAddr, access.RoleDefaultAdmin, access.RoleMasterAdmin),
		Paused:        false,
		BalanceWei:    big.NewInt(5000000),
		RoleOps:       []history.Entry{},
		StudentOps:    []history.Entry{},
		TreasuryOps:   []history.Entry{},
		RoleChecks:    []history.Entry{},
		TuitionChecks: []history.Entry{},
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, testutil.TeacherAddr, access.RoleTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "operator overview", token: getToken(t, testutil.AdminAddr, access.RoleDefaultAdmin, access.RoleMasterAdmin),
			wantCode: http.StatusOK, wantData: marchallObj(t, dash),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/admin/dashboard"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminApi_retrieveBalance(t *testing.T) {
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, testutil.StudentAddr, access.RoleStudent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "balance in wei", token: getToken(t, testutil.AdminAddr, access.RoleDefaultAdmin, access.RoleMasterAdmin),
			wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.BalanceResponse{BalanceWei: big.NewInt(5000000)}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/admin/treasury/balance"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminApi_withdraw(t *testing.T) {
	gw.Reset()
	if err := treasurySvc.WithdrawController().Reset(); err != nil {
		t.Fatalf("Reset(): %v", err)
	}
	emailsvc.SentMessages = nil // reset

	reqMsg := "this field is required"
	adminToken := getToken(t, testutil.AdminAddr, access.RoleDefaultAdmin, access.RoleMasterAdmin)
	withdrawPath := "/v1/admin/treasury/withdraw"

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, testutil.TeacherAddr, access.RoleTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": reqMsg, "to": reqMsg}),
		},
		{
			name: "invalid recipient", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, treasury.Withdraw{Amount: "1000", To: "lol"}),
			wantData: marchallObj(t, map[string]string{"to": "must be a valid address: 0x followed by 40 hex characters"}),
		},
		{
			name: "fractional amount", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, treasury.Withdraw{Amount: "12.5", To: testutil.TeacherAddr.Hex()}),
			wantData: marchallObj(t, map[string]string{"amount": "must be a whole number of wei"}),
		},
		{
			name: "negative amount", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, treasury.Withdraw{Amount: "-4", To: testutil.TeacherAddr.Hex()}),
			wantData: marchallObj(t, map[string]string{"amount": "must be greater than zero"}),
		},
		{
			name: "amount over balance", token: adminToken, wantCode: http.StatusConflict,
			body:     marchallObj(t, treasury.Withdraw{Amount: "6000000", To: testutil.TeacherAddr.Hex()}),
			wantData: marchallObj(t, httpErr{Error: "amount exceeds the treasury balance (5000000 wei)"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = withdrawPath

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the signing account must hold an admin role
	gw.StubReadValues("hasRole", false)
	rec := doRequest(t, http.MethodPost, withdrawPath, adminToken,
		marchallObj(t, treasury.Withdraw{Amount: "1000", To: testutil.TeacherAddr.Hex()}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "this account holds no admin role"}),
	}, rec)
	seedChain() // restore

	// full lifecycle; the ops mailbox hears about it
	snap := decodeSnapshot(t, doRequest(t, http.MethodPost, withdrawPath, adminToken,
		marchallObj(t, treasury.Withdraw{Amount: "1500000", To: testutil.TeacherAddr.Hex()})), http.StatusOK)
	if snap.State != operation.StateConfirm {
		t.Fatalf("failed! state = %v; want %v (error: %v)", snap.State, operation.StateConfirm, snap.Error)
	}
	wantLabel := fmt.Sprintf("Withdraw 1500000 wei to %s", chain.ShortAddr(testutil.TeacherAddr))
	if snap.Kind != treasury.KindWithdraw || snap.Label != wantLabel {
		t.Errorf("failed! kind = %v, label = %q; want %v, %q", snap.Kind, snap.Label, treasury.KindWithdraw, wantLabel)
	}
	if snap.Detail["amount"] != "1500000" || snap.Detail["to"] != testutil.TeacherAddr.Hex() {
		t.Errorf("failed! detail = %v", snap.Detail)
	}

	snap = decodeSnapshot(t, doRequest(t, http.MethodPost, withdrawPath+"/confirm", adminToken), http.StatusOK)
	if snap.State != operation.StateSucceeded {
		t.Fatalf("failed! state = %v; want %v (error: %v)", snap.State, operation.StateSucceeded, snap.Error)
	}
	if wantText := fmt.Sprintf("1500000 wei sent to %s", chain.ShortAddr(testutil.TeacherAddr)); snap.Banner == nil || snap.Banner.Text != wantText {
		t.Errorf("failed! banner = %v; want %q", snap.Banner, wantText)
	}

	calls := gw.WriteCalls()
	if len(calls) != 1 || calls[0].Method != "withdraw" {
		t.Fatalf("failed! calls = %+v; want one withdraw", calls)
	}
	if calls[0].Args[0].(*big.Int).String() != "1500000" || calls[0].Args[1].(common.Address) != testutil.TeacherAddr {
		t.Errorf("failed! args = %v", calls[0].Args)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != conf.OpsEmail || msg.Subject != "Emergency withdrawal completed" {
		t.Errorf("failed! To = %v, Subject = %q", msg.To, msg.Subject)
	}
	if !strings.Contains(msg.TextContent, "1500000") || !strings.Contains(msg.TextContent, snap.TxHash) {
		t.Errorf("failed! content does not carry the amount and tx hash:\n%s", msg.TextContent)
	}

	// a reverted withdrawal reports the failure instead
	emailsvc.SentMessages = nil // reset
	gw.RevertNextWrite()
	decodeSnapshot(t, doRequest(t, http.MethodPost, withdrawPath, adminToken,
		marchallObj(t, treasury.Withdraw{Amount: "1000", To: testutil.TeacherAddr.Hex()})), http.StatusOK)
	snap = decodeSnapshot(t, doRequest(t, http.MethodPost, withdrawPath+"/confirm", adminToken), http.StatusOK)
	if snap.State != operation.StateFailed || snap.ErrorClass != operation.ErrClassReverted {
		t.Fatalf("failed! state = %v (%v); want %v (%v)", snap.State, snap.ErrorClass, operation.StateFailed, operation.ErrClassReverted)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
	}
	msg = emailsvc.SentMessages[0]
	if msg.Subject != "Emergency withdrawal failed" {
		t.Errorf("failed! Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.TextContent, "transaction reverted on-chain") {
		t.Errorf("failed! content does not carry the error:\n%s", msg.TextContent)
	}

	// both outcomes are on record, newest first
	rec = doRequest(t, http.MethodGet, "/v1/admin/treasury/history", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	if len(entries) != 2 || entries[0].Succeeded || !entries[1].Succeeded {
		t.Fatalf("failed! entries = %+v; want a failure then a success", entries)
	}
	if entries[0].Detail["error_class"] != operation.ErrClassReverted {
		t.Errorf("failed! Detail = %v", entries[0].Detail)
	}
}

func Test_adminApi_pauseUnpause(t *testing.T) {
	gw.Reset()
	if err := treasurySvc.PauseController().Reset(); err != nil {
		t.Fatalf("Reset(): %v", err)
	}

	adminToken := getToken(t, testutil.AdminAddr, access.RoleDefaultAdmin, access.RoleMasterAdmin)
	pausePath := "/v1/admin/treasury/pause"
	unpausePath := "/v1/admin/treasury/unpause"

	// cannot lift a pause that is not on
	rec := doRequest(t, http.MethodPost, unpausePath, adminToken)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "the contract is not paused"}),
	}, rec)

	// pause and unpause drive one switch; a parked pause shows on both status
	// routes and blocks the other side
	snap := decodeSnapshot(t, doRequest(t, http.MethodPost, pausePath, adminToken), http.StatusOK)
	if snap.State != operation.StateConfirm || snap.Kind != treasury.KindPause || snap.Label != "Pause the contract" {
		t.Fatalf("failed! snapshot = %+v", snap)
	}
	snap = decodeSnapshot(t, doRequest(t, http.MethodGet, unpausePath+"/status", adminToken), http.StatusOK)
	if snap.State != operation.StateConfirm || snap.Kind != treasury.KindPause {
		t.Errorf("failed! snapshot = %+v; want the parked pause", snap)
	}
	rec = doRequest(t, http.MethodPost, pausePath, adminToken)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "another operation is in progress"}),
	}, rec)

	snap = decodeSnapshot(t, doRequest(t, http.MethodPost, pausePath+"/cancel", adminToken), http.StatusOK)
	if snap.State != operation.StateForm {
		t.Fatalf("failed! state = %v; want %v", snap.State, operation.StateForm)
	}

	// full pause lifecycle
	decodeSnapshot(t, doRequest(t, http.MethodPost, pausePath, adminToken), http.StatusOK)
	snap = decodeSnapshot(t, doRequest(t, http.MethodPost, pausePath+"/confirm", adminToken), http.StatusOK)
	if snap.State != operation.StateSucceeded {
		t.Fatalf("failed! state = %v; want %v (error: %v)", snap.State, operation.StateSucceeded, snap.Error)
	}
	if wantText := "Contract paused; registrations and attendance are on hold"; snap.Banner == nil || snap.Banner.Text != wantText {
		t.Errorf("failed! banner = %v; want %q", snap.Banner, wantText)
	}

	// the chain now reports the pause; only unpause passes its precheck
	gw.StubReadValues("paused", true)
	defer gw.StubReadValues("paused", false)

	rec = doRequest(t, http.MethodPost, pausePath, adminToken)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "the contract is already paused"}),
	}, rec)

	decodeSnapshot(t, doRequest(t, http.MethodPost, unpausePath, adminToken), http.StatusOK)
	snap = decodeSnapshot(t, doRequest(t, http.MethodPost, unpausePath+"/confirm", adminToken), http.StatusOK)
	if snap.State != operation.StateSucceeded {
		t.Fatalf("failed! state = %v; want %v (error: %v)", snap.State, operation.StateSucceeded, snap.Error)
	}
	if wantText := "Contract unpaused"; snap.Banner == nil || snap.Banner.Text != wantText {
		t.Errorf("failed! banner = %v; want %q", snap.Banner, wantText)
	}

	calls := gw.WriteCalls()
	if len(calls) != 2 || calls[0].Method != "pause" || calls[1].Method != "unpause" {
		t.Errorf("failed! calls = %+v; want pause then unpause", calls)
	}
}
