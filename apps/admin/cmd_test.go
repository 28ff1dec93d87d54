package main

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/operation"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/treasury"
	emailsvc "github.com/trezcool/shule/services/email"
	dummychain "github.com/trezcool/shule/storage/chain/dummy"
	testutil "github.com/trezcool/shule/tests"
)

var gw *dummychain.Gateway

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, _ := testutil.NewValidators()

	core.ParseEmailTemplates(conf, logger)

	// set up a scripted chain; the signing account is the admin wallet
	gw = dummychain.Open(testutil.AdminAddr)
	testutil.Seed{
		Roles: map[string][]common.Address{
			access.RoleDefaultAdmin: {testutil.AdminAddr},
			access.RoleMasterAdmin:  {testutil.AdminAddr},
			access.RoleTeacher:      {testutil.TeacherAddr},
			access.RoleStudent:      {testutil.StudentAddr},
		},
		Students: []student.Info{
			{Address: testutil.StudentAddr.Hex(), FullName: "Jane Kabila", ProgramID: 101, Term: 2, Active: true},
		},
		Balance: big.NewInt(5000000),
	}.Apply(gw)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	// start CLI
	return &commandLine{
		conf:        conf,
		validate:    validate,
		accessSvc:   access.NewService(gw, conf, logger),
		studentSvc:  student.NewService(gw, mailSvc, conf, logger),
		treasurySvc: treasury.NewService(gw, mailSvc, conf, logger),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func checkCliErr(t *testing.T, tt cliTest, err error) {
	t.Helper()

	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
	}
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "grantrole: no args", args: []string{"grantrole"}, wantErr: errHelp},
		{name: "grantrole: role but no address", args: []string{"grantrole", "-role", "TEACHER_ROLE"}, wantErr: errHelp},
		{name: "revokerole: no args", args: []string{"revokerole"}, wantErr: errHelp},
		{name: "renouncerole: no args", args: []string{"renouncerole"}, wantErr: errHelp},
		{name: "checkrole: no args", args: []string{"checkrole"}, wantErr: errHelp},
		{name: "register: no args", args: []string{"register"}, wantErr: errHelp},
		{name: "register: missing term", args: []string{"register", "-address", testutil.OtherAddr.Hex(), "-name", "Amani", "-program", "101"}, wantErr: errHelp},
		{name: "withdraw: no args", args: []string{"withdraw"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	if calls := gw.WriteCalls(); len(calls) != 0 {
		t.Errorf("cli.run() wrote %+v; want none", calls)
	}
}

func Test_commandLine_checkRole(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "held role", args: []string{"checkrole", "-role", "TEACHER_ROLE", "-address", testutil.TeacherAddr.Hex()}},
		{name: "unheld role", args: []string{"checkrole", "-role", "STUDENT_ROLE", "-address", testutil.TeacherAddr.Hex()}},
		{name: "unknown wallet", args: []string{"checkrole", "-role", "STUDENT_ROLE", "-address", testutil.OtherAddr.Hex()}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_grantRole(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{
			name: "already held", args: []string{"grantrole", "-role", "MASTER_ADMIN_ROLE", "-address", testutil.AdminAddr.Hex(), "-yes"},
			wantErrStr: fmt.Sprintf("%s already holds MASTER_ADMIN_ROLE", chain.ShortAddr(testutil.AdminAddr)),
		},
		{name: "dry run without -yes", args: []string{"grantrole", "-role", "TEACHER_ROLE", "-address", testutil.OtherAddr.Hex()}},
		{name: "submitted with -yes", args: []string{"grantrole", "-role", "TEACHER_ROLE", "-address", testutil.OtherAddr.Hex(), "-yes"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	// only the -yes run reached the chain
	role, _ := access.RoleByName("TEACHER_ROLE")
	calls := gw.WriteCalls()
	if len(calls) != 1 || calls[0].Method != "grantRole" {
		t.Fatalf("calls = %+v; want one grantRole", calls)
	}
	if calls[0].Args[0].(common.Hash) != role.ID || calls[0].Args[1].(common.Address) != testutil.OtherAddr {
		t.Errorf("args = %v", calls[0].Args)
	}
	if state := cli.accessSvc.GrantController().Snapshot().State; state != operation.StateSucceeded {
		t.Errorf("state = %v; want %v", state, operation.StateSucceeded)
	}
}

func Test_commandLine_revokeRole(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{
			name: "not held", args: []string{"revokerole", "-role", "STUDENT_ROLE", "-address", testutil.TeacherAddr.Hex(), "-yes"},
			wantErrStr: fmt.Sprintf("%s does not hold STUDENT_ROLE", chain.ShortAddr(testutil.TeacherAddr)),
		},
		{
			name: "reverted on-chain", args: []string{"revokerole", "-role", "TEACHER_ROLE", "-address", testutil.TeacherAddr.Hex(), "-yes"},
			wantErr: chain.ErrReverted,
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		if tt.wantErr == chain.ErrReverted {
			gw.RevertNextWrite()
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_renounceRole(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{
			name: "not held", args: []string{"renouncerole", "-role", "TEACHER_ROLE", "-yes"},
			wantErrStr: "this account does not hold TEACHER_ROLE",
		},
		{name: "renounced", args: []string{"renouncerole", "-role", "MASTER_ADMIN_ROLE", "-yes"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	role, _ := access.RoleByName("MASTER_ADMIN_ROLE")
	calls := gw.WriteCalls()
	if len(calls) != 1 || calls[0].Method != "renounceRole" {
		t.Fatalf("calls = %+v; want one renounceRole", calls)
	}
	if calls[0].Args[0].(common.Hash) != role.ID || calls[0].Args[1].(common.Address) != testutil.AdminAddr {
		t.Errorf("args = %v", calls[0].Args)
	}
}

func Test_commandLine_register(t *testing.T) {
	cli := setup(t)
	emailsvc.SentMessages = nil // reset

	tests := []cliTest{
		{
			name: "already registered",
			args: []string{"register", "-address", testutil.StudentAddr.Hex(), "-name", "Jane Kabila", "-program", "101", "-term", "2", "-yes"},
			wantErrStr: fmt.Sprintf("%s is already registered", chain.ShortAddr(testutil.StudentAddr)),
		},
		{
			name: "registered with a welcome email",
			args: []string{"register", "-address", testutil.OtherAddr.Hex(), "-name", "Amani Mwamba", "-email", "amani@test.shule.cd", "-program", "101", "-term", "1", "-yes"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	calls := gw.WriteCalls()
	if len(calls) != 1 || calls[0].Method != "registerStudent" {
		t.Fatalf("calls = %+v; want one registerStudent", calls)
	}
	if len(emailsvc.SentMessages) != 1 || emailsvc.SentMessages[0].Subject != "Welcome to Shule" {
		t.Errorf("SentMessages = %+v; want one welcome email", emailsvc.SentMessages)
	}
}

func Test_commandLine_treasury(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{
			name: "withdraw: amount over balance", args: []string{"withdraw", "-amount", "6000000", "-to", testutil.TeacherAddr.Hex(), "-yes"},
			wantErrStr: "amount exceeds the treasury balance (5000000 wei)",
		},
		{name: "withdraw: dry run without -yes", args: []string{"withdraw", "-amount", "1500000", "-to", testutil.TeacherAddr.Hex()}},
		{name: "withdraw: submitted with -yes", args: []string{"withdraw", "-amount", "1500000", "-to", testutil.TeacherAddr.Hex(), "-yes"}},
		{name: "unpause: not paused", args: []string{"unpause", "-yes"}, wantErrStr: "the contract is not paused"},
		{name: "pause: submitted with -yes", args: []string{"pause", "-yes"}},
		{name: "status", args: []string{"status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCliErr(t, tt, cli.run(args))
		})
	}

	calls := gw.WriteCalls()
	if len(calls) != 2 || calls[0].Method != "withdraw" || calls[1].Method != "pause" {
		t.Fatalf("calls = %+v; want withdraw then pause", calls)
	}
	if calls[0].Args[0].(*big.Int).String() != "1500000" || calls[0].Args[1].(common.Address) != testutil.TeacherAddr {
		t.Errorf("args = %v", calls[0].Args)
	}
}
