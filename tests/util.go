package testutil

import (
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tuition"
	logsvc "github.com/trezcool/shule/services/logger"
	dummychain "github.com/trezcool/shule/storage/chain/dummy"
)

// Well-known dev accounts shared across tests.
var (
	AdminAddr   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	TeacherAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	StudentAddr = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	OtherAddr   = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

// NewConfig returns settings for tests: test mode on, reporting off, short
// expiries. WorkDir points at the project root so asset templates resolve.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		WorkDir:          core.Getwd(),
		AppName:          "Shule",
		SecretKey:        "secret",
		DefaultFromEmail: "noreply@test.shule.cd",
		OpsEmail:         "ops@test.shule.cd",
		FrontendBaseURL:  "http://localhost:3000",
		Server: core.ServerConfig{
			Host:                       "127.0.0.1:8000",
			DebugHost:                  "127.0.0.1:4000",
			ShutdownTimeout:            5 * time.Second,
			JWTExpirationDelta:         10 * time.Minute,
			JWTRefreshExpirationDelta:  time.Hour,
			LoginChallengeTimeoutDelta: 5 * time.Minute,
		},
		Chain: core.ChainConfig{
			ChainID:             1337,
			ReceiptTimeout:      5 * time.Second,
			ReceiptPollInterval: 10 * time.Millisecond,
			ReadPollInterval:    time.Second,
		},
	}
}

// NewLogger returns a logger with error reporting disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

// NewValidators returns a validator and translator with all app rules registered.
func NewValidators() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	access.InitValidators(validate, translator)
	return validate, translator
}

// Seed scripts a dummy gateway with a coherent school state. Zero values
// read back as the contract would return them for unknown accounts.
type Seed struct {
	Roles      map[string][]common.Address // role name -> holders
	Students   []student.Info              // enrolled records
	Attendance map[common.Address]int64    // sessions attended
	Tuition    map[common.Address]tuition.Status
	Fees       map[int64]*big.Int // term -> fee in wei
	Balance    *big.Int           // treasury balance in wei
	Paused     bool
}

func (s Seed) Apply(gw *dummychain.Gateway) {
	gw.StubRead("hasRole", func(args ...interface{}) ([]interface{}, error) {
		roleID := args[0].(common.Hash)
		account := args[1].(common.Address)
		for name, holders := range s.Roles {
			role, ok := access.RoleByName(name)
			if !ok || role.ID != roleID {
				continue
			}
			for _, holder := range holders {
				if holder == account {
					return []interface{}{true}, nil
				}
			}
		}
		return []interface{}{false}, nil
	})

	gw.StubRead("getStudent", func(args ...interface{}) ([]interface{}, error) {
		account := args[0].(common.Address)
		for _, info := range s.Students {
			if common.HexToAddress(info.Address) != account {
				continue
			}
			reputation := info.Reputation
			if reputation == nil {
				reputation = big.NewInt(0)
			}
			return []interface{}{info.FullName, big.NewInt(info.ProgramID), big.NewInt(info.Term), info.Active, reputation}, nil
		}
		return []interface{}{"", big.NewInt(0), big.NewInt(0), false, big.NewInt(0)}, nil
	})

	gw.StubRead("attendanceOf", func(args ...interface{}) ([]interface{}, error) {
		account := args[0].(common.Address)
		return []interface{}{big.NewInt(s.Attendance[account])}, nil
	})

	gw.StubRead("tuitionStatus", func(args ...interface{}) ([]interface{}, error) {
		account := args[0].(common.Address)
		status, ok := s.Tuition[account]
		if !ok {
			return []interface{}{false, big.NewInt(0), big.NewInt(0)}, nil
		}
		amountDue := status.AmountDue
		if amountDue == nil {
			amountDue = big.NewInt(0)
		}
		return []interface{}{status.Paid, big.NewInt(status.DueDate.Unix()), amountDue}, nil
	})

	gw.StubRead("tuitionFee", func(args ...interface{}) ([]interface{}, error) {
		term := args[0].(*big.Int)
		fee, ok := s.Fees[term.Int64()]
		if !ok {
			fee = big.NewInt(0)
		}
		return []interface{}{fee}, nil
	})

	gw.StubRead("treasuryBalance", func(args ...interface{}) ([]interface{}, error) {
		balance := s.Balance
		if balance == nil {
			balance = big.NewInt(0)
		}
		return []interface{}{balance}, nil
	})

	gw.StubReadValues("paused", s.Paused)
}
