package treasury

import (
	"context"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/operation"
	"github.com/trezcool/shule/core/reader"
)

// Operation kinds
const (
	KindWithdraw = "withdraw"
	KindPause    = "pause"
	KindUnpause  = "unpause"
)

// BalancePollInterval is how often the balance reader refreshes.
const BalancePollInterval = 15 * time.Second

var withdrawalTmpl = "withdrawal-notice"

type Service struct {
	gw      chain.Gateway
	mailSvc core.EmailService
	conf    *core.Config
	logger  core.Logger

	withdrawCtl *operation.Controller
	pauseCtl    *operation.Controller
	opLog       *history.List
}

func NewService(gw chain.Gateway, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	opLog := history.NewList(history.DefaultCap)
	svc := &Service{
		gw:      gw,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
		opLog:   opLog,
	}
	svc.withdrawCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog, OnDone: svc.onWithdrawal})
	// pause and unpause are two faces of one switch; they share a controller
	svc.pauseCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	return svc
}

// Balance reads the treasury balance in wei.
func (svc *Service) Balance(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "treasuryBalance"); err != nil {
		return nil, errors.Wrap(err, "reading treasuryBalance")
	}
	return chain.BigInt(out, 0), nil
}

// Paused reads the contract's emergency pause flag.
func (svc *Service) Paused(ctx context.Context) (bool, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "paused"); err != nil {
		return false, errors.Wrap(err, "reading paused")
	}
	return chain.Bool(out, 0), nil
}

// NewBalanceReader builds a poller that keeps the treasury balance fresh.
func (svc *Service) NewBalanceReader() *reader.Reader {
	return reader.NewReader(reader.Deps{
		Name: "treasury balance",
		Fetch: func(ctx context.Context) (interface{}, error) {
			return svc.Balance(ctx)
		},
		Interval: BalancePollInterval,
		Logger:   svc.logger,
	})
}

// BeginWithdraw prechecks an emergency withdrawal and parks it for
// confirmation. It cannot be cancelled once submitted.
func (svc *Service) BeginWithdraw(ctx context.Context, w Withdraw) error {
	amount, err := w.AmountWei()
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: err.Error()})
	}
	to := common.HexToAddress(w.To)

	def := operation.Definition{
		Kind:        KindWithdraw,
		Label:       fmt.Sprintf("Withdraw %s wei to %s", amount, chain.ShortAddr(to)),
		Detail:      map[string]string{"amount": amount.String(), "to": to.Hex()},
		SuccessText: fmt.Sprintf("%s wei sent to %s", amount, chain.ShortAddr(to)),
		Precheck: func(ctx context.Context) error {
			if err := svc.ensureAdmin(ctx); err != nil {
				return err
			}
			balance, err := svc.Balance(ctx)
			if err != nil {
				return errors.Wrap(err, "prechecking withdrawal")
			}
			if amount.Cmp(balance) > 0 {
				return core.NewPrecheckError(fmt.Sprintf("amount exceeds the treasury balance (%s wei)", balance))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "withdraw", amount, to)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.withdrawCtl.Begin(ctx, def)
}

// BeginPause prechecks halting the contract and parks it for confirmation.
func (svc *Service) BeginPause(ctx context.Context) error {
	def := operation.Definition{
		Kind:        KindPause,
		Label:       "Pause the contract",
		SuccessText: "Contract paused; registrations and attendance are on hold",
		Precheck: func(ctx context.Context) error {
			if err := svc.ensureAdmin(ctx); err != nil {
				return err
			}
			paused, err := svc.Paused(ctx)
			if err != nil {
				return errors.Wrap(err, "prechecking pause")
			}
			if paused {
				return core.NewPrecheckError("the contract is already paused")
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "pause")
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.pauseCtl.Begin(ctx, def)
}

// BeginUnpause prechecks lifting the pause and parks it for confirmation.
func (svc *Service) BeginUnpause(ctx context.Context) error {
	def := operation.Definition{
		Kind:        KindUnpause,
		Label:       "Unpause the contract",
		SuccessText: "Contract unpaused",
		Precheck: func(ctx context.Context) error {
			if err := svc.ensureAdmin(ctx); err != nil {
				return err
			}
			paused, err := svc.Paused(ctx)
			if err != nil {
				return errors.Wrap(err, "prechecking unpause")
			}
			if !paused {
				return core.NewPrecheckError("the contract is not paused")
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "unpause")
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.pauseCtl.Begin(ctx, def)
}

// ensureAdmin checks that the signing account holds an admin role; the
// contract would reject the write anyway, this just fails it early with a
// readable reason.
func (svc *Service) ensureAdmin(ctx context.Context) error {
	self := svc.gw.Account()
	for _, name := range []string{access.RoleDefaultAdmin, access.RoleMasterAdmin} {
		role, _ := access.RoleByName(name)
		var out []interface{}
		if err := svc.gw.Read(ctx, &out, "hasRole", role.ID, self); err != nil {
			return errors.Wrap(err, "prechecking admin role")
		}
		if chain.Bool(out, 0) {
			return nil
		}
	}
	return core.NewPrecheckError("this account holds no admin role")
}

// onWithdrawal reports the outcome of an emergency withdrawal to the ops
// mailbox, success or failure.
func (svc *Service) onWithdrawal(entry history.Entry) {
	if svc.mailSvc == nil || svc.conf.OpsEmail == "" {
		return
	}
	subject := "Emergency withdrawal failed"
	if entry.Succeeded {
		subject = "Emergency withdrawal completed"
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: svc.conf.OpsEmail}},
		Subject:      subject,
		TemplateName: withdrawalTmpl,
		TemplateData: struct {
			Amount    string
			To        string
			TxHash    string
			Succeeded bool
			Error     string
		}{entry.Detail["amount"], entry.Detail["to"], entry.TxHash, entry.Succeeded, entry.Error},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) WithdrawController() *operation.Controller { return svc.withdrawCtl }
func (svc *Service) PauseController() *operation.Controller    { return svc.pauseCtl }

// OpHistory lists settled treasury operations, newest first.
func (svc *Service) OpHistory() []history.Entry {
	return svc.opLog.Entries()
}

// Account is the address signing treasury operations.
func (svc *Service) Account() common.Address { return svc.gw.Account() }
