package tuition

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/reader"
)

const (
	KindTuitionCheck = "tuition_check"

	// CheckHistoryCap bounds the checker's recent-checks log.
	CheckHistoryCap = 5

	// StatusPollInterval is how often a status reader refreshes.
	StatusPollInterval = 30 * time.Second
)

type Service struct {
	gw     chain.Gateway
	conf   *core.Config
	logger core.Logger

	checkLog *history.List
}

func NewService(gw chain.Gateway, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		gw:       gw,
		conf:     conf,
		logger:   logger,
		checkLog: history.NewList(CheckHistoryCap),
	}
}

// StatusOf reads a student's tuition standing for a term.
func (svc *Service) StatusOf(ctx context.Context, account common.Address, term int64) (Status, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "tuitionStatus", account, big.NewInt(term)); err != nil {
		return Status{}, errors.Wrapf(err, "reading tuitionStatus(%s, %d)", account.Hex(), term)
	}
	return Status{
		Address:   account.Hex(),
		Term:      term,
		Paid:      chain.Bool(out, 0),
		DueDate:   time.Unix(chain.BigInt(out, 1).Int64(), 0).UTC(),
		AmountDue: chain.BigInt(out, 2),
	}, nil
}

// Check performs a tuition check and records it in the checker's log.
func (svc *Service) Check(ctx context.Context, c Check) (Status, error) {
	addr := common.HexToAddress(c.Address)
	status, err := svc.StatusOf(ctx, addr, c.Term)
	if err != nil {
		return Status{}, err
	}
	svc.checkLog.Push(history.Entry{
		Kind:      KindTuitionCheck,
		Label:     fmt.Sprintf("%s term %d: %s", chain.ShortAddr(addr), c.Term, status.Deadline().Label),
		Succeeded: true,
		Detail: map[string]string{
			"address": addr.Hex(),
			"term":    strconv.FormatInt(c.Term, 10),
			"paid":    strconv.FormatBool(status.Paid),
		},
	})
	return status, nil
}

// CheckHistory lists recent tuition checks, newest first.
func (svc *Service) CheckHistory() []history.Entry {
	return svc.checkLog.Entries()
}

// Fee reads the fee schedule for a term.
func (svc *Service) Fee(ctx context.Context, term int64) (*big.Int, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "tuitionFee", big.NewInt(term)); err != nil {
		return nil, errors.Wrapf(err, "reading tuitionFee(%d)", term)
	}
	return chain.BigInt(out, 0), nil
}

// NewStatusReader builds a poller that keeps one student's standing fresh.
// It reads directly and leaves no trace in the check history.
func (svc *Service) NewStatusReader(account common.Address, term int64) *reader.Reader {
	return reader.NewReader(reader.Deps{
		Name: fmt.Sprintf("tuition %s term %d", chain.ShortAddr(account), term),
		Fetch: func(ctx context.Context) (interface{}, error) {
			return svc.StatusOf(ctx, account, term)
		},
		Interval: StatusPollInterval,
		Logger:   svc.logger,
	})
}
