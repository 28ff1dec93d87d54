package student

import (
	"context"
	"fmt"
	"math/big"
	"net/mail"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/operation"
)

// Operation kinds
const (
	KindRegister      = "register_student"
	KindBatchRegister = "register_students"
	KindAttendance    = "mark_attendance"
	KindReputation    = "update_reputation"
)

var welcomeTmpl = "welcome"

type Service struct {
	gw      chain.Gateway
	mailSvc core.EmailService
	conf    *core.Config
	logger  core.Logger

	registerCtl   *operation.Controller
	batchCtl      *operation.Controller
	attendCtl     *operation.Controller
	reputationCtl *operation.Controller
	opLog         *history.List
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
	svc.registerCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog, OnDone: svc.onRegistered})
	svc.batchCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	svc.attendCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	svc.reputationCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	return svc
}

// InfoOf reads a student's on-chain record. ErrNotRegistered is returned
// for addresses the contract has never seen.
func (svc *Service) InfoOf(ctx context.Context, account common.Address) (Info, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "getStudent", account); err != nil {
		return Info{}, errors.Wrapf(err, "reading getStudent(%s)", account.Hex())
	}
	info := Info{
		Address:    account.Hex(),
		FullName:   chain.String(out, 0),
		ProgramID:  chain.BigInt(out, 1).Int64(),
		Term:       chain.BigInt(out, 2).Int64(),
		Active:     chain.Bool(out, 3),
		Reputation: chain.BigInt(out, 4),
	}
	if info.FullName == "" && !info.Active {
		return Info{}, ErrNotRegistered
	}
	return info, nil
}

// AttendanceOf reads how many sessions a student has attended.
func (svc *Service) AttendanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "attendanceOf", account); err != nil {
		return nil, errors.Wrapf(err, "reading attendanceOf(%s)", account.Hex())
	}
	return chain.BigInt(out, 0), nil
}

// BeginRegister prechecks a single enrollment and parks it for confirmation.
func (svc *Service) BeginRegister(ctx context.Context, reg Registration) error {
	addr := common.HexToAddress(reg.Address)

	detail := map[string]string{
		"address":    addr.Hex(),
		"full_name":  reg.FullName,
		"program_id": strconv.FormatInt(reg.ProgramID, 10),
		"term":       strconv.FormatInt(reg.Term, 10),
	}
	if reg.Email != "" {
		detail["email"] = reg.Email
	}

	def := operation.Definition{
		Kind:        KindRegister,
		Label:       fmt.Sprintf("Register %s (%s)", reg.FullName, chain.ShortAddr(addr)),
		Detail:      detail,
		SuccessText: fmt.Sprintf("%s registered in program %d", reg.FullName, reg.ProgramID),
		Precheck: func(ctx context.Context) error {
			if err := svc.ensureNotPaused(ctx); err != nil {
				return err
			}
			return svc.ensureNotRegistered(ctx, addr)
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "registerStudent", addr, reg.FullName, big.NewInt(reg.ProgramID), big.NewInt(reg.Term))
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.registerCtl.Begin(ctx, def)
}

// BeginBatchRegister prechecks a whole batch and parks it for confirmation.
// One transaction enrolls them all; if any student fails the precheck the
// batch stays on the form.
func (svc *Service) BeginBatchRegister(ctx context.Context, b Batch) error {
	students := make([]Registration, len(b.Students))
	copy(students, b.Students)

	def := operation.Definition{
		Kind:        KindBatchRegister,
		Label:       fmt.Sprintf("Register %d students", len(students)),
		Detail:      map[string]string{"count": strconv.Itoa(len(students))},
		SuccessText: fmt.Sprintf("%d students registered", len(students)),
		Precheck: func(ctx context.Context) error {
			if err := svc.ensureNotPaused(ctx); err != nil {
				return err
			}
			for i, reg := range students {
				addr := common.HexToAddress(reg.Address)
				if err := svc.ensureNotRegistered(ctx, addr); err != nil {
					if core.IsPrecheckError(err) {
						return core.NewPrecheckError(fmt.Sprintf("students[%d]: %v", i, err))
					}
					return err
				}
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			addrs := make([]common.Address, len(students))
			names := make([]string, len(students))
			programs := make([]*big.Int, len(students))
			terms := make([]*big.Int, len(students))
			for i, reg := range students {
				addrs[i] = common.HexToAddress(reg.Address)
				names[i] = reg.FullName
				programs[i] = big.NewInt(reg.ProgramID)
				terms[i] = big.NewInt(reg.Term)
			}
			return svc.gw.Write(ctx, "registerStudents", addrs, names, programs, terms)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.batchCtl.Begin(ctx, def)
}

// BeginMarkAttendance prechecks marking a student present and parks it for
// confirmation.
func (svc *Service) BeginMarkAttendance(ctx context.Context, att Attendance) error {
	addr := common.HexToAddress(att.Address)

	def := operation.Definition{
		Kind:        KindAttendance,
		Label:       fmt.Sprintf("Mark %s present for %s", chain.ShortAddr(addr), att.SessionID),
		Detail:      map[string]string{"address": addr.Hex(), "session_id": att.SessionID},
		SuccessText: fmt.Sprintf("Attendance recorded for %s", chain.ShortAddr(addr)),
		Precheck: func(ctx context.Context) error {
			info, err := svc.InfoOf(ctx, addr)
			if err == ErrNotRegistered {
				return core.NewPrecheckError(fmt.Sprintf("%s is not a registered student", chain.ShortAddr(addr)))
			}
			if err != nil {
				return errors.Wrap(err, "prechecking attendance")
			}
			if !info.Active {
				return core.NewPrecheckError(fmt.Sprintf("%s is inactive", chain.ShortAddr(addr)))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "markAttendance", addr, att.SessionID)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.attendCtl.Begin(ctx, def)
}

// BeginUpdateReputation prechecks awarding reputation points and parks it
// for confirmation.
func (svc *Service) BeginUpdateReputation(ctx context.Context, rep Reputation) error {
	addr := common.HexToAddress(rep.Address)

	def := operation.Definition{
		Kind:        KindReputation,
		Label:       fmt.Sprintf("Award %d points to %s", rep.Points, chain.ShortAddr(addr)),
		Detail:      map[string]string{"address": addr.Hex(), "points": strconv.FormatInt(rep.Points, 10)},
		SuccessText: fmt.Sprintf("%d points awarded to %s", rep.Points, chain.ShortAddr(addr)),
		Precheck: func(ctx context.Context) error {
			info, err := svc.InfoOf(ctx, addr)
			if err == ErrNotRegistered {
				return core.NewPrecheckError(fmt.Sprintf("%s is not a registered student", chain.ShortAddr(addr)))
			}
			if err != nil {
				return errors.Wrap(err, "prechecking reputation update")
			}
			if !info.Active {
				return core.NewPrecheckError(fmt.Sprintf("%s is inactive", chain.ShortAddr(addr)))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "updateReputation", addr, big.NewInt(rep.Points))
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.reputationCtl.Begin(ctx, def)
}

func (svc *Service) ensureNotPaused(ctx context.Context) error {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "paused"); err != nil {
		return errors.Wrap(err, "reading paused")
	}
	if chain.Bool(out, 0) {
		return core.NewPrecheckError("the contract is paused; try again later")
	}
	return nil
}

func (svc *Service) ensureNotRegistered(ctx context.Context, addr common.Address) error {
	info, err := svc.InfoOf(ctx, addr)
	if err == ErrNotRegistered {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "prechecking registration")
	}
	if info.Active {
		return core.NewPrecheckError(fmt.Sprintf("%s is already registered", chain.ShortAddr(addr)))
	}
	return nil
}

// onRegistered welcomes the new student by email once their registration
// confirms, when an email address was provided.
func (svc *Service) onRegistered(entry history.Entry) {
	if !entry.Succeeded || svc.mailSvc == nil {
		return
	}
	email := entry.Detail["email"]
	if email == "" {
		return
	}
	svc.sendWelcomeMail(entry.Detail["full_name"], email, entry.Detail["program_id"])
}

func (svc *Service) sendWelcomeMail(name, email, program string) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: welcomeTmpl,
		TemplateData: struct {
			Name    string
			Program string
		}{name, program},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) RegisterController() *operation.Controller   { return svc.registerCtl }
func (svc *Service) BatchController() *operation.Controller      { return svc.batchCtl }
func (svc *Service) AttendanceController() *operation.Controller { return svc.attendCtl }
func (svc *Service) ReputationController() *operation.Controller { return svc.reputationCtl }

// OpHistory lists settled student operations, newest first.
func (svc *Service) OpHistory() []history.Entry {
	return svc.opLog.Entries()
}
