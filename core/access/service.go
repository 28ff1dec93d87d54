package access

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/chain"
	"github.com/trezcool/shule/core/history"
	"github.com/trezcool/shule/core/operation"
)

// Operation kinds
const (
	KindGrantRole    = "grant_role"
	KindRevokeRole   = "revoke_role"
	KindRenounceRole = "renounce_role"
	KindRoleCheck    = "role_check"
)

// CheckHistoryCap bounds the role checker's recent-checks log.
const CheckHistoryCap = 5

type Service struct {
	gw     chain.Gateway
	conf   *core.Config
	logger core.Logger

	grantCtl    *operation.Controller
	revokeCtl   *operation.Controller
	renounceCtl *operation.Controller
	opLog       *history.List
	checkLog    *history.List
}

func NewService(gw chain.Gateway, conf *core.Config, logger core.Logger) *Service {
	// the three role operations share one outcome log
	opLog := history.NewList(history.DefaultCap)
	svc := &Service{
		gw:       gw,
		conf:     conf,
		logger:   logger,
		opLog:    opLog,
		checkLog: history.NewList(CheckHistoryCap),
	}
	svc.grantCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	svc.revokeCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	svc.renounceCtl = operation.NewController(operation.Deps{Logger: logger, History: opLog})
	return svc
}

// HasRole reads the contract to check whether account holds role.
// Every role query in the app funnels through here.
func (svc *Service) HasRole(ctx context.Context, role Role, account common.Address) (bool, error) {
	var out []interface{}
	if err := svc.gw.Read(ctx, &out, "hasRole", role.ID, account); err != nil {
		return false, errors.Wrapf(err, "reading hasRole(%s, %s)", role.Name, account.Hex())
	}
	return chain.Bool(out, 0), nil
}

// Check performs a role check and records it in the checker's log.
func (svc *Service) Check(ctx context.Context, cr CheckRole) (CheckResult, error) {
	role, ok := RoleByName(cr.Role)
	if !ok {
		return CheckResult{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: knownRoleText})
	}
	addr := common.HexToAddress(cr.Address)

	held, err := svc.HasRole(ctx, role, addr)
	if err != nil {
		return CheckResult{}, err
	}

	verdict := "does not hold"
	if held {
		verdict = "holds"
	}
	svc.checkLog.Push(history.Entry{
		Kind:      KindRoleCheck,
		Label:     fmt.Sprintf("%s %s %s", chain.ShortAddr(addr), verdict, role.Name),
		Succeeded: true,
		Detail:    map[string]string{"address": addr.Hex(), "role": role.Name, "held": fmt.Sprintf("%t", held)},
	})
	return CheckResult{Address: addr.Hex(), Role: role.Name, Held: held}, nil
}

// CheckHistory lists recent role checks, newest first.
func (svc *Service) CheckHistory() []history.Entry {
	return svc.checkLog.Entries()
}

// ProfileOf resolves an account's standing across all contract roles.
func (svc *Service) ProfileOf(ctx context.Context, account common.Address) (Profile, error) {
	profile := Profile{
		Address: account.Hex(),
		Roles:   make([]RoleStatus, 0, len(AllRoles)),
	}
	for _, role := range AllRoles {
		held, err := svc.HasRole(ctx, role, account)
		if err != nil {
			return Profile{}, err
		}
		profile.Roles = append(profile.Roles, RoleStatus{Role: role, Held: held})
		if held {
			switch role.Name {
			case RoleDefaultAdmin, RoleMasterAdmin:
				profile.IsAdmin = true
			case RoleTeacher:
				profile.IsTeacher = true
			case RoleStudent:
				profile.IsStudent = true
			}
		}
	}
	return profile, nil
}

// BeginGrant prechecks a role grant and parks it for confirmation.
func (svc *Service) BeginGrant(ctx context.Context, gr GrantRole) error {
	role, ok := RoleByName(gr.Role)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: knownRoleText})
	}
	addr := common.HexToAddress(gr.Address)

	def := operation.Definition{
		Kind:        KindGrantRole,
		Label:       fmt.Sprintf("Grant %s to %s", role.Name, chain.ShortAddr(addr)),
		Detail:      map[string]string{"role": role.Name, "address": addr.Hex()},
		SuccessText: fmt.Sprintf("%s granted to %s", role.Name, chain.ShortAddr(addr)),
		Precheck: func(ctx context.Context) error {
			held, err := svc.HasRole(ctx, role, addr)
			if err != nil {
				return errors.Wrap(err, "prechecking grant")
			}
			if held {
				return core.NewPrecheckError(fmt.Sprintf("%s already holds %s", chain.ShortAddr(addr), role.Name))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "grantRole", role.ID, addr)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.grantCtl.Begin(ctx, def)
}

// BeginRevoke prechecks a role revocation and parks it for confirmation.
func (svc *Service) BeginRevoke(ctx context.Context, rr RevokeRole) error {
	role, ok := RoleByName(rr.Role)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: knownRoleText})
	}
	addr := common.HexToAddress(rr.Address)

	def := operation.Definition{
		Kind:        KindRevokeRole,
		Label:       fmt.Sprintf("Revoke %s from %s", role.Name, chain.ShortAddr(addr)),
		Detail:      map[string]string{"role": role.Name, "address": addr.Hex()},
		SuccessText: fmt.Sprintf("%s revoked from %s", role.Name, chain.ShortAddr(addr)),
		Precheck: func(ctx context.Context) error {
			held, err := svc.HasRole(ctx, role, addr)
			if err != nil {
				return errors.Wrap(err, "prechecking revoke")
			}
			if !held {
				return core.NewPrecheckError(fmt.Sprintf("%s does not hold %s", chain.ShortAddr(addr), role.Name))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "revokeRole", role.ID, addr)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.revokeCtl.Begin(ctx, def)
}

// BeginRenounce prechecks giving up one of the signing account's own roles
// and parks it for confirmation. The contract only allows renouncing for
// oneself, so the target is always the gateway account.
func (svc *Service) BeginRenounce(ctx context.Context, rn RenounceRole) error {
	role, ok := RoleByName(rn.Role)
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: knownRoleText})
	}
	self := svc.gw.Account()
	if rn.Address != "" && common.HexToAddress(rn.Address) != self {
		return core.NewValidationError(nil, core.FieldError{Field: "address", Error: "must match the connected account"})
	}

	def := operation.Definition{
		Kind:        KindRenounceRole,
		Label:       fmt.Sprintf("Renounce own %s (%s)", role.Name, chain.ShortAddr(self)),
		Detail:      map[string]string{"role": role.Name, "address": self.Hex()},
		SuccessText: fmt.Sprintf("%s renounced; this account no longer holds it", role.Name),
		Precheck: func(ctx context.Context) error {
			held, err := svc.HasRole(ctx, role, self)
			if err != nil {
				return errors.Wrap(err, "prechecking renounce")
			}
			if !held {
				return core.NewPrecheckError(fmt.Sprintf("this account does not hold %s", role.Name))
			}
			return nil
		},
		Submit: func(ctx context.Context) (common.Hash, error) {
			return svc.gw.Write(ctx, "renounceRole", role.ID, self)
		},
		Wait: svc.gw.WaitReceipt,
	}
	return svc.renounceCtl.Begin(ctx, def)
}

func (svc *Service) GrantController() *operation.Controller    { return svc.grantCtl }
func (svc *Service) RevokeController() *operation.Controller   { return svc.revokeCtl }
func (svc *Service) RenounceController() *operation.Controller { return svc.renounceCtl }

// OpHistory lists settled role operations, newest first.
func (svc *Service) OpHistory() []history.Entry {
	return svc.opLog.Entries()
}

// Account is the address signing role operations.
func (svc *Service) Account() common.Address { return svc.gw.Account() }
