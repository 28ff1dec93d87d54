package access

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Role names
const (
	RoleDefaultAdmin = "DEFAULT_ADMIN_ROLE"
	RoleMasterAdmin  = "MASTER_ADMIN_ROLE"
	RoleTeacher      = "TEACHER_ROLE"
	RoleStudent      = "STUDENT_ROLE"
)

type Role struct {
	Name string      `json:"name"`
	ID   common.Hash `json:"id"`
}

// Role ids mirror the contract: keccak256 of the role name, except the
// default admin role which the contract fixes at 0x00.
var AllRoles = []Role{
	{Name: RoleDefaultAdmin, ID: common.Hash{}},
	{Name: RoleMasterAdmin, ID: crypto.Keccak256Hash([]byte(RoleMasterAdmin))},
	{Name: RoleTeacher, ID: crypto.Keccak256Hash([]byte(RoleTeacher))},
	{Name: RoleStudent, ID: crypto.Keccak256Hash([]byte(RoleStudent))},
}

func RoleByName(name string) (Role, bool) {
	for _, role := range AllRoles {
		if role.Name == name {
			return role, true
		}
	}
	return Role{}, false
}

// RoleStatus pairs a role with whether a given account holds it.
type RoleStatus struct {
	Role Role `json:"role"`
	Held bool `json:"held"`
}

// Profile summarizes an account's standing, as needed for authorization.
type Profile struct {
	Address   string       `json:"address"`
	Roles     []RoleStatus `json:"roles"`
	IsAdmin   bool         `json:"is_admin"`
	IsTeacher bool         `json:"is_teacher"`
	IsStudent bool         `json:"is_student"`
}

// HeldRoleNames lists the names of the roles the account holds.
func (p Profile) HeldRoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, rs := range p.Roles {
		if rs.Held {
			names = append(names, rs.Role.Name)
		}
	}
	return names
}

// GrantRole contains information needed to grant a role to an account.
type GrantRole struct {
	Address string `json:"address,omitempty" validate:"required,eth_addr"`
	Role    string `json:"role,omitempty" validate:"required,knownrole"`
}

func (gr *GrantRole) Validate(validate *validator.Validate) error {
	gr.Address = core.CleanString(gr.Address, true) // eth_addr rejects unchecksummed mixed case
	gr.Role = strings.ToUpper(core.CleanString(gr.Role))
	return validate.Struct(gr)
}

// RevokeRole contains information needed to revoke a role from an account.
type RevokeRole struct {
	Address string `json:"address,omitempty" validate:"required,eth_addr"`
	Role    string `json:"role,omitempty" validate:"required,knownrole"`
}

func (rr *RevokeRole) Validate(validate *validator.Validate) error {
	rr.Address = core.CleanString(rr.Address, true)
	rr.Role = strings.ToUpper(core.CleanString(rr.Role))
	return validate.Struct(rr)
}

// RenounceRole gives up one of the signing account's own roles. Address may
// be left blank and defaults to the signing account; when set it must match
// it, since the contract rejects renouncing for anyone else.
type RenounceRole struct {
	Address string `json:"address,omitempty" validate:"omitempty,eth_addr"`
	Role    string `json:"role,omitempty" validate:"required,knownrole"`
}

func (rn *RenounceRole) Validate(validate *validator.Validate) error {
	rn.Address = core.CleanString(rn.Address, true)
	rn.Role = strings.ToUpper(core.CleanString(rn.Role))
	return validate.Struct(rn)
}

// CheckRole asks whether an account holds a role.
type CheckRole struct {
	Address string `json:"address,omitempty" validate:"required,eth_addr"`
	Role    string `json:"role,omitempty" validate:"required,knownrole"`
}

func (cr *CheckRole) Validate(validate *validator.Validate) error {
	cr.Address = core.CleanString(cr.Address, true)
	cr.Role = strings.ToUpper(core.CleanString(cr.Role))
	return validate.Struct(cr)
}

// CheckResult is the outcome of a role check.
type CheckResult struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	Held    bool   `json:"held"`
}
