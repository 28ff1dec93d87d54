package student

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// MaxBatchSize caps how many students fit in one registration transaction;
// beyond this the transaction risks running out of block gas.
const MaxBatchSize = 50

// ErrNotRegistered is returned for addresses the contract has never seen.
var ErrNotRegistered = errors.New("student not found on chain")

type (
	// Registration contains information needed to enroll a student on chain.
	// Email is off-chain only; when present a welcome email is sent once the
	// registration confirms.
	Registration struct {
		Address   string `json:"address" validate:"required,eth_addr"`
		FullName  string `json:"full_name" validate:"required"`
		Email     string `json:"email" validate:"omitempty,email"`
		ProgramID int64  `json:"program_id" validate:"required,gte=1"`
		Term      int64  `json:"term" validate:"required,gte=1"`
	}

	// Batch enrolls several students in a single transaction.
	Batch struct {
		Students []Registration `json:"students" validate:"required,min=1,dive"`
	}

	// Attendance marks a student present for a class session.
	Attendance struct {
		Address   string `json:"address" validate:"required,eth_addr"`
		SessionID string `json:"session_id" validate:"required,alphanum_"`
	}

	// Reputation awards points to a student. Points add to the running
	// on-chain total; they cannot be taken back.
	Reputation struct {
		Address string `json:"address" validate:"required,eth_addr"`
		Points  int64  `json:"points" validate:"required,gte=1,lte=100"`
	}

	// Info is a student's on-chain record.
	Info struct {
		Address    string   `json:"address"`
		FullName   string   `json:"full_name"`
		ProgramID  int64    `json:"program_id"`
		Term       int64    `json:"term"`
		Active     bool     `json:"active"`
		Reputation *big.Int `json:"reputation"`
	}
)

func (reg *Registration) clean() {
	reg.Address = core.CleanString(reg.Address, true) // eth_addr rejects unchecksummed mixed case
	reg.FullName = core.CleanString(reg.FullName)
	reg.Email = core.CleanString(reg.Email, true)
}

func (reg *Registration) Validate(validate *validator.Validate) error {
	reg.clean()
	return validate.Struct(reg)
}

func (b *Batch) Validate(validate *validator.Validate) error {
	for i := range b.Students {
		b.Students[i].clean()
	}
	if err := validate.Struct(b); err != nil {
		return err
	}
	if len(b.Students) > MaxBatchSize {
		return core.NewValidationError(nil,
			core.FieldError{Field: "students", Error: fmt.Sprintf("a batch cannot exceed %d students", MaxBatchSize)})
	}
	return b.checkDuplicates()
}

// checkDuplicates rejects batches listing the same address more than once.
// Every entry sharing the address is flagged, the first included. Addresses
// are lowercased by clean before this runs, so the match ignores case.
func (b *Batch) checkDuplicates() error {
	count := make(map[string]int, len(b.Students))
	for _, reg := range b.Students {
		count[reg.Address]++
	}
	var dups []core.FieldError
	for i, reg := range b.Students {
		if count[reg.Address] > 1 {
			dups = append(dups, core.FieldError{
				Field: fmt.Sprintf("students[%d].address", i),
				Error: "duplicate address in the batch",
			})
		}
	}
	if len(dups) > 0 {
		return core.NewValidationError(nil, dups...)
	}
	return nil
}

func (att *Attendance) Validate(validate *validator.Validate) error {
	att.Address = core.CleanString(att.Address, true)
	att.SessionID = core.CleanString(att.SessionID)
	return validate.Struct(att)
}

func (rep *Reputation) Validate(validate *validator.Validate) error {
	rep.Address = core.CleanString(rep.Address, true)
	return validate.Struct(rep)
}
