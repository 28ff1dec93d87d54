package tuition

import (
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Deadline labels shown for a student's tuition standing.
const (
	LabelPaid     = "Paid"
	LabelOverdue  = "Overdue"
	LabelDueToday = "Due today"
)

var NowFunc = time.Now // mockable

type (
	// Check asks for a student's tuition standing for one term.
	Check struct {
		Address string `json:"address" validate:"required,eth_addr"`
		Term    int64  `json:"term" validate:"required,gte=1"`
	}

	// Status is a student's tuition standing as recorded on chain.
	Status struct {
		Address   string    `json:"address"`
		Term      int64     `json:"term"`
		Paid      bool      `json:"paid"`
		DueDate   time.Time `json:"due_date"`
		AmountDue *big.Int  `json:"amount_due"`
	}

	// Deadline is the human view of a status: how far from the due date,
	// and what to print.
	Deadline struct {
		Days    int    `json:"days"`
		Overdue bool   `json:"overdue"`
		Label   string `json:"label"`
	}
)

func (c *Check) Validate(validate *validator.Validate) error {
	c.Address = core.CleanString(c.Address, true) // eth_addr rejects unchecksummed mixed case
	return validate.Struct(c)
}

// PastDue reports whether payment is missing and the due date has passed.
func (s Status) PastDue() bool {
	return !s.Paid && NowFunc().UTC().After(s.DueDate)
}

// Deadline derives the display summary for s at the current time. Days
// counts whole 24h periods to (or since) the due date.
func (s Status) Deadline() Deadline {
	if s.Paid {
		return Deadline{Label: LabelPaid}
	}
	now := NowFunc().UTC()
	if now.After(s.DueDate) {
		days := int(now.Sub(s.DueDate).Hours() / 24)
		return Deadline{Days: days, Overdue: true, Label: LabelOverdue}
	}
	days := int(s.DueDate.Sub(now).Hours() / 24)
	switch days {
	case 0:
		return Deadline{Label: LabelDueToday}
	case 1:
		return Deadline{Days: 1, Label: "Due in 1 day"}
	default:
		return Deadline{Days: days, Label: fmt.Sprintf("Due in %d days", days)}
	}
}
