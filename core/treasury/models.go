package treasury

import (
	"errors"
	"math/big"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Withdraw moves funds out of the treasury in an emergency. Amount is a
// decimal string in wei; values routinely overflow int64.
type Withdraw struct {
	Amount string `json:"amount" validate:"required"`
	To     string `json:"to" validate:"required,eth_addr"`
}

func (w *Withdraw) Validate(validate *validator.Validate) error {
	w.Amount = core.CleanString(w.Amount)
	w.To = core.CleanString(w.To, true) // eth_addr rejects unchecksummed mixed case
	if err := validate.Struct(w); err != nil {
		return err
	}
	if _, err := w.AmountWei(); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: err.Error()})
	}
	return nil
}

// AmountWei parses Amount, requiring a strictly positive integer.
func (w Withdraw) AmountWei() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(w.Amount, 10)
	if !ok {
		return nil, errors.New("must be a whole number of wei")
	}
	if amount.Sign() <= 0 {
		return nil, errors.New("must be greater than zero")
	}
	return amount, nil
}
