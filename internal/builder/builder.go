// Package builder validates payment requests and turns them into unsigned
// Algorand payment transactions. Nothing here touches the network or storage.
package builder

import (
	"math"
	"math/big"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/shopspring/decimal"

	"algo-transfers/internal/errors"
)

const (
	// MicroAlgosPerAlgo is the fixed scale between the user-facing amount and base units.
	MicroAlgosPerAlgo = 1_000_000
	// MaxNoteBytes is the protocol limit for the note field.
	MaxNoteBytes = 1024

	baseUnitExponent = 6
)

type Request struct {
	Sender    string
	Recipient string
	Amount    decimal.Decimal
	Note      []byte
}

// Payment is a request that passed validation, with the amount in microAlgos.
type Payment struct {
	Sender    string
	Recipient string
	Amount    uint64
	Note      []byte
}

// Validate checks every field of req and converts the amount to base units.
// The sender is checked last, after the payment fields.
func Validate(req Request) (Payment, error) {
	if !IsValidAddress(req.Recipient) {
		return Payment{}, errors.NewAppError(errors.InvalidRecipient, "invalid recipient address")
	}
	if len(req.Note) > MaxNoteBytes {
		return Payment{}, errors.NewAppErrorf(errors.InvalidNote, "note exceeds %d bytes", MaxNoteBytes)
	}

	units, err := ToBaseUnits(req.Amount)
	if err != nil {
		return Payment{}, err
	}

	if !IsValidAddress(req.Sender) {
		return Payment{}, errors.NewAppError(errors.InvalidSender, "invalid sender address")
	}

	return Payment{
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Amount:    units,
		Note:      req.Note,
	}, nil
}

// Build assembles the unsigned payment using the node's suggested params.
func Build(p Payment, params types.SuggestedParams) (types.Transaction, error) {
	var note []byte
	if len(p.Note) > 0 {
		note = p.Note
	}
	tx, err := transaction.MakePaymentTxn(p.Sender, p.Recipient, p.Amount, note, "", params)
	if err != nil {
		return types.Transaction{}, errors.Wrap(errors.InvalidInput, "failed to build payment transaction", err)
	}
	return tx, nil
}

// IsValidAddress reports whether addr is a checksummed Algorand address.
func IsValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := types.DecodeAddress(addr)
	return err == nil
}

// ToBaseUnits converts an ALGO amount to microAlgos. Fractions of a microAlgo
// are rounded half to even, so 0.0000005 becomes 0 and 0.0000015 becomes 2.
// The result must be strictly positive and fit in a uint64.
func ToBaseUnits(amount decimal.Decimal) (uint64, error) {
	if !amount.IsPositive() {
		return 0, errors.NewAppError(errors.InvalidAmount, "amount must be a positive number")
	}

	units := amount.Shift(baseUnitExponent).RoundBank(0)
	if !units.IsPositive() {
		return 0, errors.NewAppError(errors.InvalidAmount, "amount is smaller than one microAlgo")
	}

	n := units.BigInt()
	if !n.IsUint64() {
		return 0, errors.NewAppError(errors.InvalidAmount, "amount exceeds the maximum representable value")
	}
	return n.Uint64(), nil
}

// FromBaseUnits converts microAlgos back to ALGO.
func FromBaseUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -baseUnitExponent)
}

// AmountFromFloat accepts a float amount from loosely typed callers. NaN and
// infinities are rejected before they reach the decimal conversion.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, errors.NewAppError(errors.InvalidAmount, "amount must be a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

// ParseAmount parses a decimal string amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(errors.InvalidAmount, "invalid amount format", err)
	}
	return d, nil
}
