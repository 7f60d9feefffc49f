package ledger

import "errors"

// Rejected-operation errors. None of them leave a partial mutation behind.
var (
	ErrUnauthorized        = errors.New("only the owner can mint tokens")
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("total supply would exceed the 64-bit limit")

	ErrCorruptSnapshot = errors.New("corrupt ledger snapshot")
)

// Stable kind names, used on the wire
const (
	KindUnauthorized        = "Unauthorized"
	KindInvalidAmount       = "InvalidAmount"
	KindSelfTransfer        = "SelfTransfer"
	KindInsufficientBalance = "InsufficientBalance"
	KindOverflow            = "Overflow"
)

// ErrorKind maps a ledger error to its kind name; "" for anything else.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrSelfTransfer):
		return KindSelfTransfer
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrOverflow):
		return KindOverflow
	}
	return ""
}
