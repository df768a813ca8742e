package swap

import (
	"errors"

	clierr "swapDesk/internal/errors"
)

// Status is what the form shows after a submission attempt.
type Status struct {
	State       string `json:"state"`
	Message     string `json:"message"`
	Reason      string `json:"reason,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

// Describe maps an error to a distinct, readable form state. Nothing is retried.
func Describe(err error) Status {
	if err == nil {
		return Status{State: "ok", Message: "Transaction confirmed."}
	}
	var typed *clierr.Error
	if !errors.As(err, &typed) {
		return Status{State: "error", Message: err.Error()}
	}
	switch typed.Code {
	case clierr.CodeWalletUnavailable:
		return Status{State: "wallet_unavailable", Message: "No wallet is connected. Connect a wallet and submit again.", Recoverable: true}
	case clierr.CodeUserRejected:
		return Status{State: "user_rejected", Message: "The request was declined in the wallet.", Recoverable: true}
	case clierr.CodeTransactionRejected:
		return Status{State: "transaction_rejected", Message: "The node refused the transaction: " + causeText(typed), Recoverable: true}
	case clierr.CodeContractRevert:
		msg := "The contract reverted the transaction."
		if typed.Reason != "" {
			msg = "The contract reverted the transaction: " + typed.Reason
		}
		return Status{State: "contract_revert", Message: msg, Reason: typed.Reason}
	case clierr.CodeNetwork:
		return Status{State: "network_error", Message: "The chain endpoint could not be reached: " + causeText(typed), Recoverable: true}
	case clierr.CodeInvalidIntent:
		return Status{State: "invalid_input", Message: typed.Message, Recoverable: true}
	case clierr.CodeUnboundRole:
		return Status{State: "unavailable", Message: typed.Message}
	case clierr.CodeConfig:
		return Status{State: "config_error", Message: typed.Message}
	default:
		return Status{State: "error", Message: typed.Error()}
	}
}

func causeText(e *clierr.Error) string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}
