package contract

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"

	clierr "swapDesk/internal/errors"
	"swapDesk/internal/wallet"
)

var (
	errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	panicSelector = []byte{0x4e, 0x48, 0x7b, 0x71}
)

var panicReasons = map[uint64]string{
	0x01: "assertion failed",
	0x11: "arithmetic overflow or underflow",
	0x12: "division by zero",
	0x21: "invalid enum value",
	0x22: "invalid storage byte array",
	0x31: "pop on empty array",
	0x32: "array index out of bounds",
	0x41: "out of memory",
	0x51: "call to zero-initialized function",
}

// Node messages that mean the transaction itself was refused, not the contract.
var rejectionPhrases = []string{
	"nonce too low",
	"nonce too high",
	"insufficient funds",
	"underpriced",
	"already known",
	"intrinsic gas too low",
	"exceeds block gas limit",
	"max fee per gas less than block base fee",
	"tx fee exceeds the configured cap",
}

// classify maps a chain or signing failure onto the error taxonomy.
func classify(ctx context.Context, op string, contractABI *abi.ABI, err error) error {
	if err == nil {
		return nil
	}
	var typed *clierr.Error
	if errors.As(err, &typed) {
		return err
	}
	if ctx != nil && ctx.Err() != nil && errors.Is(context.Cause(ctx), wallet.ErrSessionClosed) {
		return clierr.Wrap(clierr.CodeWalletUnavailable, op+": wallet disconnected", context.Cause(ctx))
	}
	if errors.Is(err, wallet.ErrSessionClosed) {
		return clierr.Wrap(clierr.CodeWalletUnavailable, op+": wallet disconnected", err)
	}
	if reason, ok := revertReason(err, contractABI); ok {
		return clierr.Revert(op+" reverted", reason, err)
	}
	if isRejection(err) {
		return clierr.Wrap(clierr.CodeTransactionRejected, op+": rejected by node", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return clierr.Wrap(clierr.CodeNetwork, op+": timed out", err)
	}
	return clierr.Wrap(clierr.CodeNetwork, op, err)
}

func isRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// revertReason extracts a revert reason from an RPC error. ok is false when
// the error is not a revert at all.
func revertReason(err error, contractABI *abi.ABI) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertBytes(dataErr.ErrorData()); ok {
			return DecodeRevert(data, contractABI), true
		}
	}
	msg := err.Error()
	idx := strings.Index(strings.ToLower(msg), "execution reverted")
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(msg[idx+len("execution reverted"):])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	return rest, true
}

func revertBytes(data interface{}) ([]byte, bool) {
	switch v := data.(type) {
	case string:
		raw, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if err != nil {
			return nil, false
		}
		return raw, true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

// DecodeRevert renders revert data as a readable reason: Error(string),
// Panic(uint256), custom errors known to contractABI, or a hex selector.
func DecodeRevert(data []byte, contractABI *abi.ABI) string {
	if len(data) < 4 {
		return ""
	}
	selector := data[:4]
	switch {
	case bytes.Equal(selector, errorSelector):
		if reason, err := abi.UnpackRevert(data); err == nil {
			return reason
		}
	case bytes.Equal(selector, panicSelector):
		if len(data) >= 36 {
			code := new(big.Int).SetBytes(data[4:36])
			if desc, ok := panicReasons[code.Uint64()]; ok && code.IsUint64() {
				return fmt.Sprintf("panic 0x%x (%s)", code, desc)
			}
			return fmt.Sprintf("panic 0x%x", code)
		}
	}
	if contractABI != nil {
		for name, custom := range contractABI.Errors {
			if !bytes.Equal(custom.ID[:4], selector) {
				continue
			}
			values, err := custom.Inputs.Unpack(data[4:])
			if err != nil || len(values) == 0 {
				return name
			}
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = fmt.Sprint(v)
			}
			return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
		}
	}
	return "custom error 0x" + hex.EncodeToString(selector)
}
