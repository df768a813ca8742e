package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user to approve a signature.
type Confirmer interface {
	Confirm(ctx context.Context, req SignRequest) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, req SignRequest) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, req SignRequest) (bool, error) {
	return f(ctx, req)
}

// AutoConfirm approves every request.
var AutoConfirm = ConfirmFunc(func(context.Context, SignRequest) (bool, error) { return true, nil })

// PromptConfirmer asks on a terminal and accepts only "y" or "yes".
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c PromptConfirmer) Confirm(ctx context.Context, req SignRequest) (bool, error) {
	to := "contract creation"
	if req.Tx != nil && req.Tx.To() != nil {
		to = req.Tx.To().Hex()
	}
	fmt.Fprintf(c.Out, "Sign %s\n  from:  %s\n  to:    %s\n  chain: %s\nProceed? [y/N]: ", req.Summary, req.Account.Hex(), to, req.ChainID)

	answers := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.In).ReadString('\n')
		answers <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line := <-answers:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
