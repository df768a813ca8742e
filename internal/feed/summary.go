package feed

import (
	"fmt"
	"math/big"

	"swapDesk/internal/model"
)

// Summary aggregates the retained history.
type Summary struct {
	Events     int               `json:"events"`
	Counts     map[string]uint64 `json:"counts"`
	SwapCount  uint64            `json:"swap_count"`
	ZeroForOne uint64            `json:"zero_for_one"`
	Volume0    string            `json:"volume0"`
	Volume1    string            `json:"volume1"`
	FirstBlock uint64            `json:"first_block"`
	LastBlock  uint64            `json:"last_block"`
}

// Summary aggregates the events currently held by the feed.
func (f *Feed) Summary() (Summary, error) {
	return Summarize(f.Events())
}

// Summarize counts events by name and sums absolute swap amounts in base units.
func Summarize(events []model.PoolEvent) (Summary, error) {
	acc := newAccumulator()
	for _, event := range events {
		if err := acc.add(event); err != nil {
			return Summary{}, err
		}
	}
	return acc.summary(len(events)), nil
}

type accumulator struct {
	counts     map[string]uint64
	swapCount  uint64
	zeroForOne uint64
	volume0    *big.Int
	volume1    *big.Int
	firstBlock uint64
	lastBlock  uint64
}

func newAccumulator() *accumulator {
	return &accumulator{
		counts:  make(map[string]uint64),
		volume0: big.NewInt(0),
		volume1: big.NewInt(0),
	}
}

func (a *accumulator) add(event model.PoolEvent) error {
	a.counts[event.EventName]++
	if a.firstBlock == 0 || event.BlockNumber < a.firstBlock {
		a.firstBlock = event.BlockNumber
	}
	if event.BlockNumber > a.lastBlock {
		a.lastBlock = event.BlockNumber
	}

	swap, ok := event.Decoded.(model.SwapEventData)
	if !ok {
		return nil
	}
	amount0, err := parseBigInt(swap.Amount0)
	if err != nil {
		return fmt.Errorf("swap %s: %w", event.Key(), err)
	}
	amount1, err := parseBigInt(swap.Amount1)
	if err != nil {
		return fmt.Errorf("swap %s: %w", event.Key(), err)
	}
	absAdd(a.volume0, amount0)
	absAdd(a.volume1, amount1)
	a.swapCount++
	if swap.ZeroForOne() {
		a.zeroForOne++
	}
	return nil
}

func (a *accumulator) summary(events int) Summary {
	return Summary{
		Events:     events,
		Counts:     a.counts,
		SwapCount:  a.swapCount,
		ZeroForOne: a.zeroForOne,
		Volume0:    a.volume0.String(),
		Volume1:    a.volume1.String(),
		FirstBlock: a.firstBlock,
		LastBlock:  a.lastBlock,
	}
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	target.Add(target, new(big.Int).Abs(value))
}
