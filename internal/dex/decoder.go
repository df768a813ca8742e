package dex

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"swapDesk/internal/contract"
	"swapDesk/internal/model"
	"swapDesk/internal/registry"
)

// UnknownEvent names logs no ABI in the deployment matches.
const UnknownEvent = "Unknown"

// Decoder turns raw logs from a deployment's contracts into PoolEvents.
// Pool Swap/Mint/Burn/Collect get typed payloads; every other known event
// gets its arguments rendered as strings.
type Decoder struct {
	deployment string
	chainID    uint64
	pool       abi.ABI
	events     map[common.Hash]abi.Event
	now        func() time.Time
}

func NewDecoder(dep registry.Deployment) (*Decoder, error) {
	poolABI, ok := dep.ABI(registry.RolePool)
	if !ok {
		return nil, fmt.Errorf("deployment %s has no pool abi", dep.Name)
	}
	events := make(map[common.Hash]abi.Event)
	for _, role := range dep.Roles() {
		parsed, ok := dep.ABI(role)
		if !ok {
			continue
		}
		for _, event := range parsed.Events {
			events[event.ID] = event
		}
	}
	return &Decoder{
		deployment: dep.Name,
		chainID:    dep.ChainID,
		pool:       poolABI,
		events:     events,
		now:        time.Now,
	}, nil
}

// Decode always returns a usable PoolEvent. The error reports why the payload
// could not be decoded; the event then carries the raw log instead.
func (d *Decoder) Decode(log types.Log) (model.PoolEvent, error) {
	event := model.PoolEvent{
		Deployment:  d.deployment,
		ChainID:     d.chainID,
		EventName:   UnknownEvent,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Removed:     log.Removed,
		ReceivedAt:  d.now().UTC(),
	}
	if len(log.Topics) == 0 {
		event.Raw = rawRef(log)
		return event, fmt.Errorf("missing topics")
	}
	abiEvent, ok := d.events[log.Topics[0]]
	if !ok {
		event.Raw = rawRef(log)
		return event, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}
	event.EventName = abiEvent.Name

	args, err := decodeArgs(abiEvent, log)
	if err != nil {
		event.Raw = rawRef(log)
		return event, err
	}
	event.Args = args

	decoded, err := d.decodeTyped(abiEvent.Name, log)
	if err != nil {
		event.Raw = rawRef(log)
		return event, err
	}
	event.Decoded = decoded
	return event, nil
}

func (d *Decoder) decodeTyped(name string, log types.Log) (interface{}, error) {
	if event, ok := d.pool.Events[name]; !ok || event.ID != log.Topics[0] {
		return nil, nil
	}
	switch name {
	case "Swap":
		return d.decodeSwap(log)
	case "Mint":
		return d.decodeMint(log)
	case "Burn":
		return d.decodeBurn(log)
	case "Collect":
		return d.decodeCollect(log)
	default:
		return nil, nil
	}
}

// DecodeSwap extracts the pool Swap payload from a transaction receipt, if present.
func (d *Decoder) DecodeSwap(receipt *types.Receipt, pool common.Address) (model.SwapEventData, bool) {
	if receipt == nil {
		return model.SwapEventData{}, false
	}
	swapID := d.pool.Events["Swap"].ID
	for _, log := range receipt.Logs {
		if log == nil || log.Address != pool || len(log.Topics) == 0 || log.Topics[0] != swapID {
			continue
		}
		swap, err := d.decodeSwap(*log)
		if err == nil {
			return swap, true
		}
	}
	return model.SwapEventData{}, false
}

func decodeArgs(event abi.Event, log types.Log) (map[string]string, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	values := make(map[string]interface{})
	if len(log.Data) > 0 {
		if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
			return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(values))
	for _, k := range keys {
		out[k] = formatValue(values[k])
	}
	return out, nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case *big.Int:
		return val.String()
	case []byte:
		return hexutil.Encode(val)
	case [32]byte:
		return hexutil.Encode(val[:])
	default:
		return fmt.Sprint(val)
	}
}

func rawRef(log types.Log) *model.RawLogRef {
	topics := make([]string, len(log.Topics))
	for i, t := range log.Topics {
		topics[i] = t.Hex()
	}
	return &model.RawLogRef{Topics: topics, Data: hexutil.Encode(log.Data)}
}

func (d *Decoder) decodeSwap(log types.Log) (model.SwapEventData, error) {
	event := d.pool.Events["Swap"]
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.SwapEventData{}, err
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.SwapEventData{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	nums, err := bigInts(values[:4])
	if err != nil {
		return model.SwapEventData{}, err
	}
	tick, err := contract.Int24(values[4])
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      nums[0].String(),
		Amount1:      nums[1].String(),
		SqrtPriceX96: nums[2].String(),
		Liquidity:    nums[3].String(),
		Tick:         tick,
	}, nil
}

type positionTopics struct {
	Owner     common.Address
	TickLower *big.Int
	TickUpper *big.Int
}

func (p positionTopics) ticks() (model.TickRange, error) {
	lower, err := contract.Int24(p.TickLower)
	if err != nil {
		return model.TickRange{}, err
	}
	upper, err := contract.Int24(p.TickUpper)
	if err != nil {
		return model.TickRange{}, err
	}
	return model.TickRange{TickLower: lower, TickUpper: upper}, nil
}

func (d *Decoder) decodeMint(log types.Log) (model.MintEventData, error) {
	event := d.pool.Events["Mint"]
	var indexed positionTopics
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.MintEventData{}, err
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.MintEventData{}, fmt.Errorf("unpack mint: %w", err)
	}
	if len(values) != 4 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}
	sender, err := contract.AsAddress(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	nums, err := bigInts(values[1:])
	if err != nil {
		return model.MintEventData{}, err
	}
	ticks, err := indexed.ticks()
	if err != nil {
		return model.MintEventData{}, err
	}
	return model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     indexed.Owner.Hex(),
		TickRange: ticks,
		Amount:    nums[0].String(),
		Amount0:   nums[1].String(),
		Amount1:   nums[2].String(),
	}, nil
}

func (d *Decoder) decodeBurn(log types.Log) (model.BurnEventData, error) {
	event := d.pool.Events["Burn"]
	var indexed positionTopics
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.BurnEventData{}, err
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.BurnEventData{}, fmt.Errorf("unpack burn: %w", err)
	}
	if len(values) != 3 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}
	nums, err := bigInts(values)
	if err != nil {
		return model.BurnEventData{}, err
	}
	ticks, err := indexed.ticks()
	if err != nil {
		return model.BurnEventData{}, err
	}
	return model.BurnEventData{
		Owner:     indexed.Owner.Hex(),
		TickRange: ticks,
		Amount:    nums[0].String(),
		Amount0:   nums[1].String(),
		Amount1:   nums[2].String(),
	}, nil
}

func (d *Decoder) decodeCollect(log types.Log) (model.CollectEventData, error) {
	event := d.pool.Events["Collect"]
	var indexed positionTopics
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.CollectEventData{}, err
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.CollectEventData{}, fmt.Errorf("unpack collect: %w", err)
	}
	if len(values) != 3 {
		return model.CollectEventData{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}
	recipient, err := contract.AsAddress(values[0])
	if err != nil {
		return model.CollectEventData{}, err
	}
	nums, err := bigInts(values[1:])
	if err != nil {
		return model.CollectEventData{}, err
	}
	ticks, err := indexed.ticks()
	if err != nil {
		return model.CollectEventData{}, err
	}
	return model.CollectEventData{
		Owner:     indexed.Owner.Hex(),
		Recipient: recipient.Hex(),
		TickRange: ticks,
		Amount0:   nums[0].String(),
		Amount1:   nums[1].String(),
	}, nil
}

func parseIndexed(out interface{}, event abi.Event, log types.Log) error {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func bigInts(values []interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		n, err := contract.AsBigInt(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
