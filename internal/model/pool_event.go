package model

import (
	"strconv"
	"time"
)

// PoolEvent is one entry of the event feed. It is not modified after it is appended.
type PoolEvent struct {
	Deployment  string            `json:"deployment"`
	ChainID     uint64            `json:"chain_id"`
	EventName   string            `json:"event_name"`
	BlockNumber uint64            `json:"block_number"`
	BlockHash   string            `json:"block_hash"`
	TxHash      string            `json:"tx_hash"`
	LogIndex    uint64            `json:"log_index"`
	Address     string            `json:"address"`
	Removed     bool              `json:"removed,omitempty"`
	Args        map[string]string `json:"args,omitempty"`
	Decoded     interface{}       `json:"decoded,omitempty"`
	Raw         *RawLogRef        `json:"raw,omitempty"`
	ReceivedAt  time.Time         `json:"received_at"`
}

// RawLogRef keeps the undecoded log for events no ABI matched.
type RawLogRef struct {
	Topics []string `json:"topics"`
	Data   string   `json:"data"`
}

// Key identifies the log a PoolEvent came from.
func (e PoolEvent) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(e.LogIndex, 10)
}
