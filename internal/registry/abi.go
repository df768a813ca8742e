package registry

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Kind names an ABI document. Several roles may share one kind.
type Kind string

const (
	KindERC20   Kind = "ERC20"
	KindPool    Kind = "Pool"
	KindManager Kind = "Manager"
	KindQuoter  Kind = "Quoter"
)

// Kinds lists every ABI kind known to the registry.
var Kinds = []Kind{KindERC20, KindPool, KindManager, KindQuoter}

//go:embed abi/*.json
var abiFS embed.FS

type parsedABI struct {
	once   sync.Once
	parsed abi.ABI
	err    error
}

var builtinABIs = map[Kind]*parsedABI{
	KindERC20:   {},
	KindPool:    {},
	KindManager: {},
	KindQuoter:  {},
}

// BuiltinABI returns the embedded ABI for a kind, parsed once.
func BuiltinABI(kind Kind) (abi.ABI, error) {
	entry, ok := builtinABIs[kind]
	if !ok {
		return abi.ABI{}, fmt.Errorf("no embedded abi for %s", kind)
	}
	entry.once.Do(func() {
		data, err := abiFS.ReadFile("abi/" + string(kind) + ".json")
		if err != nil {
			entry.err = fmt.Errorf("read embedded %s abi: %w", kind, err)
			return
		}
		entry.parsed, entry.err = abi.JSON(bytes.NewReader(data))
		if entry.err != nil {
			entry.err = fmt.Errorf("parse embedded %s abi: %w", kind, entry.err)
		}
	})
	return entry.parsed, entry.err
}

// MustPoolABI returns the embedded pool ABI and panics if it does not parse.
func MustPoolABI() abi.ABI {
	parsed, err := BuiltinABI(KindPool)
	if err != nil {
		panic(err)
	}
	return parsed
}

// loadABIFile reads <dir>/<Kind>.json, the layout the web client ships its ABI documents in.
func loadABIFile(dir string, kind Kind) (abi.ABI, error) {
	path := filepath.Join(dir, string(kind)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read %s: %w", path, err)
	}
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return parsed, nil
}
