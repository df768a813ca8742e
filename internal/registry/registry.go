package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "swapDesk/internal/errors"
)

// Role is a logical contract name used by consumers.
type Role string

const (
	RoleToken0  Role = "token0"
	RoleToken1  Role = "token1"
	RolePool    Role = "pool"
	RoleManager Role = "manager"
	RoleQuoter  Role = "quoter"
)

// Roles lists every role in binding order.
var Roles = []Role{RoleToken0, RoleToken1, RolePool, RoleManager, RoleQuoter}

// Kind returns the ABI kind used by the role.
func (r Role) Kind() Kind {
	switch r {
	case RoleToken0, RoleToken1:
		return KindERC20
	case RolePool:
		return KindPool
	case RoleManager:
		return KindManager
	case RoleQuoter:
		return KindQuoter
	default:
		return ""
	}
}

// Optional reports whether a deployment may leave the role unset.
func (r Role) Optional() bool {
	return r == RoleQuoter
}

// ParseRole normalizes a role name.
func ParseRole(input string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(input)))
	for _, known := range Roles {
		if role == known {
			return role, true
		}
	}
	return "", false
}

// Definition is the unvalidated form of a deployment as written in code or a config file.
type Definition struct {
	ChainID uint64   `mapstructure:"chain-id" yaml:"chain_id"`
	Token0  string   `mapstructure:"token0" yaml:"token0"`
	Token1  string   `mapstructure:"token1" yaml:"token1"`
	Pool    string   `mapstructure:"pool" yaml:"pool"`
	Manager string   `mapstructure:"manager" yaml:"manager"`
	Quoter  string   `mapstructure:"quoter" yaml:"quoter,omitempty"`
	ABIs    []string `mapstructure:"abis" yaml:"abis"`
	ABIDir  string   `mapstructure:"abi-dir" yaml:"abi_dir,omitempty"`
}

func (d Definition) address(role Role) string {
	switch role {
	case RoleToken0:
		return d.Token0
	case RoleToken1:
		return d.Token1
	case RolePool:
		return d.Pool
	case RoleManager:
		return d.Manager
	case RoleQuoter:
		return d.Quoter
	default:
		return ""
	}
}

// Deployment is a validated, immutable set of addressed contracts and their ABIs.
type Deployment struct {
	Name    string
	ChainID uint64

	addresses map[Role]common.Address
	abis      map[Kind]abi.ABI
}

// Address returns the contract address bound to role.
func (d Deployment) Address(role Role) (common.Address, bool) {
	addr, ok := d.addresses[role]
	return addr, ok
}

// ABI returns the ABI for role. It is false when the role has no address or no ABI.
func (d Deployment) ABI(role Role) (abi.ABI, bool) {
	if _, ok := d.addresses[role]; !ok {
		return abi.ABI{}, false
	}
	parsed, ok := d.abis[role.Kind()]
	return parsed, ok
}

// HasRole reports whether the deployment can bind role.
func (d Deployment) HasRole(role Role) bool {
	_, ok := d.ABI(role)
	return ok
}

// Roles returns the bound roles in binding order.
func (d Deployment) Roles() []Role {
	out := make([]Role, 0, len(d.addresses))
	for _, role := range Roles {
		if _, ok := d.addresses[role]; ok {
			out = append(out, role)
		}
	}
	return out
}

// RoleOf returns the role bound to addr.
func (d Deployment) RoleOf(addr common.Address) (Role, bool) {
	for _, role := range Roles {
		if bound, ok := d.addresses[role]; ok && bound == addr {
			return role, true
		}
	}
	return "", false
}

// Summary is a render-friendly view of a deployment.
type Summary struct {
	Name    string            `json:"name" yaml:"name"`
	ChainID uint64            `json:"chain_id" yaml:"chain_id"`
	Roles   map[string]string `json:"roles" yaml:"roles"`
	ABIs    []string          `json:"abis" yaml:"abis"`
}

func (d Deployment) Summary() Summary {
	roles := make(map[string]string, len(d.addresses))
	for role, addr := range d.addresses {
		roles[string(role)] = addr.Hex()
	}
	kinds := make([]string, 0, len(d.abis))
	for kind := range d.abis {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return Summary{Name: d.Name, ChainID: d.ChainID, Roles: roles, ABIs: kinds}
}

// Registry maps deployment names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns a registry seeded with the built-in deployments.
func New() *Registry {
	r := &Registry{defs: make(map[string]Definition, len(builtinDefinitions))}
	for name, def := range builtinDefinitions {
		r.defs[name] = def
	}
	return r
}

// Register adds or replaces a named definition. Validation happens on Lookup.
func (r *Registry) Register(name string, def Definition) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return clierr.New(clierr.CodeConfig, "deployment name is required")
	}
	r.mu.Lock()
	r.defs[name] = def
	r.mu.Unlock()
	return nil
}

// Names returns the registered deployment names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the validated deployment for name.
func (r *Registry) Lookup(name string) (Deployment, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return Deployment{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("unknown deployment %q (known: %s)", name, strings.Join(r.Names(), ", ")))
	}
	return Build(name, def)
}

// Build validates def and produces a Deployment.
func Build(name string, def Definition) (Deployment, error) {
	kinds := make(map[Kind]struct{}, len(def.ABIs))
	for _, raw := range def.ABIs {
		kind, ok := parseKind(raw)
		if !ok {
			return Deployment{}, configErr(name, fmt.Sprintf("unknown abi %q", raw), nil)
		}
		kinds[kind] = struct{}{}
	}

	dep := Deployment{
		Name:      name,
		ChainID:   def.ChainID,
		addresses: make(map[Role]common.Address, len(Roles)),
		abis:      make(map[Kind]abi.ABI, len(kinds)),
	}

	for _, role := range Roles {
		raw := strings.TrimSpace(def.address(role))
		if raw == "" {
			if role.Optional() {
				continue
			}
			return Deployment{}, configErr(name, fmt.Sprintf("%s address is required", role), nil)
		}
		addr, err := ParseAddress(raw)
		if err != nil {
			return Deployment{}, configErr(name, fmt.Sprintf("%s address", role), err)
		}
		if _, ok := kinds[role.Kind()]; !ok {
			return Deployment{}, configErr(name, fmt.Sprintf("missing %s abi for role %s", role.Kind(), role), nil)
		}
		dep.addresses[role] = addr
	}

	for kind := range kinds {
		var (
			parsed abi.ABI
			err    error
		)
		if def.ABIDir != "" {
			parsed, err = loadABIFile(def.ABIDir, kind)
		} else {
			parsed, err = BuiltinABI(kind)
		}
		if err != nil {
			return Deployment{}, configErr(name, fmt.Sprintf("load %s abi", kind), err)
		}
		dep.abis[kind] = parsed
	}

	return dep, nil
}

func parseKind(input string) (Kind, bool) {
	for _, kind := range Kinds {
		if strings.EqualFold(strings.TrimSpace(input), string(kind)) {
			return kind, true
		}
	}
	return "", false
}

func configErr(name, msg string, cause error) error {
	return clierr.Wrap(clierr.CodeConfig, fmt.Sprintf("deployment %s: %s", name, msg), cause)
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Lookup resolves name against the process-wide registry.
func Lookup(name string) (Deployment, error) {
	return defaultRegistry.Lookup(name)
}
