package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	clierr "swapDesk/internal/errors"
)

const (
	EnvPrivateKey           = "SWAPDESK_PRIVATE_KEY"
	EnvPrivateKeyFile       = "SWAPDESK_PRIVATE_KEY_FILE"
	EnvKeystorePath         = "SWAPDESK_KEYSTORE_PATH"
	EnvKeystorePassword     = "SWAPDESK_KEYSTORE_PASSWORD"
	EnvKeystorePasswordFile = "SWAPDESK_KEYSTORE_PASSWORD_FILE"

	KeySourceAuto     = "auto"
	KeySourceEnv      = "env"
	KeySourceFile     = "file"
	KeySourceKeystore = "keystore"
)

// KeyConfig selects where the local provider reads its key.
// Empty fields fall back to the SWAPDESK_* environment variables.
type KeyConfig struct {
	Source               string
	EnvFile              string
	PrivateKeyHex        string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePassword     string
	KeystorePasswordFile string
}

// ChainIDReader reports the chain the provider signs for.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// LocalProvider is a Provider backed by key material on this machine.
type LocalProvider struct {
	cfg     KeyConfig
	chain   ChainIDReader
	confirm Confirmer

	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalProvider builds a provider. The key is loaded on the first RequestAccount.
// A nil confirmer signs without prompting.
func NewLocalProvider(cfg KeyConfig, chain ChainIDReader, confirm Confirmer) *LocalProvider {
	return &LocalProvider{cfg: cfg, chain: chain, confirm: confirm}
}

func (p *LocalProvider) RequestAccount(ctx context.Context) (common.Address, *big.Int, error) {
	if err := p.loadKey(); err != nil {
		return common.Address{}, nil, err
	}
	if p.chain == nil {
		return common.Address{}, nil, fmt.Errorf("%w: no chain client", ErrUnavailable)
	}
	chainID, err := p.chain.ChainID(ctx)
	if err != nil {
		return common.Address{}, nil, clierr.Wrap(clierr.CodeNetwork, "read chain id", err)
	}
	return p.address, chainID, nil
}

func (p *LocalProvider) SignTx(ctx context.Context, req SignRequest) (*types.Transaction, error) {
	p.mu.Lock()
	key := p.key
	address := p.address
	p.mu.Unlock()
	if key == nil {
		return nil, fmt.Errorf("%w: key not loaded", ErrUnavailable)
	}
	if req.Account != address {
		return nil, fmt.Errorf("%w: provider does not hold %s", ErrUnavailable, req.Account.Hex())
	}

	if p.confirm != nil {
		ok, err := p.confirm.Confirm(ctx, req)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRejected
		}
	}

	return types.SignTx(req.Tx, types.LatestSignerForChainID(req.ChainID), key)
}

func (p *LocalProvider) loadKey() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil {
		return nil
	}

	cfg, err := resolveKeyConfig(p.cfg)
	if err != nil {
		return err
	}
	key, err := loadPrivateKey(cfg)
	if err != nil {
		return err
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: invalid ECDSA public key", ErrUnavailable)
	}
	p.key = key
	p.address = crypto.PubkeyToAddress(*pub)
	return nil
}

func resolveKeyConfig(cfg KeyConfig) (KeyConfig, error) {
	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return KeyConfig{}, err
	}

	fill := func(value *string, env string) {
		if strings.TrimSpace(*value) == "" {
			*value = strings.TrimSpace(os.Getenv(env))
		}
	}
	fill(&cfg.PrivateKeyHex, EnvPrivateKey)
	fill(&cfg.PrivateKeyFile, EnvPrivateKeyFile)
	fill(&cfg.KeystorePath, EnvKeystorePath)
	fill(&cfg.KeystorePassword, EnvKeystorePassword)
	fill(&cfg.KeystorePasswordFile, EnvKeystorePasswordFile)

	source := strings.ToLower(strings.TrimSpace(cfg.Source))
	switch source {
	case "", KeySourceAuto:
	case KeySourceEnv:
		cfg.PrivateKeyFile = ""
		cfg.KeystorePath = ""
	case KeySourceFile:
		cfg.PrivateKeyHex = ""
		cfg.KeystorePath = ""
	case KeySourceKeystore:
		cfg.PrivateKeyHex = ""
		cfg.PrivateKeyFile = ""
	default:
		return KeyConfig{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported key source %q (expected %s|%s|%s|%s)", source, KeySourceAuto, KeySourceEnv, KeySourceFile, KeySourceKeystore))
	}
	return cfg, nil
}

// loadEnvFile reads a dotenv file without overriding variables already set.
// The default ./.env is optional; an explicit path must exist.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return clierr.Wrap(clierr.CodeConfig, "load env file", err)
	}
	return nil
}

func loadPrivateKey(cfg KeyConfig) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(cfg.PrivateKeyHex) != "" {
		return parseHexKey(cfg.PrivateKeyHex)
	}
	if strings.TrimSpace(cfg.PrivateKeyFile) != "" {
		buf, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key file: %v", ErrUnavailable, err)
		}
		return parseHexKey(string(buf))
	}
	if strings.TrimSpace(cfg.KeystorePath) != "" {
		password := cfg.KeystorePassword
		if strings.TrimSpace(password) == "" && strings.TrimSpace(cfg.KeystorePasswordFile) != "" {
			buf, err := os.ReadFile(cfg.KeystorePasswordFile)
			if err != nil {
				return nil, fmt.Errorf("%w: read keystore password file: %v", ErrUnavailable, err)
			}
			password = strings.TrimSpace(string(buf))
		}
		if strings.TrimSpace(password) == "" {
			return nil, fmt.Errorf("%w: keystore password is required", ErrUnavailable)
		}
		buf, err := os.ReadFile(cfg.KeystorePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read keystore file: %v", ErrUnavailable, err)
		}
		key, err := keystore.DecryptKey(buf, password)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt keystore: %v", ErrUnavailable, err)
		}
		return key.PrivateKey, nil
	}
	return nil, fmt.Errorf("%w: set %s, %s or %s", ErrUnavailable, EnvPrivateKey, EnvPrivateKeyFile, EnvKeystorePath)
}

func parseHexKey(raw string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty private key", ErrUnavailable)
	}
	key, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrUnavailable, err)
	}
	return key, nil
}
