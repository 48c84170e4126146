// Package walletintel classifies cryptocurrency wallet addresses: chain,
// address format, and the public explorer URL an analyst would pivot to.
package walletintel

import (
	"context"
	"strings"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
)

const moduleName = "walletintel"

func init() {
	err := registry.Global().Register(
		moduleName,
		func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
			return New(cfg, logger), nil
		},
		ports.ModuleMetadata{
			Name:         moduleName,
			Description:  "Wallet address chain and format classification",
			Kinds:        []domain.EntityKind{domain.KindWallet},
			Priority:     8,
			SharedBucket: true,
		},
	)
	if err != nil {
		logx.New().Warn("failed to register walletintel module", "error", err.Error())
	}
}

// WalletIntel expands wallet entities.
type WalletIntel struct {
	cfg    ports.ModuleConfig
	logger logx.Logger
}

// New creates the module.
func New(cfg ports.ModuleConfig, logger logx.Logger) *WalletIntel {
	return &WalletIntel{
		cfg:    cfg,
		logger: logger.With("module", moduleName),
	}
}

func (m *WalletIntel) Name() string { return moduleName }

func (m *WalletIntel) Supports(kind domain.EntityKind) bool {
	return kind == domain.KindWallet
}

// Investigate classifies the address by its syntactic family.
func (m *WalletIntel) Investigate(ctx context.Context, entity domain.Entity, _ ports.Egress) (*domain.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := entity.Value
	result := domain.NewModuleResult(moduleName)

	switch {
	case strings.HasPrefix(addr, "0x"):
		result.AddFinding("chain", "ethereum", "address format")
		result.AddFinding("format", "eip-55", "address format")
		result.AddFinding("explorer_url", "https://etherscan.io/address/"+addr, "pivot convention")
	case strings.HasPrefix(addr, "bc1"):
		result.AddFinding("chain", "bitcoin", "address format")
		result.AddFinding("format", "bech32", "address format")
		result.AddFinding("explorer_url", "https://www.blockchain.com/btc/address/"+addr, "pivot convention")
	case strings.HasPrefix(addr, "3"):
		result.AddFinding("chain", "bitcoin", "address format")
		result.AddFinding("format", "p2sh", "address format")
		result.AddFinding("explorer_url", "https://www.blockchain.com/btc/address/"+addr, "pivot convention")
	case strings.HasPrefix(addr, "1"):
		result.AddFinding("chain", "bitcoin", "address format")
		result.AddFinding("format", "p2pkh", "address format")
		result.AddFinding("explorer_url", "https://www.blockchain.com/btc/address/"+addr, "pivot convention")
	default:
		result.AddFinding("chain", "unknown", "address format")
	}

	return result, nil
}

func (m *WalletIntel) Close() error { return nil }
