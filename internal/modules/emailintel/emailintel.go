// Package emailintel derives intelligence from an email address without
// touching the network: address anatomy, provider domain, and the avatar
// lookup hash used by gravatar-style services.
package emailintel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
	"github.com/AzouC/Outils-Osintt/internal/platform/validator"
)

const moduleName = "emailintel"

func init() {
	err := registry.Global().Register(
		moduleName,
		func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
			return New(cfg, logger), nil
		},
		ports.ModuleMetadata{
			Name:         moduleName,
			Description:  "Email address anatomy and provider derivation",
			Kinds:        []domain.EntityKind{domain.KindEmail},
			Priority:     10,
			SharedBucket: true,
		},
	)
	if err != nil {
		logx.New().Warn("failed to register emailintel module", "error", err.Error())
	}
}

// EmailIntel expands email entities.
type EmailIntel struct {
	cfg    ports.ModuleConfig
	logger logx.Logger
}

// New creates the module.
func New(cfg ports.ModuleConfig, logger logx.Logger) *EmailIntel {
	return &EmailIntel{
		cfg:    cfg,
		logger: logger.With("module", moduleName),
	}
}

func (m *EmailIntel) Name() string { return moduleName }

func (m *EmailIntel) Supports(kind domain.EntityKind) bool {
	return kind == domain.KindEmail
}

// Investigate splits the address, surfaces sub-addressing tags, computes
// the avatar hash, and feeds the provider domain back as a child entity.
func (m *EmailIntel) Investigate(ctx context.Context, entity domain.Entity, _ ports.Egress) (*domain.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	address := entity.Value
	local, host, found := strings.Cut(address, "@")
	if !found || !validator.IsDomain(host) {
		return nil, domain.ErrInvalidEntityValue
	}

	result := domain.NewModuleResult(moduleName)
	result.AddFinding("local_part", local, "address split")
	result.AddFinding("mail_domain", host, "address split")

	// sub-addressing: user+tag@host reaches the user@host mailbox
	if base, tag, tagged := strings.Cut(local, "+"); tagged && base != "" {
		result.AddFinding("plus_tag", tag, "sub-addressing")
		result.AddFinding("base_address", base+"@"+host, "sub-addressing")
	}

	sum := md5.Sum([]byte(strings.ToLower(address)))
	result.AddFinding("avatar_hash", hex.EncodeToString(sum[:]), "gravatar convention")

	child, err := domain.NewEntity(domain.KindDomain, host, 0)
	if err != nil {
		m.logger.Debug("mail domain not expandable", "host", host, "error", err.Error())
		return result, nil
	}
	result.AddDiscovered(child)

	return result, nil
}

func (m *EmailIntel) Close() error { return nil }
