// Package domainintel derives structural intelligence from a domain name:
// label anatomy, the registrable root, and the conventional web hosts.
package domainintel

import (
	"context"
	"strconv"
	"strings"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
	"github.com/AzouC/Outils-Osintt/internal/platform/validator"
)

const moduleName = "domainintel"

func init() {
	err := registry.Global().Register(
		moduleName,
		func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
			return New(cfg, logger), nil
		},
		ports.ModuleMetadata{
			Name:         moduleName,
			Description:  "Domain anatomy and registrable-root derivation",
			Kinds:        []domain.EntityKind{domain.KindDomain},
			Priority:     10,
			SharedBucket: true,
		},
	)
	if err != nil {
		logx.New().Warn("failed to register domainintel module", "error", err.Error())
	}
}

// DomainIntel expands domain entities.
type DomainIntel struct {
	cfg    ports.ModuleConfig
	logger logx.Logger
}

// New creates the module.
func New(cfg ports.ModuleConfig, logger logx.Logger) *DomainIntel {
	return &DomainIntel{
		cfg:    cfg,
		logger: logger.With("module", moduleName),
	}
}

func (m *DomainIntel) Name() string { return moduleName }

func (m *DomainIntel) Supports(kind domain.EntityKind) bool {
	return kind == domain.KindDomain
}

// Investigate reports the domain's anatomy and, for subdomains, discovers
// the registrable root as a child entity.
func (m *DomainIntel) Investigate(ctx context.Context, entity domain.Entity, _ ports.Egress) (*domain.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := entity.Value
	labels := strings.Split(name, ".")

	result := domain.NewModuleResult(moduleName)
	result.AddFinding("tld", labels[len(labels)-1], "label split")
	result.AddFinding("label_count", strconv.Itoa(len(labels)), "label split")

	root := validator.RegistrableRoot(name)
	result.AddFinding("registrable_root", root, "public suffix list")

	if !strings.HasPrefix(name, "www.") {
		result.AddFinding("web_host", "www."+name, "naming convention")
	}

	if root != name {
		child, err := domain.NewEntity(domain.KindDomain, root, 0)
		if err == nil {
			result.AddDiscovered(child)
		}
	}

	return result, nil
}

func (m *DomainIntel) Close() error { return nil }
