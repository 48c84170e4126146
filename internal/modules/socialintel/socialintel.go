// Package socialintel maps a username to candidate profile locations on
// the major platforms. It emits the URLs an analyst would check; actually
// probing them is a different module's job.
package socialintel

import (
	"context"
	"fmt"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
)

const moduleName = "socialintel"

// platforms lists profile URL patterns keyed by platform name.
var platforms = []struct {
	name    string
	pattern string
}{
	{"instagram", "https://www.instagram.com/%s/"},
	{"twitter", "https://x.com/%s"},
	{"telegram", "https://t.me/%s"},
	{"github", "https://github.com/%s"},
	{"reddit", "https://www.reddit.com/user/%s"},
	{"tiktok", "https://www.tiktok.com/@%s"},
}

func init() {
	err := registry.Global().Register(
		moduleName,
		func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
			return New(cfg, logger), nil
		},
		ports.ModuleMetadata{
			Name:         moduleName,
			Description:  "Candidate social profile locations for a username",
			Kinds:        []domain.EntityKind{domain.KindHandle},
			Priority:     6,
			SharedBucket: true,
		},
	)
	if err != nil {
		logx.New().Warn("failed to register socialintel module", "error", err.Error())
	}
}

// SocialIntel expands handle entities.
type SocialIntel struct {
	cfg    ports.ModuleConfig
	logger logx.Logger
}

// New creates the module.
func New(cfg ports.ModuleConfig, logger logx.Logger) *SocialIntel {
	return &SocialIntel{
		cfg:    cfg,
		logger: logger.With("module", moduleName),
	}
}

func (m *SocialIntel) Name() string { return moduleName }

func (m *SocialIntel) Supports(kind domain.EntityKind) bool {
	return kind == domain.KindHandle
}

// Investigate emits one candidate profile URL per platform.
func (m *SocialIntel) Investigate(ctx context.Context, entity domain.Entity, _ ports.Egress) (*domain.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := domain.NewModuleResult(moduleName)
	for _, p := range platforms {
		result.AddFinding("profile_candidate", fmt.Sprintf(p.pattern, entity.Value), p.name)
	}
	return result, nil
}

func (m *SocialIntel) Close() error { return nil }
