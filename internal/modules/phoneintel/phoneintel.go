// Package phoneintel derives intelligence from an E.164 phone number:
// calling-code resolution and number anatomy, entirely offline.
package phoneintel

import (
	"context"
	"strings"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/platform/registry"
)

const moduleName = "phoneintel"

// callingCodes maps ITU calling codes to region names. Longest-prefix
// match wins, so 3-digit codes must be checked before their 1-digit
// ancestors.
var callingCodes = map[string]string{
	"1":   "United States / Canada",
	"7":   "Russia / Kazakhstan",
	"20":  "Egypt",
	"31":  "Netherlands",
	"32":  "Belgium",
	"33":  "France",
	"34":  "Spain",
	"39":  "Italy",
	"41":  "Switzerland",
	"44":  "United Kingdom",
	"49":  "Germany",
	"52":  "Mexico",
	"55":  "Brazil",
	"61":  "Australia",
	"81":  "Japan",
	"86":  "China",
	"91":  "India",
	"212": "Morocco",
	"213": "Algeria",
	"216": "Tunisia",
	"971": "United Arab Emirates",
}

func init() {
	err := registry.Global().Register(
		moduleName,
		func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
			return New(cfg, logger), nil
		},
		ports.ModuleMetadata{
			Name:         moduleName,
			Description:  "Phone number calling-code and anatomy derivation",
			Kinds:        []domain.EntityKind{domain.KindPhone},
			Priority:     8,
			SharedBucket: true,
		},
	)
	if err != nil {
		logx.New().Warn("failed to register phoneintel module", "error", err.Error())
	}
}

// PhoneIntel expands phone entities.
type PhoneIntel struct {
	cfg    ports.ModuleConfig
	logger logx.Logger
}

// New creates the module.
func New(cfg ports.ModuleConfig, logger logx.Logger) *PhoneIntel {
	return &PhoneIntel{
		cfg:    cfg,
		logger: logger.With("module", moduleName),
	}
}

func (m *PhoneIntel) Name() string { return moduleName }

func (m *PhoneIntel) Supports(kind domain.EntityKind) bool {
	return kind == domain.KindPhone
}

// Investigate resolves the calling code by longest-prefix match and splits
// the number into calling code plus national part.
func (m *PhoneIntel) Investigate(ctx context.Context, entity domain.Entity, _ ports.Egress) (*domain.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digits := strings.TrimPrefix(entity.Value, "+")
	result := domain.NewModuleResult(moduleName)

	code, region := matchCallingCode(digits)
	if code == "" {
		result.AddFinding("calling_code", "unknown", "itu prefix table")
		return result, nil
	}

	result.AddFinding("calling_code", "+"+code, "itu prefix table")
	result.AddFinding("region", region, "itu prefix table")
	result.AddFinding("national_number", digits[len(code):], "itu prefix table")

	return result, nil
}

func (m *PhoneIntel) Close() error { return nil }

// matchCallingCode tries 3-, 2- then 1-digit prefixes.
func matchCallingCode(digits string) (code, region string) {
	for l := 3; l >= 1; l-- {
		if len(digits) <= l {
			continue
		}
		if r, ok := callingCodes[digits[:l]]; ok {
			return digits[:l], r
		}
	}
	return "", ""
}
