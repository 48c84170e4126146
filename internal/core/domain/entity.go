package domain

import (
	"fmt"

	"github.com/AzouC/Outils-Osintt/internal/platform/validator"
)

// EntityKind classifies an investigation subject.
type EntityKind string

const (
	KindEmail  EntityKind = "email"
	KindDomain EntityKind = "domain"
	KindHandle EntityKind = "handle"
	KindWallet EntityKind = "wallet"
	KindPhone  EntityKind = "phone"
	KindIP     EntityKind = "ip"
	KindOther  EntityKind = "other"
)

// IsValid reports whether the kind is one of the supported values.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindEmail, KindDomain, KindHandle, KindWallet, KindPhone, KindIP, KindOther:
		return true
	}
	return false
}

func (k EntityKind) String() string { return string(k) }

// ParseKind maps a user-supplied string to an EntityKind.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Entity is an immutable investigation subject. Two entities are equal iff
// Kind and normalized Value match; Depth is the distance from the seed and
// is not part of identity.
type Entity struct {
	Kind  EntityKind `json:"kind"`
	Value string     `json:"value"`
	Depth int        `json:"depth"`
}

// NewEntity normalizes and validates a subject value for the given kind.
func NewEntity(kind EntityKind, value string, depth int) (Entity, error) {
	if !kind.IsValid() {
		return Entity{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if depth < 0 {
		return Entity{}, ErrNegativeDepth
	}

	normalized, ok := normalize(kind, value)
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s %q", ErrInvalidEntityValue, kind, value)
	}

	return Entity{Kind: kind, Value: normalized, Depth: depth}, nil
}

// normalize canonicalizes value per kind and reports whether it is valid.
func normalize(kind EntityKind, value string) (string, bool) {
	switch kind {
	case KindEmail:
		v := validator.NormalizeEmail(value)
		return v, validator.IsEmail(v)
	case KindDomain:
		v := validator.NormalizeDomain(value)
		return v, validator.IsDomain(v)
	case KindHandle:
		v := validator.NormalizeHandle(value)
		return v, validator.IsHandle(v)
	case KindWallet:
		v := validator.NormalizeWallet(value)
		return v, validator.IsWallet(v)
	case KindPhone:
		v := validator.NormalizePhone(value)
		return v, validator.IsPhone(v)
	case KindIP:
		v := validator.NormalizeIP(value)
		return v, v != ""
	case KindOther:
		if value == "" {
			return "", false
		}
		return value, true
	default:
		return "", false
	}
}

// Identity returns the dedup key for the entity: kind plus normalized value,
// ignoring depth.
func (e Entity) Identity() string {
	return string(e.Kind) + ":" + e.Value
}

// AtDepth returns a copy of the entity placed at the given depth.
func (e Entity) AtDepth(depth int) Entity {
	e.Depth = depth
	return e
}

// Same reports whether two entities name the same subject.
func (e Entity) Same(other Entity) bool {
	return e.Kind == other.Kind && e.Value == other.Value
}

func (e Entity) String() string {
	return fmt.Sprintf("%s(%s)@%d", e.Kind, e.Value, e.Depth)
}
