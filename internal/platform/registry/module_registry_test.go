package registry

import (
	"testing"

	"github.com/AzouC/Outils-Osintt/internal/core/domain"
	"github.com/AzouC/Outils-Osintt/internal/core/ports"
	"github.com/AzouC/Outils-Osintt/internal/platform/logx"
	"github.com/AzouC/Outils-Osintt/internal/testutil"
)

func mockFactory(name string, kinds ...domain.EntityKind) ModuleFactory {
	return func(cfg ports.ModuleConfig, logger logx.Logger) (ports.Module, error) {
		return testutil.NewMockModule(name, kinds...), nil
	}
}

func metaFor(name string, priority int, kinds ...domain.EntityKind) ports.ModuleMetadata {
	return ports.ModuleMetadata{
		Name:         name,
		Kinds:        kinds,
		Priority:     priority,
		SharedBucket: true,
	}
}

func TestRegister(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		r := NewModuleRegistry(logx.NewSilent())
		err := r.Register("web", mockFactory("web", domain.KindDomain), metaFor("web", 5, domain.KindDomain))
		testutil.AssertNoError(t, err, "register")
		testutil.AssertTrue(t, len(r.List()) == 1, "list length")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		r := NewModuleRegistry(logx.NewSilent())
		err := r.Register("", mockFactory("x", domain.KindDomain), metaFor("x", 5, domain.KindDomain))
		testutil.AssertError(t, err, "empty name")
	})

	t.Run("rejects nil factory", func(t *testing.T) {
		r := NewModuleRegistry(logx.NewSilent())
		err := r.Register("web", nil, metaFor("web", 5, domain.KindDomain))
		testutil.AssertError(t, err, "nil factory")
	})

	t.Run("rejects no kinds", func(t *testing.T) {
		r := NewModuleRegistry(logx.NewSilent())
		err := r.Register("web", mockFactory("web"), metaFor("web", 5))
		testutil.AssertError(t, err, "no kinds")
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		r := NewModuleRegistry(logx.NewSilent())
		meta := metaFor("web", 5, domain.KindDomain)
		testutil.AssertNoError(t, r.Register("web", mockFactory("web", domain.KindDomain), meta), "first")
		testutil.AssertError(t, r.Register("web", mockFactory("web", domain.KindDomain), meta), "duplicate")
	})
}

func TestBuild(t *testing.T) {
	newRegistry := func(t *testing.T) *ModuleRegistry {
		t.Helper()
		r := NewModuleRegistry(logx.NewSilent())
		must := func(err error) {
			if err != nil {
				t.Fatal(err)
			}
		}
		must(r.Register("emailintel", mockFactory("emailintel", domain.KindEmail), metaFor("emailintel", 10, domain.KindEmail)))
		must(r.Register("socialintel", mockFactory("socialintel", domain.KindEmail, domain.KindHandle), metaFor("socialintel", 5, domain.KindEmail, domain.KindHandle)))
		must(r.Register("walletintel", mockFactory("walletintel", domain.KindWallet), metaFor("walletintel", 5, domain.KindWallet)))
		return r
	}

	t.Run("builds all with defaults", func(t *testing.T) {
		set, err := newRegistry(t).Build(nil, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")
		testutil.AssertEqual(t, set.Len(), 3, "built count")
	})

	t.Run("capable order follows priority", func(t *testing.T) {
		set, err := newRegistry(t).Build(nil, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")

		ids := set.Capable(domain.KindEmail)
		testutil.AssertEqual(t, len(ids), 2, "email-capable modules")
		testutil.AssertEqual(t, ids[0], "emailintel", "higher priority first")
		testutil.AssertEqual(t, ids[1], "socialintel", "lower priority second")
	})

	t.Run("capable is fan-out not first-match", func(t *testing.T) {
		set, err := newRegistry(t).Build(nil, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")
		testutil.AssertTrue(t, len(set.Capable(domain.KindEmail)) > 1, "all capable modules returned")
	})

	t.Run("disabled modules are excluded", func(t *testing.T) {
		cfg := ports.DefaultModuleConfig()
		cfg.Enabled = false
		set, err := newRegistry(t).Build(map[string]ports.ModuleConfig{"socialintel": cfg}, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")
		testutil.AssertEqual(t, set.Len(), 2, "built count")
		testutil.AssertEqual(t, len(set.Capable(domain.KindHandle)), 0, "handle modules")
	})

	t.Run("unknown kind yields empty set", func(t *testing.T) {
		set, err := newRegistry(t).Build(nil, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")
		testutil.AssertEqual(t, len(set.Capable(domain.KindIP)), 0, "ip modules")
	})

	t.Run("module accessor", func(t *testing.T) {
		set, err := newRegistry(t).Build(nil, logx.NewSilent())
		testutil.AssertNoError(t, err, "build")
		m, ok := set.Module("walletintel")
		testutil.AssertTrue(t, ok, "module present")
		testutil.AssertEqual(t, m.Name(), "walletintel", "module name")
		_, ok = set.Module("ghost")
		testutil.AssertFalse(t, ok, "unknown module")
	})
}
