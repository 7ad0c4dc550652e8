package handlers

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/3leaps/testharbor/internal/registry"
	"github.com/3leaps/testharbor/internal/suggest"
	"github.com/3leaps/testharbor/internal/validate"
)

// TestResultWriterName is the registry key the batching writer for
// test_result upserts is registered under. Shared between the lifecycle
// coordinator (which registers the writer) and these handlers (which
// enqueue into it), and matches the writers.test_result config section.
const TestResultWriterName registry.WriterName = "test_result"

// Deps bundles every dependency the domain handlers need, constructed
// once at startup by the lifecycle coordinator and installed with
// InitDomainHandlers — the same global-singleton pattern health.go uses
// for HealthManager, since chi's route table is built from package-level
// handler functions rather than method values on an injected struct.
type Deps struct {
	Reader    *sql.DB
	Writer    *sql.DB
	Registry  *registry.Registry
	Trie      *suggest.Trie
	Validator *validate.Validator
	Logger    *zap.Logger

	SuggestEnabled bool
	SuggestLimit   int

	// Now returns the current Unix timestamp; overridable in tests.
	Now func() int64
}

var globalDomain *Deps

// InitDomainHandlers installs the process-wide Deps used by every
// handler in this package. Called once during lifecycle startup.
func InitDomainHandlers(d *Deps) {
	globalDomain = d
}

func domain() *Deps {
	return globalDomain
}
