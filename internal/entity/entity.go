// Package entity implements the §4.3 entity synthesizer: the pipeline
// that turns a source adapter's raw label bundles into the desired
// entity set the reconciler diffs against the remote server.
package entity

import (
	"github.com/autokuma/autokuma/internal/kuma"
)

// Desired is one synthesized entity: a stable AutoKuma ID, its kind, and
// its fully coerced field set.
type Desired struct {
	Kind       kuma.Kind
	AutokumaID string
	Fields     kuma.Fields
}

// Config parametrizes synthesis: the snippet library, default-settings
// table, and the env-access policy gating `{{ env.X }}` (§6.2
// insecure_env_access).
type Config struct {
	Snippets        map[string]string
	DefaultSettings map[string]string // "<type_or_*>.<field>" -> template source
	InsecureEnvAccess bool
}

// Result is the outcome of synthesizing one tick's label bundles:
// the valid entities plus one error per entity that failed in
// isolation (§4.3.1).
type Result struct {
	Entities []Desired
	Errors   []error
}
