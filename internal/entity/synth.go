package entity

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/autokuma/autokuma/internal/errs"
	"github.com/autokuma/autokuma/internal/expr"
	"github.com/autokuma/autokuma/internal/kuma"
	"github.com/autokuma/autokuma/internal/sources"
)

// Synthesize runs the full §4.3 pipeline over one tick's label bundles:
// snippet expansion, template rendering, default application, parsing,
// and the parent-cycle / dangling-reference passes. A failure
// synthesizing one bundle's entity is recorded and skipped; the rest of
// the tick proceeds (§4.3.1).
func Synthesize(bundles []sources.LabelBundle, cfg Config, storeIDs map[kuma.Kind][]string, log *logrus.Entry) Result {
	env := buildEnvContext(cfg.InsecureEnvAccess)

	var result Result
	for _, b := range bundles {
		ctx := make(map[string]any, len(b.Context)+1)
		for k, v := range b.Context {
			ctx[k] = v
		}
		ctx["env"] = env

		entities, entityErrs, err := synthesizeBundle(b, cfg, ctx)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Entities = append(result.Entities, entities...)
		result.Errors = append(result.Errors, entityErrs...)
	}

	result.Entities = dedupeByKindAndID(result.Entities, log)

	for _, warning := range breakParentCycles(result.Entities) {
		log.Warn(warning)
	}
	known := KnownIDs(result.Entities, storeIDs)
	for _, warning := range validateNameRefs(result.Entities, known) {
		log.Debug(warning)
	}

	return result
}

// synthesizeBundle synthesizes every entity found in one bundle. A
// parse/template failure for one ID within the bundle does not abort
// the others (§4.3.1's "Bundles with only partial failures emit the
// valid entities"); synthesizeBundle itself only returns an error for
// failures that prevent grouping the bundle at all (e.g. malformed
// label keys), which by construction of the source adapters should not
// happen in practice.
func synthesizeBundle(b sources.LabelBundle, cfg Config, ctx map[string]any) ([]Desired, []error, error) {
	expanded, err := expandSnippets(b.Labels, cfg.Snippets, ctx)
	if err != nil {
		return nil, nil, &errs.ParseError{AutokumaID: b.SourceID, Cause: err}
	}

	rendered := make(map[string]string, len(expanded))
	for k, v := range expanded {
		out, err := expr.Render(v, ctx)
		if err != nil {
			return nil, nil, &errs.TemplateError{AutokumaID: b.SourceID, Label: k, Cause: err}
		}
		rendered[k] = out
	}

	groups, err := groupByID(rendered)
	if err != nil {
		return nil, nil, &errs.ParseError{AutokumaID: b.SourceID, Cause: err}
	}

	var entities []Desired
	var entityErrs []error
	for id, g := range groups {
		desired, err := synthesizeEntity(id, g, cfg, ctx)
		if err != nil {
			// A single entity within this bundle failing must not drop
			// the others (§4.3.1); the error is still surfaced so the
			// reconciler can exclude it from the diff and log it.
			entityErrs = append(entityErrs, err)
			continue
		}
		entities = append(entities, desired)
	}
	return entities, entityErrs, nil
}

// dedupeByKindAndID enforces "Entity IDs are unique per kind within a
// single reconcile tick" (§3): the first producer wins, later
// duplicates are dropped with a warning rather than silently
// overwriting or aborting the tick.
func dedupeByKindAndID(entities []Desired, log *logrus.Entry) []Desired {
	seen := make(map[kuma.Kind]map[string]bool)
	out := make([]Desired, 0, len(entities))
	for _, e := range entities {
		if seen[e.Kind] == nil {
			seen[e.Kind] = make(map[string]bool)
		}
		if seen[e.Kind][e.AutokumaID] {
			log.Warnf("duplicate %s id %q this tick, keeping the first one synthesized", e.Kind, e.AutokumaID)
			continue
		}
		seen[e.Kind][e.AutokumaID] = true
		out = append(out, e)
	}
	return out
}

func synthesizeEntity(id string, g *grouped, cfg Config, ctx map[string]any) (Desired, error) {
	kind, monitorType, ok := kindForType(g.typ)
	if !ok {
		return Desired{}, &errs.ParseError{AutokumaID: id, Cause: fmt.Errorf("unrecognized type %q", g.typ)}
	}

	var specs []kuma.FieldSpec
	typeKey := g.typ
	switch kind {
	case kuma.KindMonitor:
		specs, _ = kuma.FieldsForType(monitorType)
	case kuma.KindTag:
		specs = kuma.TagFields
	case kuma.KindNotification:
		specs = kuma.NotificationFields
	case kuma.KindDockerHost:
		specs = kuma.DockerHostFields
	case kuma.KindStatusPage:
		specs = kuma.StatusPageFields
	case kuma.KindMaintenance:
		specs = kuma.MaintenanceFields
	}

	fieldNames := make([]string, len(specs))
	for i, s := range specs {
		fieldNames[i] = s.Name
	}
	if err := applyDefaults(g.settings, fieldNames, typeKey, cfg.DefaultSettings, ctx); err != nil {
		return Desired{}, &errs.ParseError{AutokumaID: id, Cause: err}
	}

	fields := kuma.Fields{}
	for _, spec := range specs {
		raw, present := g.settings[spec.Name]
		if !present {
			if spec.Required {
				return Desired{}, &errs.ParseError{AutokumaID: id, Cause: fmt.Errorf("missing required field %q", spec.Name)}
			}
			if spec.Default != nil {
				fields[spec.Name] = spec.Default
			}
			continue
		}
		coerced, err := coerceField(spec, raw)
		if err != nil {
			return Desired{}, &errs.ParseError{AutokumaID: id, Cause: fmt.Errorf("field %q: %w", spec.Name, err)}
		}
		fields[spec.Name] = coerced
		delete(g.settings, spec.Name)
	}
	// Unrecognized settings survive untouched, preserving round-trip
	// fidelity for fields the schema table doesn't know about (§4.5).
	for k, v := range g.settings {
		fields[k] = v
	}

	if kind == kuma.KindMonitor {
		fields["type"] = monitorType
	}

	return Desired{Kind: kind, AutokumaID: id, Fields: fields}, nil
}
