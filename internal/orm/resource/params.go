package resource

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// BuildBelongsToParams rewrites belongs_to association values in params into
// foreign key params. A polymorphic association whose records share one base
// type becomes <foreign_type> plus a list of ids; mixed types become a list of
// {type, id} pairs under the association name.
func (t *Type) BuildBelongsToParams(params map[string]any) error {
	registry := t.client.registry
	for _, refl := range t.reflections.Of(relationships.BelongsTo) {
		value, ok := params[refl.Name]
		if !ok || value == nil {
			continue
		}
		records, err := recordList(value)
		if err != nil {
			return fmt.Errorf("%s: %w", refl.Name, err)
		}
		delete(params, refl.Name)

		ids := make([]any, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID())
		}
		if !refl.Options.Polymorphic {
			params[refl.ForeignKey()] = ids
			continue
		}

		bases := mapset.NewThreadUnsafeSet[string]()
		for _, rec := range records {
			bases.Add(registry.RecordBaseName(rec))
		}
		if bases.Cardinality() == 1 {
			params[refl.ForeignType()] = registry.RecordBaseName(records[0])
			params[refl.ForeignKey()] = ids
			continue
		}

		pairs := make([]any, 0, len(records))
		for _, rec := range records {
			pairs = append(pairs, map[string]any{"type": registry.RecordBaseName(rec), "id": rec.ID()})
		}
		params[refl.Name] = pairs
	}
	return nil
}

// BuildHasManyParams rewrites has_many association values in params. With
// params options the values are converted and written under the configured
// name; otherwise each value's foreign key is collected under the primary key.
func (t *Type) BuildHasManyParams(ctx context.Context, params map[string]any) error {
	for _, refl := range t.reflections.Of(relationships.HasMany) {
		value, ok := params[refl.Name]
		if !ok || value == nil {
			continue
		}
		delete(params, refl.Name)
		values := anySlice(value)

		if po := refl.Options.ParamsOpts; po != nil {
			name := po.Name
			if name == "" {
				name = refl.Name
			}
			toParam := po.ToParam
			if toParam == nil {
				toParam = defaultToParam
			}
			out := make([]any, 0, len(values))
			for _, v := range values {
				out = append(out, toParam(v))
			}
			params[name] = out
			continue
		}

		fk := refl.ForeignKey()
		out := make([]any, 0, len(values))
		for _, v := range values {
			rec, ok := v.(*Record)
			if !ok || !rec.Responds(fk) {
				return fmt.Errorf("%w: associated object must have foreign_key method: %T don't have `%s`",
					schema.ErrInvalidValue, v, fk)
			}
			fkValue, err := rec.Get(ctx, fk)
			if err != nil {
				return err
			}
			out = append(out, fkValue)
		}
		params[t.primaryKey] = out
	}
	return nil
}

func defaultToParam(v any) any {
	if rec, ok := v.(*Record); ok {
		return rec.ID()
	}
	return v
}

func anySlice(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []*Record:
		out := make([]any, 0, len(l))
		for _, r := range l {
			out = append(out, r)
		}
		return out
	}
	return []any{v}
}

// ExtraParams returns the __extra__ entries of a find: the default extras
// unless none, every other extra when all, the requested names as wire names,
// and for each included association the target's default extras nested as
// {association: [fields]}.
func (t *Type) ExtraParams(requested []string, all, none bool, includes []string) []any {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []any
	add := func(name string) {
		if name != "" && seen.Add(name) {
			out = append(out, name)
		}
	}

	if !none {
		for _, wire := range t.defaultExtraNames() {
			add(wire)
		}
	}
	if all {
		for _, cfg := range t.schema.ExtraNotDefaults() {
			add(cfg.WireName)
		}
		for _, refl := range t.reflections.All() {
			if refl.Options.Extra && !refl.Options.ExtraDefault {
				add(refl.Name)
			}
		}
	}
	for _, name := range requested {
		if cfg, bucket, ok := t.schema.Lookup(name); ok && bucket == schema.BucketExtra {
			add(cfg.WireName)
		} else {
			add(name)
		}
	}

	for _, name := range includes {
		refl, ok := t.reflections.Get(name)
		if !ok || refl.Options.Polymorphic {
			continue
		}
		target, err := t.target(refl)
		if err != nil {
			continue
		}
		nested := target.defaultExtraNames()
		if len(nested) == 0 {
			continue
		}
		fields := make([]any, 0, len(nested))
		for _, field := range nested {
			fields = append(fields, field)
		}
		out = append(out, map[string]any{name: fields})
	}
	return out
}

// defaultExtraNames returns the wire names requested with every fetch:
// default extra attributes and default extra associations
func (t *Type) defaultExtraNames() []string {
	var names []string
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, cfg := range t.schema.DefaultExtras() {
		if seen.Add(cfg.WireName) {
			names = append(names, cfg.WireName)
		}
	}
	for _, refl := range t.reflections.All() {
		if refl.Options.ExtraDefault && seen.Add(refl.Name) {
			names = append(names, refl.Name)
		}
	}
	return names
}
