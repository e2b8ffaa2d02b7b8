package resource

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/multierr"

	"github.com/conduit-lang/restorm/internal/orm/query"
	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// BelongsTo declares a belongs_to association. The foreign key (and foreign
// type when polymorphic) is declared as an attribute unless already present.
func (t *Type) BelongsTo(name string, opts relationships.Options) (*relationships.Reflection, error) {
	refl, err := relationships.New(t.name, t.elementName, relationships.BelongsTo, name, opts)
	if err != nil {
		return nil, err
	}
	if _, _, ok := t.schema.Lookup(refl.ForeignKey()); !ok {
		if err := t.schema.Integer(refl.ForeignKey()); err != nil {
			return nil, err
		}
	}
	if opts.Polymorphic {
		if _, _, ok := t.schema.Lookup(refl.ForeignType()); !ok {
			if err := t.schema.String(refl.ForeignType()); err != nil {
				return nil, err
			}
		}
	}

	acc := schema.Accessor{
		Get: func(ctx context.Context, st schema.Store) (any, error) {
			r, err := asRecord(st)
			if err != nil {
				return nil, err
			}
			return r.belongsTo(ctx, refl)
		},
		Set: func(st schema.Store, value any) error {
			r, err := asRecord(st)
			if err != nil {
				return err
			}
			return r.setBelongsTo(refl, value)
		},
	}
	return refl, t.defineAssociation(refl, acc)
}

// HasMany declares a has_many association. With Extra or ExtraDefault the
// collection arrives through the extra mechanism; a Schema option declares
// it as an extra array attribute of that type.
func (t *Type) HasMany(name string, opts relationships.Options) (*relationships.Reflection, error) {
	refl, err := relationships.New(t.name, t.elementName, relationships.HasMany, name, opts)
	if err != nil {
		return nil, err
	}

	if refl.IsExtra() {
		if opts.Schema != "" {
			attrOpts := []schema.Option{schema.Array(), schema.SkipAccessor()}
			if opts.ExtraDefault {
				attrOpts = append(attrOpts, schema.ExtraDefault())
			}
			if err := t.schema.ExtraAttribute(name, opts.Schema, attrOpts...); err != nil {
				return nil, err
			}
		}
		acc := schema.Accessor{
			Get: func(ctx context.Context, st schema.Store) (any, error) {
				r, err := asRecord(st)
				if err != nil {
					return nil, err
				}
				return r.extraHasMany(ctx, refl)
			},
		}
		return refl, t.defineAssociation(refl, acc)
	}

	acc := schema.Accessor{
		Get: func(ctx context.Context, st schema.Store) (any, error) {
			r, err := asRecord(st)
			if err != nil {
				return nil, err
			}
			return r.hasMany(ctx, refl)
		},
		Set: func(st schema.Store, value any) error {
			r, err := asRecord(st)
			if err != nil {
				return err
			}
			records, err := recordList(value)
			if err != nil {
				return err
			}
			r.assoc[refl.Name] = records
			return nil
		},
	}
	return refl, t.defineAssociation(refl, acc)
}

// HasOne declares a has_one association
func (t *Type) HasOne(name string, opts relationships.Options) (*relationships.Reflection, error) {
	refl, err := relationships.New(t.name, t.elementName, relationships.HasOne, name, opts)
	if err != nil {
		return nil, err
	}
	acc := schema.Accessor{
		Get: func(ctx context.Context, st schema.Store) (any, error) {
			r, err := asRecord(st)
			if err != nil {
				return nil, err
			}
			return r.hasOne(ctx, refl)
		},
	}
	return refl, t.defineAssociation(refl, acc)
}

// defineAssociation installs the accessor on t and every subtype. An earlier
// association of the same name is replaced; any other accessor collides.
func (t *Type) defineAssociation(refl *relationships.Reflection, acc schema.Accessor) error {
	acc.Name = refl.Name
	acc.Origin = schema.OriginAssociation

	var err error
	if existing, ok := t.methods.Lookup(refl.Name); ok && existing.Origin == schema.OriginAssociation {
		err = t.methods.Redefine(acc)
	} else {
		err = t.methods.Define(acc)
	}
	if err != nil {
		return err
	}
	t.reflections.Add(refl)

	var errs error
	for _, sub := range t.subtypes {
		errs = multierr.Append(errs, sub.defineAssociation(refl, acc))
	}
	return errs
}

func asRecord(st schema.Store) (*Record, error) {
	r, ok := st.(*Record)
	if !ok {
		return nil, fmt.Errorf("association accessor called on %T", st)
	}
	return r, nil
}

// recordList accepts a *Record, a []*Record or a []any of records
func recordList(value any) ([]*Record, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Record:
		return []*Record{v}, nil
	case []*Record:
		return v, nil
	case []any:
		out := make([]*Record, 0, len(v))
		for _, item := range v {
			r, ok := item.(*Record)
			if !ok {
				return nil, fmt.Errorf("%w: expected records, got %T", schema.ErrInvalidValue, item)
			}
			out = append(out, r)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected records, got %T", schema.ErrInvalidValue, value)
}

// resolveClass maps a class or wire name to a type of this client
func (t *Type) resolveClass(name string) (*Type, error) {
	if typ, ok := t.client.Type(name); ok {
		return typ, nil
	}
	return t.client.Resolve(name)
}

// target resolves the non-polymorphic target type of refl
func (t *Type) target(refl *relationships.Reflection) (*Type, error) {
	return t.resolveClass(refl.ClassName(""))
}

func (r *Record) belongsTo(ctx context.Context, refl *relationships.Reflection) (any, error) {
	if v, ok := r.assoc[refl.Name]; ok {
		return v, nil
	}
	id := r.attr(refl.ForeignKey())
	if id == nil {
		return nil, nil
	}

	var (
		target *Type
		err    error
	)
	if refl.Options.Polymorphic {
		ft, _ := r.attr(refl.ForeignType()).(string)
		if ft == "" {
			return nil, nil
		}
		target, err = r.typ.resolveClass(ft)
	} else {
		target, err = r.typ.target(refl)
	}
	if err != nil {
		return nil, err
	}

	rec, err := target.Where(map[string]any{target.primaryKey: id}).First(ctx)
	if err != nil {
		return nil, err
	}
	var v any
	if rec != nil {
		v = rec
	}
	r.assoc[refl.Name] = v
	return v, nil
}

func (r *Record) setBelongsTo(refl *relationships.Reflection, value any) error {
	switch obj := value.(type) {
	case nil:
		r.attrs.Set(refl.ForeignKey(), nil)
		if refl.Options.Polymorphic {
			r.attrs.Set(refl.ForeignType(), nil)
		}
		r.assoc[refl.Name] = nil
	case *Record:
		r.attrs.Set(refl.ForeignKey(), obj.ID())
		if refl.Options.Polymorphic {
			r.attrs.Set(refl.ForeignType(), r.typ.client.registry.RecordBaseName(obj))
		}
		r.assoc[refl.Name] = obj
	default:
		return fmt.Errorf("%w: %s expects a record, got %T", schema.ErrInvalidValue, refl.Name, value)
	}
	return nil
}

// hasManyParams returns the params of one has_many fetch: the declared
// params plus the owner's foreign key
func (r *Record) hasManyParams(refl *relationships.Reflection) map[string]any {
	params := make(map[string]any)
	if po := refl.Options.ParamsOpts; po != nil {
		maps.Copy(params, po.Params)
	}
	params[refl.ForeignKey()] = r.ID()
	return params
}

// HasManyScope returns the lazy query behind a has_many association of a saved record
func (r *Record) HasManyScope(name string) (*query.Delegation[*Record], error) {
	refl, err := r.typ.reflections.MustGet(name)
	if err != nil {
		return nil, err
	}
	if refl.Macro != relationships.HasMany || refl.IsExtra() {
		return nil, fmt.Errorf("%w: %s is not a fetched has_many", relationships.ErrInvalidOptions, name)
	}
	if r.IsNew() {
		return nil, fmt.Errorf("%w: scope %s of %s", ErrNotPersisted, name, r.typ.name)
	}
	target, err := r.typ.target(refl)
	if err != nil {
		return nil, err
	}
	return r.hasManyScope(refl, target), nil
}

func (r *Record) hasManyScope(refl *relationships.Reflection, target *Type) *query.Delegation[*Record] {
	params := r.hasManyParams(refl)
	if className := refl.ClassName(""); r.typ.client.registry.Bound(className) {
		params[query.KeyType] = className
	}
	return target.Where(params)
}

func (r *Record) hasMany(ctx context.Context, refl *relationships.Reflection) (any, error) {
	if v, ok := r.assoc[refl.Name]; ok {
		return v, nil
	}

	target, err := r.typ.target(refl)
	if err != nil {
		return nil, err
	}

	if raw, ok := r.attrs.Get(refl.Name); ok {
		records, err := target.inlineCollection(ctx, raw, r.prefixOptions)
		if err != nil {
			return nil, err
		}
		r.assoc[refl.Name] = records
		return records, nil
	}

	if r.IsNew() {
		records := []*Record{}
		r.assoc[refl.Name] = records
		return records, nil
	}

	var records []*Record
	switch {
	case refl.Options.GetterMyself, refl.Options.Getter != nil:
		params, err := getterParams(r.hasManyParams(refl))
		if err != nil {
			return nil, err
		}
		var payload any
		if refl.Options.GetterMyself {
			payload, err = r.CustomGet(ctx, refl.Name, params)
		} else {
			payload, err = refl.Options.Getter(ctx, r, params)
		}
		if err != nil {
			return nil, err
		}
		if m, ok := payload.(map[string]any); ok {
			payload = m["results"]
		}
		records, err = target.instantiateCollection(ctx, payload, nil)
		if err != nil {
			return nil, err
		}
	default:
		records, err = r.hasManyScope(refl, target).All(ctx)
		if err != nil {
			return nil, err
		}
	}

	r.assoc[refl.Name] = records
	return records, nil
}

// getterParams moves an order_by param to the wire key for custom getters
func getterParams(params map[string]any) (map[string]any, error) {
	raw, ok := params["order_by"]
	if !ok {
		return params, nil
	}
	delete(params, "order_by")
	orders, err := query.NormalizeOrder(raw)
	if err != nil {
		return nil, err
	}
	order := query.NewOrderBy()
	order.Apply(orders...)
	if order.Len() > 0 {
		params[query.KeyOrderBy] = order.Wire()
	}
	return params, nil
}

func (r *Record) extraHasMany(ctx context.Context, refl *relationships.Reflection) (any, error) {
	if v, ok := r.assoc[refl.Name]; ok {
		return v, nil
	}

	raw, ok := r.extra.Get(refl.Name)
	if !ok {
		if err := r.LoadExtra(ctx, refl.Name); err != nil {
			return nil, err
		}
		raw, _ = r.extra.Get(refl.Name)
	}

	v, err := r.extraCollection(ctx, refl, raw)
	if err != nil {
		return nil, err
	}
	r.assoc[refl.Name] = v
	return v, nil
}

// extraCollection instantiates object elements as records of the target
// type. Scalar payloads, such as an array of ids, are returned as loaded.
func (r *Record) extraCollection(ctx context.Context, refl *relationships.Reflection, raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return raw, nil
	}
	if _, isObject := items[0].(map[string]any); !isObject {
		return raw, nil
	}
	target, err := r.typ.target(refl)
	if err != nil {
		return nil, err
	}
	return target.instantiateCollection(ctx, items, nil)
}

func (t *Type) inlineCollection(ctx context.Context, raw any, prefixOptions map[string]any) ([]*Record, error) {
	if records, err := recordList(raw); err == nil {
		return records, nil
	}
	return t.instantiateCollection(ctx, raw, prefixOptions)
}

func (r *Record) hasOne(ctx context.Context, refl *relationships.Reflection) (any, error) {
	if v, ok := r.assoc[refl.Name]; ok {
		return v, nil
	}

	target, err := r.typ.target(refl)
	if err != nil {
		return nil, err
	}

	var rec *Record
	if raw, ok := r.attrs.Get(refl.Name); ok {
		switch v := raw.(type) {
		case *Record:
			rec = v
		case nil:
		default:
			if rec, err = target.Instantiate(ctx, v, true, nil); err != nil {
				return nil, err
			}
		}
	} else if r.IsNew() {
		return nil, nil
	} else if target.singleton {
		rec, err = target.FindSingleton(ctx, query.FindOptions{
			Params: map[string]any{r.typ.elementName + "_id": r.ID()},
		})
	} else {
		var from string
		from, err = r.hasOnePath(refl.Name)
		if err == nil {
			rec, err = target.FindOne(ctx, query.FindOptions{From: from})
		}
	}
	if err != nil {
		return nil, err
	}

	var v any
	if rec != nil {
		v = rec
	}
	r.assoc[refl.Name] = v
	return v, nil
}

func (r *Record) hasOnePath(name string) (string, error) {
	prefix, err := r.typ.Prefix(r.prefixOptions)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s/%v/%s%s", prefix, r.typ.collectionName, r.ID(), name, r.typ.ext()), nil
}

// BelongsTo reads a belongs_to association as a record
func (r *Record) BelongsTo(ctx context.Context, name string) (*Record, error) {
	return r.single(ctx, name, relationships.BelongsTo)
}

// HasOne reads a has_one association as a record
func (r *Record) HasOne(ctx context.Context, name string) (*Record, error) {
	return r.single(ctx, name, relationships.HasOne)
}

func (r *Record) single(ctx context.Context, name string, macro relationships.Macro) (*Record, error) {
	if err := r.checkMacro(name, macro); err != nil {
		return nil, err
	}
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	rec, ok := v.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrUnexpectedPayload, name, v)
	}
	return rec, nil
}

// HasMany reads a has_many association as records
func (r *Record) HasMany(ctx context.Context, name string) ([]*Record, error) {
	if err := r.checkMacro(name, relationships.HasMany); err != nil {
		return nil, err
	}
	v, err := r.Get(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	records, err := recordList(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is %T", ErrUnexpectedPayload, name, v)
	}
	return records, nil
}

func (r *Record) checkMacro(name string, macro relationships.Macro) error {
	refl, err := r.typ.reflections.MustGet(name)
	if err != nil {
		return err
	}
	if refl.Macro != macro {
		return fmt.Errorf("%w: %s is a %s", relationships.ErrInvalidOptions, name, refl.Macro)
	}
	return nil
}

// ResetAssociation drops the memoized value of an association
func (r *Record) ResetAssociation(name string) {
	delete(r.assoc, name)
}
