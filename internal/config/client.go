package config

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/conduit-lang/restorm/internal/cache"
	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/logging"
	"github.com/conduit-lang/restorm/internal/orm/recordmap"
	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/resource"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// Runtime is a client built from a configuration together with the
// resources it owns
type Runtime struct {
	Client *resource.Client
	Logger *zap.Logger
	Cache  cache.Cache
}

// Close releases the cache connection and flushes the logger
func (r *Runtime) Close() error {
	var errs error
	if closer, ok := r.Cache.(interface{ Close() error }); ok {
		errs = multierr.Append(errs, closer.Close())
	}
	_ = r.Logger.Sync()
	return errs
}

// Open builds the logger, cache, connection and client described by c and
// installs every declared resource
func (c *Config) Open(ctx context.Context) (*Runtime, error) {
	logger, err := logging.New(c.Log)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Logger: logger}

	rt.Cache, err = c.newCache(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := c.ConnectionOptions(logger, rt.Cache)
	if err != nil {
		return nil, err
	}
	conn, err := connection.New(c.Site, opts...)
	if err != nil {
		return nil, err
	}

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	rt.Client = resource.NewClient(conn, resource.WithLogger(logger), resource.WithLocation(loc))
	if err := c.Apply(rt.Client); err != nil {
		return nil, multierr.Append(err, rt.Close())
	}

	logger.Debug("client ready",
		zap.String("site", conn.Site().String()),
		zap.Int("resources", len(c.Resources)),
		zap.String("cache", c.Cache.Backend))
	return rt, nil
}

func (c *Config) newCache(ctx context.Context) (cache.Cache, error) {
	common := cache.Config{DefaultTTL: c.Cache.TTL, Prefix: c.Cache.Prefix}
	switch c.Cache.Backend {
	case "memory":
		return cache.NewMemoryCacheWithConfig(common), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Cache:    common,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Cache.Redis.Addr, err)
		}
		return rc, nil
	}
	return nil, nil
}

// ConnectionOptions translates the transport settings into connection options
func (c *Config) ConnectionOptions(logger *zap.Logger, store cache.Cache) ([]connection.Option, error) {
	f, err := format.ByName(c.Format)
	if err != nil {
		return nil, err
	}

	opts := []connection.Option{connection.WithFormat(f), connection.WithLogger(logger)}
	if c.Timeout > 0 {
		opts = append(opts, connection.WithTimeout(c.Timeout))
	}
	if c.Retry.Attempts > 0 {
		opts = append(opts, connection.WithRetry(c.Retry.Attempts, c.Retry.Backoff))
	}
	if c.RateLimit.Requests > 0 {
		opts = append(opts, connection.WithRateLimit(c.RateLimit.Requests, c.RateLimit.Per))
	}
	for _, key := range slices.Sorted(maps.Keys(c.Headers)) {
		opts = append(opts, connection.WithHeader(key, c.Headers[key]))
	}
	if store != nil {
		opts = append(opts, connection.WithCache(store, c.Cache.TTL))
	}

	switch c.Auth.Type {
	case "basic":
		opts = append(opts, connection.WithBasicAuth(c.Auth.User, c.Auth.Password))
	case "bearer":
		opts = append(opts, connection.WithBearerToken(c.Auth.Token))
	case "jwt":
		opts = append(opts, connection.WithJWT(c.Auth.Secret, c.Auth.Subject, c.Auth.TTL))
	}
	return opts, nil
}

// Apply registers the money type, defines every declared resource on client,
// then binds the record map
func (c *Config) Apply(client *resource.Client) error {
	if err := schema.RegisterMoney(); err != nil {
		return err
	}
	for _, res := range c.Resources {
		if err := res.define(client); err != nil {
			return fmt.Errorf("resource %s: %w", res.Name, err)
		}
	}

	defaults, err := bindings(client, "default_record_map", c.DefaultRecordMap)
	if err != nil {
		return err
	}
	strict, err := bindings(client, "record_map", c.RecordMap)
	if err != nil {
		return err
	}

	registry := client.Registry()
	if err := registry.DefaultMultiSet(defaults); err != nil {
		return err
	}
	return registry.MultiSet(strict)
}

func bindings(client *resource.Client, key string, m map[string]string) (map[string]recordmap.Type, error) {
	out := make(map[string]recordmap.Type, len(m))
	for wire, name := range m {
		t, ok := client.Type(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s points to undeclared resource %s", ErrInvalidConfig, key, wire, name)
		}
		out[wire] = t
	}
	return out, nil
}

func (r ResourceConfig) typeOptions() []resource.TypeOption {
	var opts []resource.TypeOption
	if r.PrimaryKey != "" {
		opts = append(opts, resource.WithPrimaryKey(r.PrimaryKey))
	}
	if r.ElementName != "" {
		opts = append(opts, resource.WithElementName(r.ElementName))
	}
	if r.CollectionName != "" {
		opts = append(opts, resource.WithCollectionName(r.CollectionName))
	}
	if r.Prefix != "" {
		opts = append(opts, resource.WithPrefix(r.Prefix))
	}
	if r.CollectionPath != "" {
		opts = append(opts, resource.WithCollectionPath(r.CollectionPath))
	}
	if r.Singleton {
		opts = append(opts, resource.Singleton())
	}
	if r.IncludeRoot != nil && !*r.IncludeRoot {
		opts = append(opts, resource.WithoutRoot())
	}
	for _, key := range slices.Sorted(maps.Keys(r.Headers)) {
		opts = append(opts, resource.WithHeader(key, r.Headers[key]))
	}
	return opts
}

func (r ResourceConfig) define(client *resource.Client) error {
	var (
		t   *resource.Type
		err error
	)
	if r.Parent != "" {
		parent, ok := client.Type(r.Parent)
		if !ok {
			return fmt.Errorf("%w: unknown parent %s", ErrInvalidConfig, r.Parent)
		}
		t, err = parent.Subtype(r.Name, r.typeOptions()...)
	} else {
		t, err = client.Define(r.Name, r.typeOptions()...)
	}
	if err != nil {
		return err
	}

	s := t.Schema()
	for _, name := range slices.Sorted(maps.Keys(r.Attributes)) {
		if err := s.Attribute(name, r.Attributes[name]); err != nil {
			return err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.Extra)) {
		if err := s.ExtraAttribute(name, r.Extra[name]); err != nil {
			return err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(r.ExtraDefault)) {
		if err := s.ExtraAttribute(name, r.ExtraDefault[name], schema.ExtraDefault()); err != nil {
			return err
		}
	}
	for _, name := range r.Money {
		if err := t.Monetize(name); err != nil {
			return err
		}
	}

	for _, a := range r.BelongsTo {
		if _, err := t.BelongsTo(a.Name, a.options()); err != nil {
			return fmt.Errorf("belongs_to %s: %w", a.Name, err)
		}
	}
	for _, a := range r.HasMany {
		if _, err := t.HasMany(a.Name, a.options()); err != nil {
			return fmt.Errorf("has_many %s: %w", a.Name, err)
		}
	}
	for _, a := range r.HasOne {
		if _, err := t.HasOne(a.Name, a.options()); err != nil {
			return fmt.Errorf("has_one %s: %w", a.Name, err)
		}
	}
	return nil
}

func (a AssociationConfig) options() relationships.Options {
	return relationships.Options{
		ClassName:    a.ClassName,
		ForeignKey:   a.ForeignKey,
		ForeignType:  a.ForeignType,
		Polymorphic:  a.Polymorphic,
		As:           a.As,
		Extra:        a.Extra,
		ExtraDefault: a.ExtraDefault,
		Schema:       a.Schema,
	}
}
