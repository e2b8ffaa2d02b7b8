// Package resource binds schemas, associations and queries to remote REST
// resources. A Client owns the transport and a catalog of Types; Records are
// instances of a Type loaded from or saved to the remote service.
package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/logging"
	"github.com/conduit-lang/restorm/internal/orm/recordmap"
)

// Transport executes requests against the remote service
type Transport interface {
	Request(ctx context.Context, method, path string, body []byte, header http.Header) (*connection.Response, error)
	Format() format.Format
}

// Client owns the transport, the type catalog and the record map
type Client struct {
	transport Transport
	format    format.Format
	registry  *recordmap.Registry
	logger    *zap.Logger
	location  *time.Location
	basePath  string

	mu    sync.RWMutex
	types map[string]*Type
	order []string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRegistry shares a record map between clients
func WithRegistry(r *recordmap.Registry) ClientOption {
	return func(c *Client) { c.registry = r }
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.OrNop(logger)
	}
}

// WithLocation sets the time zone datetime attributes are loaded in
func WithLocation(loc *time.Location) ClientOption {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithBasePath prefixes every default resource path
func WithBasePath(p string) ClientOption {
	return func(c *Client) { c.basePath = strings.TrimSuffix(p, "/") }
}

// NewClient creates a client over transport. The base path defaults to the
// transport's site path. The record map's type fallback is set to the
// client's catalog, so type names resolve without explicit bindings.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		format:    transport.Format(),
		registry:  recordmap.New(),
		logger:    zap.NewNop(),
		location:  time.UTC,
		types:     make(map[string]*Type),
	}
	if s, ok := transport.(interface{ Site() *url.URL }); ok {
		c.basePath = strings.TrimSuffix(s.Site().Path, "/")
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry.SetTypeFallback(c.lookupType)
	return c
}

func (c *Client) lookupType(name string) (recordmap.Type, bool) {
	t, ok := c.Type(name)
	if !ok {
		return nil, false
	}
	return t, true
}

// Define adds a root resource type to the catalog
func (c *Client) Define(name string, opts ...TypeOption) (*Type, error) {
	return c.define(name, nil, opts)
}

func (c *Client) define(name string, parent *Type, opts []TypeOption) (*Type, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.types[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	t, err := newType(c, name, parent, opts)
	if err != nil {
		return nil, err
	}
	c.types[name] = t
	c.order = append(c.order, name)
	return t, nil
}

// Type returns the type defined under name
func (c *Client) Type(name string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	return t, ok
}

// Types returns every defined type in definition order
func (c *Client) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Type, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.types[name])
	}
	return out
}

// Registry returns the record map used for polymorphic resolution
func (c *Client) Registry() *recordmap.Registry {
	return c.registry
}

// Logger returns the client logger
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Format returns the wire format of the transport
func (c *Client) Format() format.Format {
	return c.format
}

// Resolve maps a wire name or type name to a type through the record map
func (c *Client) Resolve(name string) (*Type, error) {
	rt, err := c.registry.MustResourceClass(name)
	if err != nil {
		return nil, err
	}
	t, ok := rt.(*Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s is bound to a foreign type", recordmap.ErrTypeNotFound, name)
	}
	return t, nil
}

// FindInstance builds a persisted stub of the type bound to wireName. No
// request is made.
func (c *Client) FindInstance(wireName string, id any) (*Record, error) {
	t, err := c.Resolve(wireName)
	if err != nil {
		return nil, err
	}
	return t.NewPersisted(id), nil
}
