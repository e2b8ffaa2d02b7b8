package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/restorm/internal/cache"
)

type cachedResponse struct {
	Code   int         `json:"code"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

func (c *Connection) cached(ctx context.Context, key string) (*Response, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			c.logger.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}
	return &Response{Code: entry.Code, Header: entry.Header, Body: entry.Body}, true
}

func (c *Connection) store(ctx context.Context, key string, resp *Response) {
	data, err := json.Marshal(cachedResponse{Code: resp.Code, Header: resp.Header, Body: resp.Body})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// evict drops cached reads of the collection a write touched. Backends
// without prefix deletion are cleared entirely.
func (c *Connection) evict(ctx context.Context, method, p string) {
	var err error
	if d, ok := c.cache.(prefixDeleter); ok {
		err = d.DeletePrefix(ctx, cache.PathPrefix(collectionRoot(method, p)))
	} else {
		err = c.cache.Clear(ctx)
	}
	if err != nil {
		c.logger.Warn("response cache eviction failed", zap.String("path", p), zap.Error(err))
	}
}

// collectionRoot maps /people/1.json (or /people.json for POST) to /people
func collectionRoot(method, p string) string {
	p, _, _ = strings.Cut(p, "?")
	p = strings.TrimSuffix(p, path.Ext(p))
	if method != http.MethodPost {
		if dir := path.Dir(p); dir != "/" && dir != "." {
			p = dir
		}
	}
	return p
}
