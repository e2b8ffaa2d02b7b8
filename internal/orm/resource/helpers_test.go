package resource

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/orm/relationships"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// requestLog records "METHOD /path?unescaped-query" for every request the fake server sees
type requestLog struct {
	mu   sync.Mutex
	reqs []string
}

func (l *requestLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, entry)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.reqs...)
}

func (l *requestLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reqs)
}

func newTestClient(t *testing.T, routes func(r chi.Router), opts ...ClientOption) (*Client, *requestLog) {
	t.Helper()

	log := &requestLog{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			entry := req.Method + " " + req.URL.Path
			if q, err := url.QueryUnescape(req.URL.RawQuery); err == nil && q != "" {
				entry += "?" + q
			}
			log.add(entry)
			next.ServeHTTP(w, req)
		})
	})
	routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, err := connection.New(srv.URL)
	require.NoError(t, err)
	return NewClient(conn, opts...), log
}

func offlineClient(t *testing.T, site string, opts ...connection.Option) *Client {
	t.Helper()
	conn, err := connection.New(site, opts...)
	require.NoError(t, err)
	return NewClient(conn)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

// definePeople declares Person(name, age, bio extra) has_many projects and
// Project(title) belongs_to person
func definePeople(t *testing.T, c *Client) (person, project *Type) {
	t.Helper()

	person, err := c.Define("Person")
	require.NoError(t, err)
	require.NoError(t, person.Schema().String("name"))
	require.NoError(t, person.Schema().Integer("age"))
	require.NoError(t, person.Schema().String("bio", schema.Extra()))

	project, err = c.Define("Project")
	require.NoError(t, err)
	require.NoError(t, project.Schema().String("title"))

	_, err = person.HasMany("projects", relationships.Options{})
	require.NoError(t, err)
	_, err = project.BelongsTo("person", relationships.Options{})
	require.NoError(t, err)
	return person, project
}
