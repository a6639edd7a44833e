package cache

import (
	"bytes"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ResponseCache caches successful GET responses per resource namespace.
// A successful write drops the namespace and its dependents; a successful
// DELETE drops everything because deletes can cascade into other resources.
type ResponseCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResponseCache wraps backend. A nil logger discards cache errors.
func NewResponseCache(backend Cache, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{backend: backend, ttl: ttl, logger: logger}
}

type cachedResponse struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	ETag        string `json:"etag"`
}

// Key builds the cache key of a read request in namespace.
func Key(namespace string, r *http.Request) string {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if r.URL.RawQuery == "" {
		return namespace + ":" + path
	}

	query := r.URL.Query()
	parts := make([]string, 0, len(query))
	for key, values := range query {
		sort.Strings(values)
		for _, value := range values {
			parts = append(parts, key+"="+value)
		}
	}
	sort.Strings(parts)
	return namespace + ":" + path + "?" + strings.Join(parts, "&")
}

// Middleware caches reads and invalidates on writes for one namespace.
// dependents names the namespaces whose responses embed records of this one;
// they are dropped together with it.
func (c *ResponseCache) Middleware(namespace string, dependents ...string) func(http.Handler) http.Handler {
	prefixes := make([]string, 0, len(dependents)+1)
	prefixes = append(prefixes, namespace+":")
	for _, dep := range dependents {
		if dep != namespace {
			prefixes = append(prefixes, dep+":")
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				c.serveWrite(next, prefixes, w, r)
				return
			}
			c.serveRead(next, namespace, w, r)
		})
	}
}

func (c *ResponseCache) serveRead(next http.Handler, namespace string, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := Key(namespace, r)

	data, err := c.backend.Get(ctx, key)
	if err == nil {
		var cached cachedResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			if NotModified(w, r, cached.ETag) {
				return
			}
			w.Header().Set("Content-Type", cached.ContentType)
			w.Header().Set("ETag", cached.ETag)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(cached.StatusCode)
			_, _ = w.Write(cached.Body)
			return
		}
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
	} else if !IsCacheMiss(err) {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	recorder := newResponseRecorder()
	next.ServeHTTP(recorder, r)

	header := w.Header()
	for k, values := range recorder.header {
		header[k] = values
	}
	header.Set("X-Cache", "MISS")

	if recorder.statusCode == http.StatusOK {
		etag := GenerateETag(recorder.body.Bytes())
		header.Set("ETag", etag)

		entry, err := json.Marshal(cachedResponse{
			StatusCode:  recorder.statusCode,
			ContentType: recorder.header.Get("Content-Type"),
			Body:        recorder.body.Bytes(),
			ETag:        etag,
		})
		if err == nil {
			err = c.backend.Set(ctx, key, entry, c.ttl)
		}
		if err != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}

		if NotModified(w, r, etag) {
			return
		}
	}

	w.WriteHeader(recorder.statusCode)
	_, _ = w.Write(recorder.body.Bytes())
}

func (c *ResponseCache) serveWrite(next http.Handler, prefixes []string, w http.ResponseWriter, r *http.Request) {
	rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
	next.ServeHTTP(rw, r)

	if rw.statusCode < 200 || rw.statusCode >= 300 {
		return
	}

	if r.Method == http.MethodDelete {
		prefixes = []string{""}
	}
	for _, prefix := range prefixes {
		if err := c.backend.DeletePrefix(r.Context(), prefix); err != nil {
			c.logger.Warn("cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// responseRecorder buffers a response so it can be cached before sending.
type responseRecorder struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header), statusCode: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(b)
}

type statusWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
