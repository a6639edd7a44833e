package derive

import (
	"sync"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

type cacheKey struct {
	resource *schema.ResourceSchema
	config   string
}

// Cache memoizes derivations per definition identity and Config.Key.
// Failed derivations are not cached.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*Schema
}

// NewCache creates an empty derivation cache
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*Schema)}
}

// Derive returns the cached schema for (def, cfg), deriving it on first use.
func (c *Cache) Derive(def *schema.ResourceSchema, cfg Config) (*Schema, error) {
	key := cacheKey{resource: def, config: cfg.Key()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.entries[key]; ok {
		return s, nil
	}
	s, err := Derive(def, cfg)
	if err != nil {
		return nil, err
	}
	c.entries[key] = s
	return s, nil
}

// Len returns the number of cached schemas
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type lazySchema struct {
	once   sync.Once
	schema *Schema
	err    error
}

func (l *lazySchema) get(derive func() (*Schema, error)) (*Schema, error) {
	l.once.Do(func() {
		l.schema, l.err = derive()
	})
	return l.schema, l.err
}

// Factory hands out the read, write and partial-update schemas of one
// definition, deriving each on first request.
type Factory struct {
	def   *schema.ResourceSchema
	cache *Cache

	read    lazySchema
	write   lazySchema
	partial lazySchema
}

// NewFactory creates a factory for def. A nil cache gets a private one.
func NewFactory(def *schema.ResourceSchema, cache *Cache) *Factory {
	if cache == nil {
		cache = NewCache()
	}
	return &Factory{def: def, cache: cache}
}

// Resource returns the definition behind the factory.
func (f *Factory) Resource() *schema.ResourceSchema { return f.def }

// Read returns the schema used to shape responses.
func (f *Factory) Read() (*Schema, error) {
	return f.read.get(func() (*Schema, error) { return f.cache.Derive(f.def, DefaultConfig()) })
}

// Write returns the schema used to validate create and update input.
func (f *Factory) Write() (*Schema, error) {
	return f.write.get(func() (*Schema, error) { return f.cache.Derive(f.def, WriteConfig()) })
}

// PartialUpdate returns the schema used to validate partial updates.
func (f *Factory) PartialUpdate() (*Schema, error) {
	return f.partial.get(func() (*Schema, error) { return f.cache.Derive(f.def, PartialUpdateConfig()) })
}

// Derive derives an arbitrary configuration through the shared cache.
func (f *Factory) Derive(cfg Config) (*Schema, error) {
	return f.cache.Derive(f.def, cfg)
}
