package actions

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/orm/validation"
	"github.com/conduit-lang/autocrud/internal/web/cache"
	"github.com/conduit-lang/autocrud/internal/web/request"
	"github.com/conduit-lang/autocrud/internal/web/router"
)

// MountConfig wires the shared collaborators of every viewset.
type MountConfig struct {
	Store  store.Store
	Parser *request.Parser
	Logger *zap.Logger

	// ResponseCache, when set, caches read actions per resource.
	ResponseCache *cache.ResponseCache

	// ReadConfigs overrides the read schema configuration per resource name.
	ReadConfigs map[string]derive.Config
}

// Mount registers a viewset for every definition of registry, in
// registration order, under /<snake_case(name)>.
func Mount(r *router.Router, registry *schema.Registry, cfg MountConfig) ([]*ViewSet, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shared := []Option{
		WithEngine(validation.NewEngine()),
		WithDeriveCache(derive.NewCache()),
		WithErrorHandlers(DefaultErrorHandlers(logger)),
		WithLogger(logger),
	}
	if cfg.Parser != nil {
		shared = append(shared, WithParser(cfg.Parser))
	}

	dependents := dependentNamespaces(registry, cfg.ReadConfigs)

	viewsets := make([]*ViewSet, 0, registry.Count())
	for _, def := range registry.All() {
		opts := shared
		if readCfg, ok := cfg.ReadConfigs[def.Name]; ok {
			opts = append(append([]Option(nil), shared...), WithReadConfig(readCfg))
		}

		vs, err := NewViewSet(def, cfg.Store, opts...)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", def.Name, err)
		}

		rd, err := router.NewResourceDefinition(def)
		if err != nil {
			return nil, err
		}

		handlers := vs.Handlers()
		if cfg.ResponseCache != nil {
			handlers = wrapHandlers(handlers, cfg.ResponseCache.Middleware(schema.SnakeCase(def.Name), dependents[def.Name]...))
		}
		if err := r.RegisterResource(rd, handlers); err != nil {
			return nil, fmt.Errorf("resource %s: %w", def.Name, err)
		}

		logger.Debug("mounted resource",
			zap.String("resource", def.Name),
			zap.String("path", rd.BasePath),
			zap.Int("actions", len(rd.Operations)),
		)
		viewsets = append(viewsets, vs)
	}
	return viewsets, nil
}

// dependentNamespaces maps each resource name to the cache namespaces of the
// resources whose read schema nests it, one level deep.
func dependentNamespaces(registry *schema.Registry, readConfigs map[string]derive.Config) map[string][]string {
	graph := registry.Graph()
	out := make(map[string][]string)
	add := func(written, reader string) {
		ns := schema.SnakeCase(reader)
		for _, existing := range out[written] {
			if existing == ns {
				return
			}
		}
		out[written] = append(out[written], ns)
	}

	for _, reader := range registry.List() {
		cfg, ok := readConfigs[reader]
		if !ok {
			continue
		}
		if cfg.NestOutgoing {
			for _, target := range graph.Dependencies(reader) {
				add(target, reader)
			}
		}
		if cfg.NestBackrefs {
			for _, source := range registry.List() {
				for _, target := range graph.Dependencies(source) {
					if target == reader {
						add(source, reader)
					}
				}
			}
		}
	}
	return out
}

func wrapHandlers(h router.ResourceHandlers, mw func(http.Handler) http.Handler) router.ResourceHandlers {
	wrap := func(fn http.HandlerFunc) http.HandlerFunc {
		return mw(fn).ServeHTTP
	}
	return router.ResourceHandlers{
		List:          wrap(h.List),
		Create:        wrap(h.Create),
		Retrieve:      wrap(h.Retrieve),
		Update:        wrap(h.Update),
		PartialUpdate: wrap(h.PartialUpdate),
		Delete:        wrap(h.Delete),
	}
}
