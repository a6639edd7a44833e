package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
)

// KeyParam is the path parameter carrying the primary key.
const KeyParam = "pk"

// Operation is one of the generated CRUD actions.
type Operation int

const (
	// OpList is GET /
	OpList Operation = iota
	// OpCreate is POST /
	OpCreate
	// OpRetrieve is GET /{pk}
	OpRetrieve
	// OpUpdate is PUT /{pk}
	OpUpdate
	// OpPartialUpdate is PATCH /{pk}
	OpPartialUpdate
	// OpDelete is DELETE /{pk}
	OpDelete
)

// AllOperations lists the operations in registration order.
var AllOperations = []Operation{OpRetrieve, OpList, OpCreate, OpUpdate, OpPartialUpdate, OpDelete}

// String returns the action name used in route names.
func (o Operation) String() string {
	switch o {
	case OpList:
		return "list"
	case OpCreate:
		return "create"
	case OpRetrieve:
		return "retrieve"
	case OpUpdate:
		return "update"
	case OpPartialUpdate:
		return "partial_update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseOperation converts an action name to an Operation.
func ParseOperation(s string) (Operation, error) {
	for _, op := range AllOperations {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %s", s)
}

func (o Operation) method() string {
	switch o {
	case OpCreate:
		return http.MethodPost
	case OpUpdate:
		return http.MethodPut
	case OpPartialUpdate:
		return http.MethodPatch
	case OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

func (o Operation) onInstance() bool {
	return o != OpList && o != OpCreate
}

// ResourceDefinition describes where and how a record definition is mounted.
type ResourceDefinition struct {
	Name       string
	BasePath   string
	Operations []Operation
}

// NewResourceDefinition mounts def at /<snake_case(name)> with the actions
// the definition exposes.
func NewResourceDefinition(def *schema.ResourceSchema) (*ResourceDefinition, error) {
	ops := make([]Operation, 0, len(AllOperations))
	for _, action := range def.Actions {
		if _, err := ParseOperation(action); err != nil {
			return nil, fmt.Errorf("resource %s: %w", def.Name, err)
		}
	}
	for _, op := range AllOperations {
		if def.ExposesAction(op.String()) {
			ops = append(ops, op)
		}
	}

	return &ResourceDefinition{
		Name:       def.Name,
		BasePath:   "/" + schema.SnakeCase(def.Name),
		Operations: ops,
	}, nil
}

// RouteName returns "<snake_resource>_<action>".
func (d *ResourceDefinition) RouteName(op Operation) string {
	return schema.SnakeCase(d.Name) + "_" + op.String()
}

// Pattern returns the route pattern for op.
func (d *ResourceDefinition) Pattern(op Operation) string {
	if op.onInstance() {
		return fmt.Sprintf("%s/{%s}", d.BasePath, KeyParam)
	}
	return d.BasePath
}

// ResourceHandlers contains handlers for resource operations
type ResourceHandlers struct {
	List          http.HandlerFunc
	Create        http.HandlerFunc
	Retrieve      http.HandlerFunc
	Update        http.HandlerFunc
	PartialUpdate http.HandlerFunc
	Delete        http.HandlerFunc
}

// Validate checks that all required handlers are present
func (h *ResourceHandlers) Validate(operations []Operation) error {
	for _, op := range operations {
		if h.Handler(op) == nil {
			return fmt.Errorf("missing handler for operation: %s", op)
		}
	}
	return nil
}

// Handler returns the handler for the given operation
func (h *ResourceHandlers) Handler(op Operation) http.HandlerFunc {
	switch op {
	case OpList:
		return h.List
	case OpCreate:
		return h.Create
	case OpRetrieve:
		return h.Retrieve
	case OpUpdate:
		return h.Update
	case OpPartialUpdate:
		return h.PartialUpdate
	case OpDelete:
		return h.Delete
	default:
		return nil
	}
}

// RegisterResource registers the enabled operations of def.
func (r *Router) RegisterResource(def *ResourceDefinition, handlers ResourceHandlers) error {
	if err := handlers.Validate(def.Operations); err != nil {
		return fmt.Errorf("invalid handlers: %w", err)
	}

	for _, op := range def.Operations {
		route := r.handle(op.method(), def.Pattern(op), handlers.Handler(op))
		route.ResourceName = def.Name
		route.Operation = op
		if err := r.Named(route, def.RouteName(op)); err != nil {
			return fmt.Errorf("failed to register operation %s: %w", op, err)
		}
	}
	return nil
}

// PathKey parses the {pk} path parameter according to the primary key type.
func PathKey(req *http.Request, def *schema.ResourceSchema) (interface{}, error) {
	return store.ParseKey(def, chi.URLParam(req, KeyParam))
}
