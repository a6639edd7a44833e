// Package actions implements the generic CRUD endpoints of a record
// definition: retrieve, list, create, update, partial update and delete.
// Responses are shaped by the definition's read schema; input is validated
// against its write or partial-update schema.
package actions

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/orm/validation"
	"github.com/conduit-lang/autocrud/internal/web/request"
	"github.com/conduit-lang/autocrud/internal/web/response"
	"github.com/conduit-lang/autocrud/internal/web/router"
)

// ViewSet serves the CRUD actions of one definition.
type ViewSet struct {
	def   *schema.ResourceSchema
	store store.Store

	engine *validation.Engine
	parser *request.Parser
	errors *ErrorHandlers
	logger *zap.Logger

	read    *derive.Schema
	write   *derive.Schema
	partial *derive.Schema
}

// Option configures a ViewSet.
type Option func(*viewSetOptions)

type viewSetOptions struct {
	engine     *validation.Engine
	cache      *derive.Cache
	parser     *request.Parser
	errors     *ErrorHandlers
	logger     *zap.Logger
	readConfig *derive.Config
}

// WithEngine shares a validation engine between viewsets.
func WithEngine(engine *validation.Engine) Option {
	return func(o *viewSetOptions) { o.engine = engine }
}

// WithDeriveCache shares a derivation cache between viewsets.
func WithDeriveCache(cache *derive.Cache) Option {
	return func(o *viewSetOptions) { o.cache = cache }
}

// WithParser sets the request body parser.
func WithParser(parser *request.Parser) Option {
	return func(o *viewSetOptions) { o.parser = parser }
}

// WithErrorHandlers sets the error translation registry.
func WithErrorHandlers(handlers *ErrorHandlers) Option {
	return func(o *viewSetOptions) { o.errors = handlers }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *viewSetOptions) { o.logger = logger }
}

// WithReadConfig replaces the read schema configuration, for example to
// nest outgoing relations or back-relations in responses.
func WithReadConfig(cfg derive.Config) Option {
	return func(o *viewSetOptions) { o.readConfig = &cfg }
}

// NewViewSet derives the read, write and partial-update schemas of def up
// front so derivation errors surface before any request is served.
func NewViewSet(def *schema.ResourceSchema, st store.Store, opts ...Option) (*ViewSet, error) {
	o := viewSetOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = validation.NewEngine()
	}
	if o.parser == nil {
		o.parser = request.NewParser()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.errors == nil {
		o.errors = DefaultErrorHandlers(o.logger)
	}

	factory := derive.NewFactory(def, o.cache)

	var err error
	v := &ViewSet{
		def:    def,
		store:  st,
		engine: o.engine,
		parser: o.parser,
		errors: o.errors,
		logger: o.logger.With(zap.String("resource", def.Name)),
	}

	if o.readConfig != nil {
		v.read, err = factory.Derive(*o.readConfig)
	} else {
		v.read, err = factory.Read()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to derive read schema: %w", err)
	}
	if v.write, err = factory.Write(); err != nil {
		return nil, fmt.Errorf("failed to derive write schema: %w", err)
	}
	if v.partial, err = factory.PartialUpdate(); err != nil {
		return nil, fmt.Errorf("failed to derive partial update schema: %w", err)
	}
	return v, nil
}

// Resource returns the definition served by the viewset.
func (v *ViewSet) Resource() *schema.ResourceSchema { return v.def }

// ReadSchema returns the schema used to shape responses.
func (v *ViewSet) ReadSchema() *derive.Schema { return v.read }

// WriteSchema returns the schema used to validate create and update input.
func (v *ViewSet) WriteSchema() *derive.Schema { return v.write }

// PartialUpdateSchema returns the schema used to validate partial updates.
func (v *ViewSet) PartialUpdateSchema() *derive.Schema { return v.partial }

// Handlers returns the action handlers for route registration.
func (v *ViewSet) Handlers() router.ResourceHandlers {
	return router.ResourceHandlers{
		List:          v.List,
		Create:        v.Create,
		Retrieve:      v.Retrieve,
		Update:        v.Update,
		PartialUpdate: v.PartialUpdate,
		Delete:        v.Delete,
	}
}

// Retrieve handles GET /{pk}.
func (v *ViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	key, err := router.PathKey(r, v.def)
	if err != nil {
		v.errors.Handle(w, r, err)
		return
	}

	rec, err := v.store.Find(r.Context(), v.def, key)
	if err != nil {
		v.errors.Handle(w, r, err)
		return
	}
	v.render(w, r, http.StatusOK, rec)
}

// List handles GET /.
func (v *ViewSet) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := v.store.FindAll(ctx, v.def)
	if err != nil {
		v.errors.Handle(w, r, err)
		return
	}
	defer rows.Close()

	docs := make([]*derive.Document, 0)
	for rows.Next() {
		doc, err := v.engine.Serialize(ctx, derive.View(rows.Record(), v.read, v.store))
		if err != nil {
			v.errors.Handle(w, r, v.responseError(err))
			return
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		v.errors.Handle(w, r, err)
		return
	}

	_ = response.RenderJSON(w, http.StatusOK, docs)
}

// Create handles POST /.
func (v *ViewSet) Create(w http.ResponseWriter, r *http.Request) {
	doc, ok := v.validate(w, r, v.write, validation.ValidateOptions{})
	if !ok {
		return
	}

	rec, err := v.store.Create(r.Context(), v.def, doc.Map())
	if err != nil {
		v.writeFailed(w, r, "create", err)
		return
	}
	v.logger.Debug("record created", zap.Any("key", primaryKeyValue(v.def, rec)))
	v.render(w, r, http.StatusCreated, rec)
}

// Update handles PUT /{pk}. Every write field is replaced; omitted optional
// fields take their default.
func (v *ViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, v.write, validation.ValidateOptions{})
}

// PartialUpdate handles PATCH /{pk}. Only supplied fields are changed.
func (v *ViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, v.partial, validation.ValidateOptions{Partial: true})
}

func (v *ViewSet) update(w http.ResponseWriter, r *http.Request, s *derive.Schema, opts validation.ValidateOptions) {
	key, err := router.PathKey(r, v.def)
	if err != nil {
		v.errors.Handle(w, r, err)
		return
	}

	doc, ok := v.validate(w, r, s, opts)
	if !ok {
		return
	}

	rec, err := v.store.Update(r.Context(), v.def, key, doc.Map())
	if err != nil {
		v.writeFailed(w, r, "update", err)
		return
	}
	v.render(w, r, http.StatusOK, rec)
}

// Delete handles DELETE /{pk} and responds 204 with no body.
func (v *ViewSet) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := router.PathKey(r, v.def)
	if err != nil {
		v.errors.Handle(w, r, err)
		return
	}

	if err := v.store.Delete(r.Context(), v.def, key); err != nil {
		v.writeFailed(w, r, "delete", err)
		return
	}
	response.RenderNoContent(w)
}

// writeFailed renders a store write error. Constraint violations are
// logged at info level.
func (v *ViewSet) writeFailed(w http.ResponseWriter, r *http.Request, action string, err error) {
	if store.IsConstraintViolation(err) {
		v.logger.Info("write rejected by constraint", zap.String("action", action), zap.Error(err))
	}
	v.errors.Handle(w, r, err)
}

func (v *ViewSet) validate(w http.ResponseWriter, r *http.Request, s *derive.Schema, opts validation.ValidateOptions) (*derive.Document, bool) {
	payload, err := v.parser.ParseObject(w, r)
	if err != nil {
		v.errors.Handle(w, r, err)
		return nil, false
	}

	doc, err := v.engine.Validate(s, payload, opts)
	if err != nil {
		v.errors.Handle(w, r, err)
		return nil, false
	}
	return doc, true
}

func (v *ViewSet) render(w http.ResponseWriter, r *http.Request, statusCode int, rec store.Record) {
	doc, err := v.engine.Serialize(r.Context(), derive.View(rec, v.read, v.store))
	if err != nil {
		v.errors.Handle(w, r, v.responseError(err))
		return
	}
	if err := response.RenderJSON(w, statusCode, doc); err != nil {
		v.logger.Error("failed to render response", zap.Error(err))
	}
}

// responseError keeps a stored record that does not fit the read schema
// from being reported to the client as a 422 on its own input.
func (v *ViewSet) responseError(err error) error {
	var verrs *validation.ValidationErrors
	if errors.As(err, &verrs) {
		return fmt.Errorf("stored %s does not match its read schema: %s", v.def.Name, verrs.Error())
	}
	return err
}

func primaryKeyValue(def *schema.ResourceSchema, rec store.Record) interface{} {
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil
	}
	value, _ := rec.Value(pk.Name)
	return value
}
