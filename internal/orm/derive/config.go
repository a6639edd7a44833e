package derive

import (
	"fmt"
	"sort"
	"strings"
)

// ValidatorOptions are passed through to the validation runtime untouched.
type ValidatorOptions struct {
	// AllowExtra accepts input keys the schema does not declare.
	AllowExtra  bool
	Title       string
	Description string
}

// Config controls the shape of a derived schema. It is a plain value: the
// With helpers return modified copies and never alias the receiver's slices.
type Config struct {
	// Name is appended to the resource name to name the schema.
	Name string

	// Include restricts the schema to the listed fields. Nil or empty means all.
	Include []string
	// Exclude removes the listed fields. Exclusion wins over inclusion.
	Exclude []string

	ExcludePrimaryKey bool
	NestOutgoing      bool
	NestBackrefs      bool
	AllOptional       bool

	Options ValidatorOptions
}

// DefaultConfig is the read configuration: every field, relations as keys,
// no back-relations.
func DefaultConfig() Config {
	return Config{}
}

// WriteConfig is the configuration used to validate create and update input.
func WriteConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "Write"
	cfg.ExcludePrimaryKey = true
	return cfg
}

// PartialUpdateConfig is WriteConfig with every field optional.
func PartialUpdateConfig() Config {
	cfg := WriteConfig()
	cfg.Name = "PartialUpdate"
	cfg.AllOptional = true
	return cfg
}

// WithName returns a copy with the given schema name suffix.
func (c Config) WithName(name string) Config {
	c = c.clone()
	c.Name = name
	return c
}

// WithInclude returns a copy restricted to the given fields.
func (c Config) WithInclude(names ...string) Config {
	c = c.clone()
	c.Include = append([]string(nil), names...)
	return c
}

// WithExclude returns a copy excluding the given fields.
func (c Config) WithExclude(names ...string) Config {
	c = c.clone()
	c.Exclude = append([]string(nil), names...)
	return c
}

// WithExcludePrimaryKey returns a copy with the primary-key switch set.
func (c Config) WithExcludePrimaryKey(v bool) Config {
	c = c.clone()
	c.ExcludePrimaryKey = v
	return c
}

// WithNestOutgoing returns a copy with outgoing-relation nesting set.
func (c Config) WithNestOutgoing(v bool) Config {
	c = c.clone()
	c.NestOutgoing = v
	return c
}

// WithNestBackrefs returns a copy with back-relation nesting set.
func (c Config) WithNestBackrefs(v bool) Config {
	c = c.clone()
	c.NestBackrefs = v
	return c
}

// WithAllOptional returns a copy with forced optionality set.
func (c Config) WithAllOptional(v bool) Config {
	c = c.clone()
	c.AllOptional = v
	return c
}

// WithOptions returns a copy with the given validator options.
func (c Config) WithOptions(opts ValidatorOptions) Config {
	c = c.clone()
	c.Options = opts
	return c
}

func (c Config) clone() Config {
	if c.Include != nil {
		c.Include = append([]string(nil), c.Include...)
	}
	if c.Exclude != nil {
		c.Exclude = append([]string(nil), c.Exclude...)
	}
	return c
}

// Key returns a canonical fingerprint. Configs with equal keys derive
// identical schemas from the same definition.
func (c Config) Key() string {
	return fmt.Sprintf("name=%s;include=%s;exclude=%s;pk=%t;fk=%t;back=%t;opt=%t;extra=%t;title=%s;desc=%s",
		c.Name,
		canonical(c.Include),
		canonical(c.Exclude),
		c.ExcludePrimaryKey,
		c.NestOutgoing,
		c.NestBackrefs,
		c.AllOptional,
		c.Options.AllowExtra,
		c.Options.Title,
		c.Options.Description,
	)
}

func canonical(names []string) string {
	if len(names) == 0 {
		return ""
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
