package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/autocrud/internal/cli/ui"
	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

type schemaOptions struct {
	config       string
	nestOutgoing bool
	nestBackrefs bool
	jsonSchema   bool
}

// NewSchemaCommand creates the schema command
func NewSchemaCommand(opts *rootOptions) *cobra.Command {
	so := &schemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema [resource]",
		Short: "Show the derived schema of one or every resource",
		Long: `Derive and print the validation schema of a resource, or of every
resource when none is named.

Examples:
  autocrud schema
  autocrud schema TestModel --config write
  autocrud schema TestModel --nest-outgoing --nest-backrefs
  autocrud schema TestModel --config partial --json-schema`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, opts, so, args)
		},
	}

	cmd.Flags().StringVar(&so.config, "config", "read", "derivation preset: read, write or partial")
	cmd.Flags().BoolVar(&so.nestOutgoing, "nest-outgoing", false, "embed referenced records instead of their keys")
	cmd.Flags().BoolVar(&so.nestBackrefs, "nest-backrefs", false, "include back-relation sequences")
	cmd.Flags().BoolVar(&so.jsonSchema, "json-schema", false, "print the JSON Schema document")

	return cmd
}

// deriveConfig maps the --config preset and nesting flags to a derivation
// configuration.
func (so *schemaOptions) deriveConfig() (derive.Config, error) {
	var cfg derive.Config
	switch strings.ToLower(so.config) {
	case "", "read":
		cfg = derive.DefaultConfig()
	case "write":
		cfg = derive.WriteConfig()
	case "partial", "partial_update":
		cfg = derive.PartialUpdateConfig()
	default:
		return cfg, fmt.Errorf("unknown schema config %q (expected read, write or partial)", so.config)
	}
	return cfg.WithNestOutgoing(so.nestOutgoing).WithNestBackrefs(so.nestBackrefs), nil
}

func runSchema(cmd *cobra.Command, opts *rootOptions, so *schemaOptions, args []string) error {
	deriveCfg, err := so.deriveConfig()
	if err != nil {
		return err
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	defs := registry.All()
	if len(args) == 1 {
		def, ok := registry.Get(args[0])
		if !ok {
			fmt.Fprint(cmd.ErrOrStderr(), ui.ResourceNotFoundError(args[0], registry.List(), color.NoColor))
			return fmt.Errorf("unknown resource %s", args[0])
		}
		defs = []*schema.ResourceSchema{def}
	}

	derived := make([]*derive.Schema, 0, len(defs))
	for _, def := range defs {
		s, err := derive.Derive(def, deriveCfg)
		if err != nil {
			return fmt.Errorf("resource %s: %w", def.Name, err)
		}
		derived = append(derived, s)
	}

	out := cmd.OutOrStdout()
	if so.jsonSchema {
		return writeJSONSchemas(out, derived, len(args) == 1)
	}

	for i, s := range derived {
		if i > 0 {
			fmt.Fprintln(out)
		}
		writeSchemaTable(out, s)
	}
	return nil
}

func writeJSONSchemas(out io.Writer, derived []*derive.Schema, single bool) error {
	var doc interface{}
	if single {
		doc = derive.JSONSchema(derived[0])
	} else {
		all := make(map[string]interface{}, len(derived))
		for _, s := range derived {
			all[s.Resource().Name] = derive.JSONSchema(s)
		}
		doc = all
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeSchemaTable(out io.Writer, s *derive.Schema) {
	ui.Header(out, s.Name(), color.NoColor)

	table := ui.NewTable(out, color.NoColor, "FIELD", "TYPE", "SHAPE", "REQUIRED", "DEFAULT")
	for _, f := range s.Fields() {
		table.AddRow(f.Name, fieldType(f), f.Shape.String(), yesNo(f.Required), fieldDefault(f))
	}
	table.Render()
}

func fieldType(f derive.SchemaField) string {
	switch f.Shape {
	case derive.ShapeNested:
		if f.Nullable {
			return f.Nested.Name() + "?"
		}
		return f.Nested.Name() + "!"
	case derive.ShapeNestedSeq:
		return "[]" + f.Nested.Name()
	}
	if f.Type == nil {
		return ""
	}
	return f.Type.String()
}

func fieldDefault(f derive.SchemaField) string {
	if !f.HasDefault {
		return ""
	}
	if f.Default == nil {
		return "null"
	}
	return fmt.Sprint(f.Default)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
