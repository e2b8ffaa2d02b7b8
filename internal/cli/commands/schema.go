package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/restorm/internal/config"
	"github.com/conduit-lang/restorm/internal/connection"
	"github.com/conduit-lang/restorm/internal/orm/resource"
	"github.com/conduit-lang/restorm/internal/orm/schema"
)

// typeDoc is the YAML shape of one declared type
type typeDoc struct {
	Name         string            `yaml:"name"`
	Parent       string            `yaml:"parent,omitempty"`
	Element      string            `yaml:"element"`
	Collection   string            `yaml:"collection"`
	PrimaryKey   string            `yaml:"primary_key"`
	Singleton    bool              `yaml:"singleton,omitempty"`
	PrefixParams []string          `yaml:"prefix_params,omitempty"`
	Attributes   map[string]string `yaml:"attributes,omitempty"`
	Extra        map[string]string `yaml:"extra,omitempty"`
	ExtraDefault map[string]string `yaml:"extra_default,omitempty"`
	Associations []associationDoc  `yaml:"associations,omitempty"`
}

type associationDoc struct {
	Name        string `yaml:"name"`
	Macro       string `yaml:"macro"`
	ClassName   string `yaml:"class_name,omitempty"`
	ForeignKey  string `yaml:"foreign_key"`
	ForeignType string `yaml:"foreign_type,omitempty"`
	Extra       bool   `yaml:"extra,omitempty"`
}

func newSchemaCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "schema [type]",
		Short:             "Print declared resource types as YAML",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTypes(global),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := offlineClient(global.configPath)
			if err != nil {
				return err
			}

			types := client.Types()
			if len(args) == 1 {
				t, err := resolveType(client, args[0])
				if err != nil {
					return err
				}
				types = []*resource.Type{t}
			}

			docs := make([]typeDoc, 0, len(types))
			for _, t := range types {
				docs = append(docs, describe(t))
			}
			return encode(cmd.OutOrStdout(), docs, outputYAML)
		},
	}
}

// offlineClient declares the configured types on a client that never sends a request
func offlineClient(configPath string) (*resource.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	site := cfg.Site
	if site == "" {
		site = "http://localhost"
	}
	conn, err := connection.New(site)
	if err != nil {
		return nil, err
	}
	client := resource.NewClient(conn)
	if err := cfg.Apply(client); err != nil {
		return nil, err
	}
	return client, nil
}

func describe(t *resource.Type) typeDoc {
	doc := typeDoc{
		Name:         t.Name(),
		Element:      t.ElementName(),
		Collection:   t.CollectionName(),
		PrimaryKey:   t.PrimaryKey(),
		Singleton:    t.IsSingleton(),
		PrefixParams: t.PrefixParams(),
	}
	if p := t.Parent(); p != nil {
		doc.Parent = p.Name()
	}

	for _, cfg := range t.Schema().Attrs() {
		if cfg.Name == t.PrimaryKey() {
			continue
		}
		doc.Attributes = put(doc.Attributes, cfg.Name, kindName(cfg))
	}
	for _, cfg := range t.Schema().Extras() {
		if cfg.DefaultRequest {
			doc.ExtraDefault = put(doc.ExtraDefault, cfg.Name, kindName(cfg))
		} else {
			doc.Extra = put(doc.Extra, cfg.Name, kindName(cfg))
		}
	}

	for _, refl := range t.Reflections().All() {
		a := associationDoc{
			Name:       refl.Name,
			Macro:      refl.Macro.String(),
			ForeignKey: refl.ForeignKey(),
			Extra:      refl.IsExtra(),
		}
		if refl.Options.Polymorphic {
			a.ForeignType = refl.ForeignType()
		} else {
			a.ClassName = refl.ClassName("")
		}
		doc.Associations = append(doc.Associations, a)
	}
	return doc
}

func put(m map[string]string, key, value string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[key] = value
	return m
}

func kindName(cfg *schema.AttributeConfig) string {
	name := cfg.Type.Name
	if cfg.Array {
		name = "[]" + name
	}
	if cfg.WireName != "" && cfg.WireName != cfg.Name {
		name = fmt.Sprintf("%s (wire: %s)", name, cfg.WireName)
	}
	return name
}
