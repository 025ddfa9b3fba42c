package openapi

import (
	settings "github.com/goliatone/go-settings"
)

type generator struct {
	config config
}

// NewGenerator constructs an OpenAPI 3 generator for settings schemas. The
// document describes one operation whose request body is the values document.
func NewGenerator(options ...GeneratorOption) settings.SchemaGenerator {
	cfg := defaultConfig()
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option returns a settings.Option that wires the OpenAPI generator into a
// tree build.
func Option(options ...GeneratorOption) settings.Option {
	return settings.WithSchemaGenerator(NewGenerator(options...))
}

func (g generator) Generate(schema settings.Descriptor) (settings.SchemaDocument, error) {
	root, err := buildSchemaGraph(schema)
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	document, err := writeDocument(g.config, root)
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	return settings.SchemaDocument{
		Format:   settings.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
