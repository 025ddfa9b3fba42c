package openapi

import (
	"sort"
)

// documentWriter renders the schema graph into an OpenAPI document whose
// single operation accepts the values document as its request body.
type documentWriter struct {
	cfg        config
	components *componentSet
}

func writeDocument(cfg config, root *schemaNode) (map[string]any, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	w := documentWriter{cfg: cfg, components: newComponentSet()}

	body := w.render(root)
	if cfg.rootComponent != "" {
		body = w.components.ref(cfg.rootComponent, root, body)
	}

	document := map[string]any{
		"openapi": cfg.version,
		"info":    w.info(),
		"paths": map[string]any{
			cfg.path: map[string]any{cfg.method: w.operation(body)},
		},
	}
	if schemas := w.components.schemas(); schemas != nil {
		document["components"] = map[string]any{"schemas": schemas}
	}
	return document, nil
}

func (w documentWriter) info() map[string]any {
	info := map[string]any{"title": w.cfg.title, "version": w.cfg.docVersion}
	if w.cfg.description != "" {
		info["description"] = w.cfg.description
	}
	return info
}

func (w documentWriter) operation(body map[string]any) map[string]any {
	codes := make([]string, 0, len(w.cfg.responses))
	for code := range w.cfg.responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	responses := make(map[string]any, len(codes))
	for _, code := range codes {
		responses[code] = map[string]any{"description": w.cfg.responses[code]}
	}

	op := map[string]any{
		"operationId": w.cfg.opID(),
		"requestBody": map[string]any{
			"required": true,
			"content":  map[string]any{w.cfg.contentType: map[string]any{"schema": body}},
		},
		"responses": responses,
	}
	if w.cfg.summary != "" {
		op["summary"] = w.cfg.summary
	}
	return op
}

// render emits node with its children.
func (w documentWriter) render(node *schemaNode) map[string]any {
	out := node.baseMap()
	if len(node.Properties) > 0 || node.Type == "object" && node.AdditionalProperties == nil {
		props := make(map[string]any, len(node.Properties))
		for _, key := range sortedKeys(node.Properties) {
			props[key] = w.property(node.Properties[key])
		}
		out["properties"] = props
	}
	if node.Items != nil {
		out["items"] = w.render(node.Items)
	}
	if node.AdditionalProperties != nil {
		out["additionalProperties"] = w.render(node.AdditionalProperties)
	}
	return out
}

// property replaces group boundaries with a $ref when group components are
// enabled.
func (w documentWriter) property(node *schemaNode) map[string]any {
	inline := w.render(node)
	if !w.cfg.groupComponents || node.group == "" {
		return inline
	}
	return w.components.ref(node.group, node, inline)
}
