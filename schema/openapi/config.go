package openapi

import (
	"fmt"
	"strings"
)

// config describes the single save operation the document publishes.
type config struct {
	version     string
	title       string
	docVersion  string
	description string

	path        string
	method      string
	operationID string
	summary     string
	contentType string
	// responses maps status codes to descriptions.
	responses map[string]string

	rootComponent   string
	groupComponents bool
}

func defaultConfig() config {
	return config{
		version:     "3.0.3",
		title:       "Settings Schema",
		docVersion:  "1.0.0",
		path:        "/settings",
		method:      "put",
		contentType: "application/json",
		responses:   map[string]string{"204": "Saved"},
	}
}

var allowedMethods = map[string]bool{"put": true, "post": true, "patch": true}

// check rejects configurations that cannot produce a usable document.
func (c config) check() error {
	switch {
	case c.title == "" || c.docVersion == "":
		return fmt.Errorf("openapi: info title and version are required")
	case !strings.HasPrefix(c.path, "/"):
		return fmt.Errorf("openapi: operation path %q must start with /", c.path)
	case !allowedMethods[c.method]:
		return fmt.Errorf("openapi: method %q cannot carry a settings document", c.method)
	case len(c.responses) == 0:
		return fmt.Errorf("openapi: at least one response is required")
	}
	return nil
}

func (c config) opID() string {
	if c.operationID != "" {
		return c.operationID
	}
	return c.method + ":" + c.path
}

// GeneratorOption configures the OpenAPI generator.
type GeneratorOption func(*config)

// WithOpenAPIVersion overrides the OpenAPI version string (default 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(c *config) {
		if version != "" {
			c.version = version
		}
	}
}

// WithInfo sets the info block. Empty strings keep the defaults.
func WithInfo(title, version, description string) GeneratorOption {
	return func(c *config) {
		c.title = firstNonEmpty(title, c.title)
		c.docVersion = firstNonEmpty(version, c.docVersion)
		c.description = firstNonEmpty(description, c.description)
	}
}

// WithOperation sets the path, method and summary of the save operation.
// Empty strings keep the defaults.
func WithOperation(path, method, summary string) GeneratorOption {
	return func(c *config) {
		c.path = firstNonEmpty(path, c.path)
		c.method = strings.ToLower(firstNonEmpty(method, c.method))
		c.summary = firstNonEmpty(strings.TrimSpace(summary), c.summary)
	}
}

// WithOperationID replaces the "<method>:<path>" operation id.
func WithOperationID(id string) GeneratorOption {
	return func(c *config) {
		c.operationID = id
	}
}

// WithContentType sets the request body media type.
func WithContentType(contentType string) GeneratorOption {
	return func(c *config) {
		c.contentType = firstNonEmpty(contentType, c.contentType)
	}
}

// WithResponse adds or replaces the response documented for status.
func WithResponse(status, description string) GeneratorOption {
	return func(c *config) {
		if status == "" {
			return
		}
		responses := make(map[string]string, len(c.responses)+1)
		for code, text := range c.responses {
			responses[code] = text
		}
		responses[status] = description
		c.responses = responses
	}
}

// WithRootComponent publishes the values document under components as name.
func WithRootComponent(name string) GeneratorOption {
	return func(c *config) {
		c.rootComponent = name
	}
}

// WithGroupComponents publishes every override group under components,
// named after its path, so clients can submit groups independently.
func WithGroupComponents() GeneratorOption {
	return func(c *config) {
		c.groupComponents = true
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
