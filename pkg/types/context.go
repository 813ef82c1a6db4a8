package types

import "github.com/google/uuid"

// RequestContext is the per-call correlation record threaded through plugin
// hooks. The executor creates a fresh context for every call and discards it
// at call completion; contexts are never shared across calls.
type RequestContext struct {
	RequestID  string
	ProviderID string
	Model      string
	Metadata   map[string]string
}

// NewRequestContext creates a context with a generated request ID
func NewRequestContext(providerID, model string) *RequestContext {
	return &RequestContext{
		RequestID:  uuid.New().String(),
		ProviderID: providerID,
		Model:      model,
		Metadata:   make(map[string]string),
	}
}

// Set stores a metadata value on the context
func (c *RequestContext) Set(key, value string) {
	c.Metadata[key] = value
}

// Get retrieves a metadata value from the context
func (c *RequestContext) Get(key string) (string, bool) {
	v, ok := c.Metadata[key]
	return v, ok
}
