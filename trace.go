package settings

import (
	"encoding/json"
)

// Trace captures the provenance of one node: where its value came from and
// which group boundary governs its override.
type Trace struct {
	Path          string `json:"path"`
	Kind          string `json:"kind"`
	State         string `json:"state"`
	Group         string `json:"group,omitempty"`
	Default       any    `json:"default,omitempty"`
	Override      any    `json:"override,omitempty"`
	Current       any    `json:"current,omitempty"`
	Overridden    bool   `json:"overridden"`
	WasOverridden bool   `json:"was_overridden"`
	Modified      bool   `json:"modified"`
	Invalid       bool   `json:"invalid,omitempty"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
