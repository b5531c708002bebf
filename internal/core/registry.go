package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ObjectDefinition contains everything needed to build one object type.
type ObjectDefinition struct {
	Type     ObjectType
	Label    string   // Display name: "Downhole collection"
	SchemaID string   // Schema reference written into the output document
	Files    []string // File roles the request must supply, for listings

	// DecodeMapping parses the type's column_mapping variant.
	DecodeMapping func(raw json.RawMessage) (ColumnMapping, error)

	// Build turns resolved tables into draft content. It reports
	// MalformedInputError for unusable cells and never validates structure.
	Build func(m *ResolvedMapping) (Content, error)

	// Validate records the type-specific structural findings.
	Validate func(c Content, r *ValidationReport)
}

var (
	registry   = make(map[ObjectType]ObjectDefinition)
	registryMu sync.RWMutex
)

// Register adds an object definition to the registry.
// Panics if the type is already registered.
func Register(def ObjectDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("object type already registered: %s", def.Type))
	}
	if def.DecodeMapping == nil || def.Build == nil {
		panic(fmt.Sprintf("object type %s: DecodeMapping and Build are required", def.Type))
	}

	registry[def.Type] = def
}

// Get returns an object definition by type.
func Get(t ObjectType) (ObjectDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[t]
	return def, ok
}

// All returns all registered definitions sorted by type.
func All() []ObjectDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ObjectDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})

	return result
}

// TypeCount returns the number of registered object types.
func TypeCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
