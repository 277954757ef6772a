package descriptor

import (
	"encoding/json"
	"fmt"
)

// Field is a single column of a record schema.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the record schema captured when a plan is expanded. It is
// compared structurally to detect drift between the schema a descriptor was
// expanded against and the schema the catalog currently reports.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Equal reports whether two schemas are structurally identical: same fields,
// same types, same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f != other.Fields[i] {
			return false
		}
	}
	return true
}

// Serialize encodes the schema into the form stored on a dataset config.
func (s Schema) Serialize() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("descriptor: failed to serialize schema: %w", err)
	}
	return b, nil
}

// DeserializeSchema decodes a schema previously produced by Serialize.
func DeserializeSchema(b []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return Schema{}, fmt.Errorf("descriptor: failed to deserialize schema: %w", err)
	}
	return s, nil
}
