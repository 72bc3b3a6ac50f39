// Package common holds shared domain types used across packages to avoid
// circular imports.
package common

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ChoiceMap maps a choice id to its display label. Stored as JSONB.
type ChoiceMap map[string]string

// Value implements the driver.Valuer interface for database serialization
func (m ChoiceMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization
func (m *ChoiceMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, err := toBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan ChoiceMap: %w", err)
	}
	return json.Unmarshal(bytes, m)
}

// Clone returns a copy of the map so snapshots cannot alias live data
func (m ChoiceMap) Clone() ChoiceMap {
	if m == nil {
		return nil
	}
	out := make(ChoiceMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// VoteMatrix maps a choice id to the yes/no (1/0) votes cast per username.
// Stored as JSONB.
type VoteMatrix map[string]map[string]int

// Value implements the driver.Valuer interface for database serialization
func (m VoteMatrix) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization
func (m *VoteMatrix) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, err := toBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan VoteMatrix: %w", err)
	}
	return json.Unmarshal(bytes, m)
}

func toBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported source type %T", value)
	}
}
