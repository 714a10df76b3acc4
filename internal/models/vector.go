package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Vector is an embedding stored as a JSON array. An empty vector is written
// as SQL NULL so "embedding IS NULL" selects unembedded rows.
type Vector []float64

// Value implements the driver.Valuer interface
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (v *Vector) Scan(value interface{}) error {
	var raw []byte
	switch t := value.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if len(raw) == 0 || string(raw) == "null" {
		*v = nil
		return nil
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

// GormDataType implements schema.GormDataTypeInterface
func (Vector) GormDataType() string {
	return "json"
}

// GormDBDataType picks the JSON column type per dialect.
func (Vector) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "JSON"
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
