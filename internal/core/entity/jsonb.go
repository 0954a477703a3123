package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScanJSON decodes a PostgreSQL JSONB value into dst.
// Numbers are decoded with UseNumber so decimal amounts keep their precision.
func ScanJSON(src any, dst any) error {
	if src == nil {
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON column: %T", src)
	}

	if len(source) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(source))
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode JSON column: %w", err)
	}
	return nil
}

// JSONValue encodes v for a JSONB column.
func JSONValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode JSON column: %w", err)
	}
	return b, nil
}
