package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T, descending into embedded
// structs such as entity.BaseEntity. Fields tagged "-" are skipped.
// Called once per repository at construction time.
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	return cols
}

type columnField struct {
	index  []int
	column string
}

type structMetadata struct {
	fields []columnField
}

// metadataCache holds *structMetadata per reflect.Type.
var metadataCache sync.Map

func metadataFor(t reflect.Type) *structMetadata {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := metadataCache.Load(t); ok {
		return cached.(*structMetadata)
	}

	meta := &structMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	metadataCache.Store(t, meta)
	return meta
}

func collectFields(t reflect.Type, prefix []int, meta *structMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, columnField{index: index, column: tag})
	}
}

// StructToMap maps column name to field value using "db" tags.
// Returns nil for non-struct values.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		res[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return res
}

// Columns returns the subset of StructToMap(v) named in cols.
func Columns(v any, cols []string) map[string]any {
	data := StructToMap(v)
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}
