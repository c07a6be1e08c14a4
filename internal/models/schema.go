package models

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/maruel/ksid"
)

// BookSchema returns the JSON Schema of a stored book record with inline
// properties (no $ref).
func BookSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeFor[ksid.ID]() {
				return &jsonschema.Schema{Type: "string"}
			}
			return nil
		},
	}
	return r.Reflect(&Book{})
}
