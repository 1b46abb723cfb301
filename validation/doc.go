// Package validation validates configuration and facade input.
//
// Struct tag validation uses go-playground/validator; field names in
// messages follow the mapstructure tag so they match configuration keys:
//
//	type Connection struct {
//	    Port int `mapstructure:"port" validate:"min=1,max=65535"`
//	}
//	err := validation.Validate(conn)
//
// Programmatic checks collect errors the same way:
//
//	v := validation.New()
//	v.Check(name != "", "name", "is required")
//	err := v.Err()
package validation
