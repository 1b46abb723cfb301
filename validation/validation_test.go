package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Host   string `mapstructure:"host" validate:"required"`
	Port   int    `mapstructure:"port" validate:"min=1,max=65535"`
	Scheme string `mapstructure:"scheme" validate:"oneof=http https"`
	Inner  *inner `mapstructure:"auth" validate:"omitempty"`
}

type inner struct {
	Username string `mapstructure:"username" validate:"required_with=Password"`
	Password string `mapstructure:"password"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(sample{Host: "localhost", Port: 9000, Scheme: "http"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FieldNamesFollowMapstructure(t *testing.T) {
	err := Validate(sample{Port: 70000, Scheme: "ftp"})
	if err == nil {
		t.Fatal("expected error")
	}

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	for _, field := range []string{"host", "port", "scheme"} {
		if !verr.Has(field) {
			t.Errorf("expected %q in %v", field, verr.Fields)
		}
	}
	if !strings.Contains(err.Error(), "scheme: must be one of: http https") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidate_NestedNamespace(t *testing.T) {
	err := Validate(sample{Host: "h", Port: 1, Scheme: "https", Inner: &inner{Password: "p"}})
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *Error
	if !errors.As(err, &verr) || !verr.Has("auth.username") {
		t.Fatalf("expected auth.username error, got %v", err)
	}
}

func TestValidator_Programmatic(t *testing.T) {
	v := New()
	v.Required("name", "  ")
	v.Check(true, "ok", "never")
	v.Check(false, "owners", "must not be empty")

	if !v.HasErrors() {
		t.Fatal("expected errors")
	}
	err := v.Err()
	if err == nil || !strings.Contains(err.Error(), "name: is required") {
		t.Errorf("unexpected error %v", err)
	}
	if strings.Contains(err.Error(), "ok") {
		t.Errorf("passing check should not be reported: %v", err)
	}
}

func TestValidator_NoErrors(t *testing.T) {
	if err := New().Err(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ProxyURL": "proxy_u_r_l",
		"Host":     "host",
		"certFile": "cert_file",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
