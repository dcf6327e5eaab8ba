package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name        string   `validate:"required"`
	ContactName string   `validate:"required"`
	Email       string   `validate:"required,email"`
	Tags        []string `validate:"min=1"`
	Role        string   `validate:"oneof=supplier customer"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Name: "Acme", ContactName: "Jo", Email: "jo@acme.io", Tags: []string{"x"}, Role: "supplier"})
	assert.NoError(t, err)
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := Struct(sample{Email: "nope", Role: "partner"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "required", fields["contact_name"])
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "min", fields["tags"])
	assert.Equal(t, "oneof", fields["role"])
	assert.Contains(t, err.Error(), "contact_name is required")
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("buyer@example.com"))
	assert.False(t, Email("buyer@"))
	assert.False(t, Email(""))
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "contact_name", toSnake("ContactName"))
	assert.Equal(t, "id", toSnake("ID"))
	assert.Equal(t, "supplier_id", toSnake("SupplierID"))
}
