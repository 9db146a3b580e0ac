package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"notblank"`
}

type profileForm struct {
	FullName string `json:"fullName" validate:"notblank,max=10"`
	Handle   string `validate:"min=3,alphanum"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(loginForm{Username: "ab", Password: "pw1"})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(loginForm{Password: "pw1"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "username")
	assert.Equal(t, "is required", fields["username"])
}

func TestValidate_NotBlankRejectsWhitespace(t *testing.T) {
	err := Validate(loginForm{Username: "ab", Password: "   "})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["password"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	err := Validate(loginForm{Email: "not-an-email", Password: "pw1"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["email"])
}

func TestValidate_FallsBackToGoFieldName(t *testing.T) {
	err := Validate(profileForm{FullName: "A B", Handle: "a!"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Handle"], "at least 3")
}

func TestValidate_MaxLength(t *testing.T) {
	err := Validate(profileForm{FullName: "a very long name", Handle: "abc"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["fullName"], "at most 10")
}

func TestValidationError_MessagesSorted(t *testing.T) {
	err := Validate(profileForm{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msgs := valErr.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "Handle"))
	assert.True(t, strings.HasPrefix(msgs[1], "fullName"))
	assert.Contains(t, err.Error(), "fullName is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"username":"ab","password":"pw1"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var f loginForm
	err := DecodeAndValidate(req, &f)

	require.NoError(t, err)
	assert.Equal(t, "ab", f.Username)
	assert.Equal(t, "pw1", f.Password)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var f loginForm
	err := DecodeAndValidate(req, &f)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"password":"pw1"}`))

	var f loginForm
	err := DecodeAndValidate(req, &f)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
