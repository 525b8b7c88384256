package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nikhilmehra04/stylehub-backend/pkg/errors"
)

type samplePayload struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1,max=10"`
}

func decode(t *testing.T, body string) (samplePayload, error) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	return payload, err
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	payload, err := decode(t, `{"name":"tee","quantity":2}`)
	require.NoError(t, err)
	require.Equal(t, "tee", payload.Name)
	require.Equal(t, 2, payload.Quantity)
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := decode(t, `{"name":`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := decode(t, `{"name":"tee","quantity":2,"extra":true}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyReportsFieldsByJSONTag(t *testing.T) {
	t.Parallel()

	_, err := decode(t, `{"quantity":99}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details should be a field->message map")
	require.Equal(t, "is required", details["name"])
	require.Equal(t, "must be at most 10", details["quantity"])
}
