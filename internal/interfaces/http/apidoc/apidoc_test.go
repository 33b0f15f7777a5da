package apidoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag/v2"
)

func TestDocument(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal(Document(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	info := doc["info"].(map[string]any)
	assert.Equal(t, "Storefront Backend API", info["title"])
}

func TestDocument_IsACopy(t *testing.T) {
	first := Document()
	first[0] = 'x'
	assert.NotEqual(t, first[0], Document()[0])
}

func TestOperations(t *testing.T) {
	ops, err := Operations()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /api/v1/system/info",
		"GET /health",
		"GET /ping",
		"PATCH /api/v1/products",
		"POST /api/v1/products",
		"PUT /api/v1/products",
	}, ops)
}

func TestRegister(t *testing.T) {
	Register()
	Register()

	doc, err := swag.ReadDoc(InstanceName)
	require.NoError(t, err)
	assert.JSONEq(t, string(Document()), doc)
}
