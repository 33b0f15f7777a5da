// Package apidoc publishes the OpenAPI document of the storefront API.
//
// The document is maintained by hand next to the routes it describes and is
// registered with swag, so gin-swagger serves it as doc.json.
package apidoc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/swaggo/swag/v2"
)

// InstanceName is the swag instance the document is registered under.
// gin-swagger reads this instance unless configured otherwise.
const InstanceName = "swagger"

//go:embed openapi.json
var document []byte

type openAPIDocument struct{}

// ReadDoc implements swag.Swagger
func (openAPIDocument) ReadDoc() string {
	return string(document)
}

var registerOnce sync.Once

// Register makes the document readable through swag.ReadDoc. Later calls
// are no-ops.
func Register() {
	registerOnce.Do(func() {
		swag.Register(InstanceName, openAPIDocument{})
	})
}

// Document returns a copy of the raw document
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Operations lists the documented operations as "METHOD /path", sorted
func Operations() ([]string, error) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("decode openapi document: %w", err)
	}

	var ops []string
	for path, item := range doc.Paths {
		for method := range item {
			switch method {
			case "get", "put", "post", "delete", "options", "head", "patch", "trace":
				ops = append(ops, strings.ToUpper(method)+" "+path)
			}
		}
	}
	sort.Strings(ops)
	return ops, nil
}
