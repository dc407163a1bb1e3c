package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestGateway(t *testing.T, sdl string) *gateway {
	t.Helper()
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "product.graphql")
	if err := os.WriteFile(schemaFile, []byte(sdl), 0o644); err != nil {
		t.Fatalf("failed to write test schema: %v", err)
	}

	gw, err := NewGateway(GatewayOption{
		Endpoint:    "/graphql",
		ServiceName: "test-gateway",
		Port:        8080,
		Services: []GatewayService{
			{Name: "product", Host: "http://product.example.com", SchemaFiles: []string{schemaFile}},
		},
	})
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}
	return gw
}

const productWithInaccessibleSDL = `
	type Product @key(fields: "id") {
		id: ID!
		name: String!
		internalCode: String! @inaccessible
	}

	type Query {
		product(id: ID!): Product
	}
`

func postQuery(t *testing.T, gw *gateway, query string) map[string]any {
	t.Helper()
	body, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	httpReq := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, httpReq)

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestGateway_InaccessibleFieldRejected(t *testing.T) {
	gw := newTestGateway(t, productWithInaccessibleSDL)

	resp := postQuery(t, gw, `{ product(id: "1") { id internalCode } }`)

	errs, ok := resp["errors"].([]any)
	if !ok || len(errs) == 0 {
		t.Fatalf("expected errors in response, got %+v", resp)
	}

	errMap, ok := errs[0].(map[string]any)
	if !ok {
		t.Fatalf("expected error entry to be an object, got %T", errs[0])
	}

	ext, ok := errMap["extensions"].(map[string]any)
	if !ok {
		t.Fatalf("expected extensions in error entry, got %+v", errMap)
	}
	if code, _ := ext["code"].(string); code != "OPERATION_VALIDATION_ERROR" {
		t.Errorf("expected code OPERATION_VALIDATION_ERROR, got %v", ext["code"])
	}
}

func TestGateway_AccessibleFieldSucceeds(t *testing.T) {
	gw := newTestGateway(t, productWithInaccessibleSDL)

	resp := postQuery(t, gw, `{ product(id: "1") { id name } }`)

	if errs, ok := resp["errors"].([]any); ok {
		for _, e := range errs {
			if errMap, ok := e.(map[string]any); ok {
				if ext, ok := errMap["extensions"].(map[string]any); ok {
					if code, _ := ext["code"].(string); code == "OPERATION_VALIDATION_ERROR" {
						t.Errorf("did not expect an OPERATION_VALIDATION_ERROR, got %+v", errMap)
					}
				}
			}
		}
	}
}
