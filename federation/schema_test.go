package federation_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation"
)

func TestNewSubGraph_ValidSDLAccepted(t *testing.T) {
	sdl := `
		type Product @key(fields: "upc") {
			upc: String!
			name: String
			price: Int
		}

		type Query {
			products: [Product]
		}
	`

	sg, err := federation.NewSubGraph("catalog", []byte(sdl), "http://catalog.example.com")
	if err != nil {
		t.Fatalf("NewSubGraph() unexpected error: %v", err)
	}
	if sg.Name != "catalog" || sg.Host != "http://catalog.example.com" {
		t.Errorf("NewSubGraph() = %+v, want Name=catalog Host=http://catalog.example.com", sg)
	}
}

func TestNewSubGraph_InvalidSDLRejected(t *testing.T) {
	sdl := `type Product { upc String! }` // missing colon, malformed field

	if _, err := federation.NewSubGraph("catalog", []byte(sdl), "http://catalog.example.com"); err == nil {
		t.Error("NewSubGraph() expected error for malformed SDL, got nil")
	}
}
