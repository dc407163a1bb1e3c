package apierror_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation/apierror"
)

func TestError_ErrorStringIncludesCode(t *testing.T) {
	err := apierror.Unauthenticated([]interface{}{"product", "secret"}, "not authenticated")
	want := "UNAUTHENTICATED: not authenticated"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_ExtensionsCarriesCodeAndExtra(t *testing.T) {
	err := apierror.SubgraphErr([]interface{}{"product"}, "boom", "review")

	ext := err.Extensions()
	if ext["code"] != string(apierror.CodeSubgraphError) {
		t.Errorf("expected code %s, got %v", apierror.CodeSubgraphError, ext["code"])
	}
	if ext["serviceName"] != "review" {
		t.Errorf("expected serviceName=review, got %v", ext["serviceName"])
	}
}

func TestError_ExtensionsWithoutExtra(t *testing.T) {
	err := apierror.OperationPlanning("no viable plan")
	ext := err.Extensions()
	if len(ext) != 1 {
		t.Fatalf("expected exactly one extension (code), got %v", ext)
	}
	if ext["code"] != string(apierror.CodeOperationPlanning) {
		t.Errorf("expected code %s, got %v", apierror.CodeOperationPlanning, ext["code"])
	}
}

func TestError_PathPreserved(t *testing.T) {
	path := []interface{}{"product", "reviews", 0, "rating"}
	err := apierror.Unauthorized(path, "denied")
	if len(err.Path) != 4 || err.Path[2] != 0 {
		t.Errorf("expected path to round-trip unchanged, got %v", err.Path)
	}
}
