// Package apierror is the closed error-code taxonomy every stage of the
// planning/execution pipeline surfaces through: binding, planning,
// modifier evaluation, and subgraph dispatch all produce an Error carrying
// one of these Codes, so a gateway's HTTP layer can serialize every
// failure through one "extensions.code" convention regardless of which
// stage produced it.
package apierror

import "fmt"

// Code is a stable, closed enum of error classifications. Every Code has a
// constructor below; callers should never need to set Code directly.
type Code string

const (
	// CodeOperationValidation marks a binding failure (federation/operation):
	// the client's document does not validate against the supergraph schema.
	// Surfaced with no "data" at all — the operation never reached planning.
	CodeOperationValidation Code = "OPERATION_VALIDATION_ERROR"

	// CodeOperationPlanning marks a planning failure: no viable plan exists
	// (an indispensable field the Steiner solver could not cover) or an
	// internal invariant was violated while building one.
	CodeOperationPlanning Code = "OPERATION_PLANNING_ERROR"

	// CodeUnauthorized marks a ResponseModifier (@authorized) denial.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeUnauthenticated marks a QueryModifier (@authenticated,
	// @requires_scopes) denial.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeHookError marks an authorization extension call that itself
	// failed (as opposed to returning a clean deny).
	CodeHookError Code = "HOOK_ERROR"

	// CodeSubgraphError marks an error a subgraph itself returned in its
	// "errors" array, rewritten from the subgraph-local path to the
	// client-visible one.
	CodeSubgraphError Code = "SUBGRAPH_ERROR"

	// CodeSubgraphInvalidResponse marks a response a subgraph returned that
	// could not be deserialized against the partition's compiled shape —
	// fatal for that partition, triggers null propagation.
	CodeSubgraphInvalidResponse Code = "SUBGRAPH_INVALID_RESPONSE"
)

// Error is a single GraphQL-surfaced error: message, response path
// (field names and list indices, deepest last), optional source locations,
// and an extensions map always carrying "code".
type Error struct {
	Code      Code
	Message   string
	Path      []interface{}
	Locations []Location
	// Extra carries any additional extensions fields beyond "code" (e.g.
	// "serviceName" for a SubgraphError); may be nil.
	Extra map[string]interface{}
}

// Location is a (line, column) source position within the client's
// operation text.
type Location struct {
	Line   int
	Column int
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Extensions renders e's GraphQL "extensions" object, always including
// "code" ahead of any Extra entries.
func (e *Error) Extensions() map[string]interface{} {
	ext := make(map[string]interface{}, len(e.Extra)+1)
	for k, v := range e.Extra {
		ext[k] = v
	}
	ext["code"] = string(e.Code)
	return ext
}

// OperationValidation wraps a binding failure.
func OperationValidation(message string) *Error {
	return &Error{Code: CodeOperationValidation, Message: message}
}

// OperationPlanning wraps a planning failure.
func OperationPlanning(message string) *Error {
	return &Error{Code: CodeOperationPlanning, Message: message}
}

// Unauthorized wraps a ResponseModifier denial at path.
func Unauthorized(path []interface{}, message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, Path: path}
}

// Unauthenticated wraps a QueryModifier denial at path.
func Unauthenticated(path []interface{}, message string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: message, Path: path}
}

// HookErr wraps an authorization-extension call failure at path. Named
// HookErr (not Hook) to avoid colliding with the Code constant's natural
// reading as a noun.
func HookErr(path []interface{}, message string) *Error {
	return &Error{Code: CodeHookError, Message: message, Path: path}
}

// SubgraphErr wraps one error a subgraph returned, rewriting its path and
// tagging which subgraph produced it.
func SubgraphErr(path []interface{}, message, serviceName string) *Error {
	return &Error{
		Code:    CodeSubgraphError,
		Message: message,
		Path:    path,
		Extra:   map[string]interface{}{"serviceName": serviceName},
	}
}

// SubgraphInvalidResponse wraps a deserialization failure for a partition
// dispatched against serviceName.
func SubgraphInvalidResponse(path []interface{}, message, serviceName string) *Error {
	return &Error{
		Code:    CodeSubgraphInvalidResponse,
		Message: message,
		Path:    path,
		Extra:   map[string]interface{}{"serviceName": serviceName},
	}
}
