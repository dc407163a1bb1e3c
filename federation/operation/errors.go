package operation

import (
	"fmt"

	"github.com/n9te9/federation-gateway/federation/apierror"
)

// BindErrorCode is the closed set of operation-binding failure categories a
// client-facing error response can carry.
type BindErrorCode int

const (
	UnknownType BindErrorCode = iota
	UnknownField
	LeafMustBeScalarOrEnum
	CannotHaveSelectionSet
	DisjointTypeCondition
	MissingArgument
	FragmentCycle
	UnusedVariable
	DuplicateVariable
	InvalidVariableType
	QueryTooComplex
	QueryTooDeep
	QueryContainsTooManyAliases
	QueryContainsTooManyRootFields
	TooManyFields
	NoOperation
	UnknownOperationType
	InaccessibleField
)

func (c BindErrorCode) String() string {
	switch c {
	case UnknownType:
		return "UnknownType"
	case UnknownField:
		return "UnknownField"
	case LeafMustBeScalarOrEnum:
		return "LeafMustBeScalarOrEnum"
	case CannotHaveSelectionSet:
		return "CannotHaveSelectionSet"
	case DisjointTypeCondition:
		return "DisjointTypeCondition"
	case MissingArgument:
		return "MissingArgument"
	case FragmentCycle:
		return "FragmentCycle"
	case UnusedVariable:
		return "UnusedVariable"
	case DuplicateVariable:
		return "DuplicateVariable"
	case InvalidVariableType:
		return "InvalidVariableType"
	case QueryTooComplex:
		return "QueryTooComplex"
	case QueryTooDeep:
		return "QueryTooDeep"
	case QueryContainsTooManyAliases:
		return "QueryContainsTooManyAliases"
	case QueryContainsTooManyRootFields:
		return "QueryContainsTooManyRootFields"
	case TooManyFields:
		return "TooManyFields"
	case NoOperation:
		return "NoOperation"
	case UnknownOperationType:
		return "UnknownOperationType"
	case InaccessibleField:
		return "InaccessibleField"
	default:
		return "Unknown"
	}
}

// BindError is one binding failure, with enough path context to render a
// GraphQL-shaped error response.
type BindError struct {
	Code    BindErrorCode
	Message string
	Path    []string
}

func (e *BindError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (at %v)", e.Code, e.Message, e.Path)
}

// ToAPIError converts e to the gateway-wide error representation. Every
// BindErrorCode maps to apierror.CodeOperationValidation — binding failures
// are, without exception, the client's operation not validating against the
// supergraph schema; BindErrorCode exists to give that single apierror.Code
// finer-grained internal detail (folded into the message), not a second
// axis of classification a client-facing response needs to see.
func (e *BindError) ToAPIError() *apierror.Error {
	path := make([]interface{}, len(e.Path))
	for i, p := range e.Path {
		path[i] = p
	}
	return &apierror.Error{
		Code:    apierror.CodeOperationValidation,
		Message: e.Error(),
		Path:    path,
	}
}

func newBindError(code BindErrorCode, path []string, format string, args ...any) *BindError {
	return &BindError{Code: code, Message: fmt.Sprintf(format, args...), Path: append([]string{}, path...)}
}
