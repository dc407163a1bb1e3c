package executor

import (
	"context"
	"net/http"
)

// GraphQLError is the wire shape for one error entry in a GraphQL response,
// shared by subgraph responses decoded off the wire and errors the gateway
// itself raises (denied fields, transport failures, partition failures).
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

type requestHeaderContextKey struct{}

// SetRequestHeaderToContext stashes the inbound gateway request's header set
// on ctx so a SubgraphClient dispatching on that context can hang selected
// headers (auth, tracing) back over to subgraphs.
func SetRequestHeaderToContext(ctx context.Context, header http.Header) context.Context {
	return context.WithValue(ctx, requestHeaderContextKey{}, header)
}

// GetRequestHeaderFromContext retrieves what SetRequestHeaderToContext
// stashed, or nil if ctx carries none.
func GetRequestHeaderFromContext(ctx context.Context) http.Header {
	h, ok := ctx.Value(requestHeaderContextKey{}).(http.Header)
	if !ok {
		return nil
	}
	return h
}
