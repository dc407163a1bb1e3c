package steiner

import (
	"fmt"

	"github.com/n9te9/federation-gateway/federation/apierror"
	"github.com/n9te9/federation-gateway/federation/solution"
)

// UnreachableTerminalError reports a terminal (an INDISPENSABLE query-field
// node) with no path back to the graph's root — no subgraph anywhere can
// serve that field.
type UnreachableTerminalError struct {
	Terminal solution.NodeId
}

func (e *UnreachableTerminalError) Error() string {
	return fmt.Sprintf("steiner: terminal node %d has no path to root", e.Terminal)
}

// ToAPIError bridges e to the gateway-wide error representation: no viable
// plan exists, the same family of failure as any other planning error.
func (e *UnreachableTerminalError) ToAPIError() *apierror.Error {
	return apierror.OperationPlanning(e.Error())
}
