package response

import "github.com/n9te9/federation-gateway/federation/schema"

// ResponseNodeId addresses one node in a response graph's dense arena.
// Allocation is monotonic within a single Graph; ids are never reused
// while the graph they belong to is alive.
type ResponseNodeId uint32

// EntityId identifies an object by its federation @key: a node tagged with
// an EntityId already mapped in its Graph evicts the node it replaces, so
// the same entity reached through more than one partition ends up as a
// single response-graph node.
type EntityId struct {
	TypeId schema.TypeId
	Key    string
}
