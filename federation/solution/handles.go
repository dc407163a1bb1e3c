package solution

// NodeId identifies a node (Root, QueryField, ProvidableField, Resolver or
// Typename) in the solution-space graph.
type NodeId int32

// EdgeId identifies a directed edge in the solution-space graph.
type EdgeId int32
