package partition

// PartitionId identifies one QueryPartition within a plan.
type PartitionId int32

// ResponseObjectSetId identifies a set of response objects an entity
// partition iterates over at dispatch time, one subgraph call per object
// (or batched, at the executor's discretion).
type ResponseObjectSetId int32
