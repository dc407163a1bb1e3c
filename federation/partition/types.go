package partition

import (
	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/schema"
)

// QueryPartition is one subgraph dispatch: a contiguous run of the Steiner
// tree served by a single resolver, with its own compiled field list and
// dependencies on other partitions.
type QueryPartition struct {
	ID         PartitionId
	SubgraphId schema.SubgraphId
	ResolverId schema.ResolverId

	// IsRoot is true for a partition hanging directly off the operation
	// root (one subgraph call per root partition); false for an entity
	// partition, dispatched as one `_entities` call carrying a
	// representation for every object in its InputSet.
	IsRoot bool

	// ParentPartition/HasParent identify the partition whose field spawned
	// this one; meaningless (HasParent false) for root partitions.
	ParentPartition PartitionId
	HasParent       bool

	// InputField is the boundary QueryField (the spawning resolver node's
	// SpawningField) whose selection set this partition serves. It is
	// declared in a selection set ParentPartition serves but is not in
	// ParentPartition's Fields. Zero/unused for root partitions.
	InputField operation.QueryFieldId

	// InputSet is the ResponseObjectSetId this partition iterates to
	// produce its subgraph representations; zero/unused for root
	// partitions.
	InputSet    ResponseObjectSetId
	HasInputSet bool

	// Fields lists every QueryField this partition is responsible for
	// (including fields belonging to nested same-subgraph selection sets),
	// in query_position (Location) order.
	Fields []operation.QueryFieldId

	// DependsOn lists partitions that must complete before this one may
	// dispatch, deduped and sorted by id. A partition's DependsOn length is
	// its in-degree for the executor's wait counter.
	DependsOn []PartitionId
}

// PartitionSet is a full C6 plan: every partition plus the root dispatch
// order.
type PartitionSet struct {
	Partitions []*QueryPartition

	// RootOrder lists root partition ids. For a query/subscription this is
	// any order (dispatch is unconstrained); for a mutation it is the
	// strict MutationPartitionOrder the executor must honor.
	RootOrder []PartitionId

	// OutputSets maps a QueryField that spawned a child partition to the
	// ResponseObjectSetId the child partition consumes as input.
	OutputSets map[operation.QueryFieldId]ResponseObjectSetId
}

func (ps *PartitionSet) Partition(id PartitionId) *QueryPartition { return ps.Partitions[id] }
