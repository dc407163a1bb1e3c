package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/n9te9/federation-gateway/federation/operation"
	"github.com/n9te9/federation-gateway/federation/partition"
	"github.com/n9te9/federation-gateway/federation/schema"
	"github.com/n9te9/federation-gateway/federation/shape"
)

// SubgraphClient dispatches one GraphQL request to a subgraph and decodes
// its "data"/"errors" envelope.
type SubgraphClient interface {
	Do(ctx context.Context, host, query string, variables map[string]any) (data map[string]any, errs []GraphQLError, err error)
}

// Plan bundles everything GatewayExecutor needs to dispatch one bound
// operation: the schema it was composed against, the operation itself, its
// partition set and the shapes compiled for each partition.
type Plan struct {
	Schema     *schema.Schema
	Document   *operation.Document
	Partitions *partition.PartitionSet
	Shapes     *shape.Set
}

// GatewayExecutor dispatches a Plan's partitions over their dependency DAG
// and assembles the results into a single response tree.
type GatewayExecutor struct {
	Client SubgraphClient
}

// Execute runs plan to completion: every root partition's own top-level
// fields merge into one shared result object; every entity partition's
// fetched fields merge in place onto the object(s) its boundary field hangs
// off, found by walking the operation's selection tree. Partition failures
// (a subgraph error, a transport error, a partition denied outright by a
// QueryModifier) are recorded as GraphQLErrors and do not abort sibling
// partitions — partial data is still returned, mirroring the teacher's
// recordError/recordSubgraphErrors behavior of keeping the rest of the
// response intact.
func (e *GatewayExecutor) Execute(ctx context.Context, plan *Plan, auth AuthContext) (map[string]any, []GraphQLError, error) {
	denied, errs := evaluateQueryModifiers(plan.Schema, plan.Document, plan.Shapes.QueryModifiers, auth)

	st := &execState{
		plan:   plan,
		denied: denied,
		keys:   fieldKeys(plan.Schema, plan.Document, plan.Partitions),
		data:   make(map[string]any),
		done:   make(map[partition.PartitionId]bool),
	}
	st.errs = append(st.errs, errs...)

	deps, err := st.buildDependencies()
	if err != nil {
		return nil, nil, err
	}

	for {
		ready := st.readyPartitions(deps)
		if len(ready) == 0 {
			break
		}

		eg, egCtx := errgroup.WithContext(ctx)
		for _, pid := range ready {
			pid := pid
			eg.Go(func() error {
				st.dispatch(egCtx, e.Client, pid)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, nil, err
		}

		st.mu.Lock()
		for _, pid := range ready {
			st.done[pid] = true
		}
		st.mu.Unlock()
	}

	if undispatched := len(plan.Partitions.Partitions) - len(st.done); undispatched > 0 {
		return nil, nil, fmt.Errorf("executor: %d partition(s) never became dispatchable (dependency cycle?)", undispatched)
	}

	return st.data, st.errs, nil
}

// execState is the mutable state one Execute call threads through its
// dispatch goroutines.
type execState struct {
	plan   *Plan
	denied map[operation.QueryFieldId]bool
	keys   map[operation.QueryFieldId]string

	mu   sync.Mutex
	data map[string]any
	done map[partition.PartitionId]bool
	errs []GraphQLError
}

// buildDependencies computes each partition's full wait set: its own
// DependsOn (cross-partition @requires edges), its parent partition (an
// entity partition cannot dispatch before the data naming its
// representations exists), and, for a mutation, the immediately preceding
// root partition (partition.Build's RootOrder is the strict sequential
// contract for a mutation's root fields).
func (st *execState) buildDependencies() (map[partition.PartitionId][]partition.PartitionId, error) {
	deps := make(map[partition.PartitionId][]partition.PartitionId, len(st.plan.Partitions.Partitions))
	for _, p := range st.plan.Partitions.Partitions {
		d := append([]partition.PartitionId(nil), p.DependsOn...)
		if p.HasParent {
			d = append(d, p.ParentPartition)
		}
		deps[p.ID] = d
	}

	if st.plan.Document.OperationType == "mutation" {
		order := st.plan.Partitions.RootOrder
		for i := 1; i < len(order); i++ {
			deps[order[i]] = append(deps[order[i]], order[i-1])
		}
	}

	return deps, nil
}

func (st *execState) readyPartitions(deps map[partition.PartitionId][]partition.PartitionId) []partition.PartitionId {
	st.mu.Lock()
	defer st.mu.Unlock()

	var ready []partition.PartitionId
	for _, p := range st.plan.Partitions.Partitions {
		if st.done[p.ID] {
			continue
		}
		allDone := true
		for _, dep := range deps[p.ID] {
			if !st.done[dep] {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, p.ID)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	return ready
}

// dispatch renders and sends one partition's request, then merges its
// result into the shared tree. Errors are recorded, not returned: a failed
// subgraph call must not prevent sibling partitions (already ready or still
// to come) from completing.
func (st *execState) dispatch(ctx context.Context, client SubgraphClient, pid partition.PartitionId) {
	p := st.plan.Partitions.Partition(pid)
	sh := st.plan.Shapes.Shape(pid)

	if p.IsRoot {
		st.dispatchRoot(ctx, client, p, sh)
		return
	}
	st.dispatchEntity(ctx, client, p, sh)
}

func (st *execState) dispatchRoot(ctx context.Context, client SubgraphClient, p *partition.QueryPartition, sh *shape.Shape) {
	host, ok := subgraphHost(st.plan.Schema, p.SubgraphId)
	if !ok {
		st.recordPartitionError(p, fmt.Errorf("no host registered for subgraph %d", p.SubgraphId))
		return
	}

	query := buildRootQueryText(st.plan.Document, st.plan.Schema, st.denied, sh)
	data, errs, err := client.Do(ctx, host, query, nil)
	if err != nil {
		st.recordPartitionError(p, err)
		return
	}

	st.mu.Lock()
	for k, v := range data {
		st.data[k] = v
	}
	st.errs = append(st.errs, errs...)
	st.mu.Unlock()
}

func (st *execState) dispatchEntity(ctx context.Context, client SubgraphClient, p *partition.QueryPartition, sh *shape.Shape) {
	boundaryField := st.plan.Document.Field(p.InputField)
	if !conditionHolds(st.plan.Document, boundaryField) {
		return // @skip/@include excluded this field entirely; nothing to fetch or merge.
	}

	st.mu.Lock()
	path, found := entityOwnerPath(st.plan.Document, st.plan.Schema, st.keys, p)
	var owners []map[string]any
	if found {
		owners = collectObjects(st.data, path)
	}
	st.mu.Unlock()
	if len(owners) == 0 {
		return
	}

	resolver := st.plan.Schema.Resolver(p.ResolverId)
	entityTypeName := st.plan.Schema.Type(resolver.EntityTypeId).Name

	reps := make([]map[string]any, len(owners))
	for i, obj := range owners {
		reps[i] = buildRepresentation(obj, entityTypeName, resolver.RequiredFields)
	}

	host, ok := subgraphHost(st.plan.Schema, p.SubgraphId)
	if !ok {
		st.recordPartitionError(p, fmt.Errorf("no host registered for subgraph %d", p.SubgraphId))
		return
	}

	aliasCapable := shape.AliasCapable(st.plan.Schema, p)
	query := buildEntityQueryText(st.plan.Document, st.plan.Schema, st.denied, entityTypeName, boundaryField, aliasCapable, sh)

	data, errs, err := client.Do(ctx, host, query, map[string]any{"representations": reps})
	if err != nil {
		st.recordPartitionError(p, err)
		return
	}

	entities, _ := data["_entities"].([]any)

	st.mu.Lock()
	for i, owner := range owners {
		if i >= len(entities) {
			break
		}
		if em, ok := entities[i].(map[string]any); ok {
			mergeEntityFields(owner, em)
		}
	}
	st.errs = append(st.errs, errs...)
	st.mu.Unlock()
}

func (st *execState) recordPartitionError(p *partition.QueryPartition, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.errs = append(st.errs, GraphQLError{
		Message:    err.Error(),
		Extensions: map[string]interface{}{"subgraph": int(p.SubgraphId)},
	})
}

func subgraphHost(sch *schema.Schema, id schema.SubgraphId) (string, bool) {
	for _, sg := range sch.Subgraphs {
		if sg.ID == id {
			return sg.Host, true
		}
	}
	return "", false
}
