package response_test

import (
	"testing"

	"github.com/n9te9/federation-gateway/federation/response"
	"github.com/n9te9/federation-gateway/federation/schema"
)

func TestGraph_AppendAndTakeValue(t *testing.T) {
	g := response.NewGraph()

	name, err := g.NewPrimitive("widget")
	if err != nil {
		t.Fatalf("NewPrimitive: %v", err)
	}
	if err := g.Append(g.Root, name, "name"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	v, err := g.TakeValue(g.Root)
	if err != nil {
		t.Fatalf("TakeValue: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected a map, got %T", v)
	}
	if obj["name"] != "widget" {
		t.Errorf("expected name=widget, got %v", obj["name"])
	}

	if _, ok := g.Node(g.Root); ok {
		t.Error("expected TakeValue to delete the root node")
	}
}

func TestGraph_TakeValueDropsNestedEmptyObjects(t *testing.T) {
	g := response.NewGraph()

	child, err := g.NewContainer()
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := g.Append(g.Root, child, "optionalThing"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	v, err := g.TakeValue(g.Root)
	if err != nil {
		t.Fatalf("TakeValue: %v", err)
	}
	obj := v.(map[string]any)
	if _, present := obj["optionalThing"]; present {
		t.Error("expected an empty nested object to be dropped from its parent")
	}
}

func TestGraph_PushIntoList(t *testing.T) {
	g := response.NewGraph()

	list, err := g.NewList()
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	if err := g.Append(g.Root, list, "items"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, s := range []string{"a", "b", "c"} {
		n, err := g.NewPrimitive(s)
		if err != nil {
			t.Fatalf("NewPrimitive: %v", err)
		}
		if err := g.Push(list, n); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	v, err := g.TakeValue(g.Root)
	if err != nil {
		t.Fatalf("TakeValue: %v", err)
	}
	items := v.(map[string]any)["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0] != "a" || items[1] != "b" || items[2] != "c" {
		t.Errorf("expected items in push order, got %v", items)
	}
}

func TestGraph_AppendRejectsNonContainer(t *testing.T) {
	g := response.NewGraph()
	leaf, _ := g.NewPrimitive(1)

	err := g.Append(leaf, leaf, "x")
	if _, ok := err.(*response.NotAContainerError); !ok {
		t.Fatalf("expected a NotAContainerError, got %v (%T)", err, err)
	}
}

func TestGraph_PushRejectsNonList(t *testing.T) {
	g := response.NewGraph()

	err := g.Push(g.Root, g.Root)
	if _, ok := err.(*response.NotAListError); !ok {
		t.Fatalf("expected a NotAListError, got %v (%T)", err, err)
	}
}

func TestGraph_NewEntityContainerEvictsPriorNode(t *testing.T) {
	g := response.NewGraph()
	entity := response.EntityId{TypeId: schema.TypeId(1), Key: "1"}

	first, err := g.NewEntityContainer(entity)
	if err != nil {
		t.Fatalf("NewEntityContainer: %v", err)
	}
	second, err := g.NewEntityContainer(entity)
	if err != nil {
		t.Fatalf("NewEntityContainer: %v", err)
	}

	if _, ok := g.Node(first); ok {
		t.Error("expected the first node to be evicted once a second node claimed the same EntityId")
	}
	if got, ok := g.EntityNode(entity); !ok || got != second {
		t.Errorf("expected EntityNode to resolve to the second node, got %d, %v", got, ok)
	}
}

func TestGraph_DeleteDoesNotCascade(t *testing.T) {
	g := response.NewGraph()
	child, _ := g.NewPrimitive("x")
	g.Append(g.Root, child, "field")

	g.Delete(g.Root)

	if _, ok := g.Node(g.Root); ok {
		t.Error("expected root to be gone")
	}
	if _, ok := g.Node(child); !ok {
		t.Error("expected Delete to not cascade: child should still be addressable")
	}
}

func TestGraph_Relations(t *testing.T) {
	g := response.NewGraph()
	entity := response.EntityId{TypeId: schema.TypeId(1), Key: "42"}

	productNode, err := g.NewEntityContainer(entity)
	if err != nil {
		t.Fatalf("NewEntityContainer: %v", err)
	}
	if err := g.Append(g.Root, productNode, "product"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rels := g.Relations(g.Root)
	if len(rels) != 1 {
		t.Fatalf("expected exactly one relation, got %d", len(rels))
	}
	if !rels[0].Relation.IsKeyed || rels[0].Relation.Key != "product" {
		t.Errorf("expected a keyed relation at 'product', got %+v", rels[0].Relation)
	}
	if rels[0].Entity != entity {
		t.Errorf("expected the relation to carry the product's EntityId, got %+v", rels[0].Entity)
	}
}

func TestGraph_SerializeIsNonDestructive(t *testing.T) {
	g := response.NewGraph()
	name, _ := g.NewPrimitive("widget")
	g.Append(g.Root, name, "name")

	data, err := g.Serialize(g.Root)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := `{"t":"C","c":[{"r":"R","k":"name","n":{"t":"P","v":"widget"}}]}`
	if string(data) != want {
		t.Errorf("unexpected wire form:\n got  %s\n want %s", data, want)
	}

	if _, ok := g.Node(g.Root); !ok {
		t.Error("expected Serialize to leave the graph intact")
	}
	if _, err := g.TakeValue(g.Root); err != nil {
		t.Errorf("expected the graph to still be consumable after Serialize, got: %v", err)
	}
}

func TestGraph_SerializeList(t *testing.T) {
	g := response.NewGraph()
	list, _ := g.NewList()
	g.Append(g.Root, list, "tags")
	a, _ := g.NewPrimitive("x")
	g.Push(list, a)

	data, err := g.Serialize(g.Root)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := `{"t":"C","c":[{"r":"R","k":"tags","n":{"t":"L","c":[{"r":"NR","n":{"t":"P","v":"x"}}]}}]}`
	if string(data) != want {
		t.Errorf("unexpected wire form:\n got  %s\n want %s", data, want)
	}
}
