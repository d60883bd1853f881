package topology

import "testing"

func TestGraphValidateRejectsUnknownInput(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{
		Key:    "sink-a",
		Kind:   Sink,
		Inputs: []Input{{From: "missing"}},
		Build:  func() (Component, error) { return nil, nil },
	})
	if err := g.Validate(); err == nil {
		t.Fatal("Validate should reject an input from an unknown component")
	}
}

func TestGraphValidateRejectsSourceWithInputs(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{Key: "src", Kind: Source, Inputs: []Input{{From: "x"}}, Build: func() (Component, error) { return nil, nil }})
	if err := g.Validate(); err == nil {
		t.Fatal("Validate should reject a Source with Inputs")
	}
}

func TestGraphValidateRejectsMissingInputsForNonSource(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{Key: "sink-a", Kind: Sink, Build: func() (Component, error) { return nil, nil }})
	if err := g.Validate(); err == nil {
		t.Fatal("Validate should reject a non-Source with no Inputs")
	}
}

func TestGraphValidateAcceptsWellFormedGraph(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{Key: "src", Kind: Source, Build: func() (Component, error) { return nil, nil }})
	g.AddNode(NodeSpec{
		Key:    "sink-a",
		Kind:   Sink,
		Inputs: []Input{{From: "src"}},
		Build:  func() (Component, error) { return nil, nil },
	})
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestGraphValidateRejectsReadFromSink(t *testing.T) {
	g := NewGraph()
	g.AddNode(NodeSpec{Key: "src", Kind: Source, Build: func() (Component, error) { return nil, nil }})
	g.AddNode(NodeSpec{
		Key:    "sink-a",
		Kind:   Sink,
		Inputs: []Input{{From: "src"}},
		Build:  func() (Component, error) { return nil, nil },
	})
	g.AddNode(NodeSpec{
		Key:    "sink-b",
		Kind:   Sink,
		Inputs: []Input{{From: "sink-a"}},
		Build:  func() (Component, error) { return nil, nil },
	})
	if err := g.Validate(); err == nil {
		t.Fatal("Validate should reject a component reading from a sink")
	}
}
