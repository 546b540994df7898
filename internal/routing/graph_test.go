package routing

import (
	"testing"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

func pathTrace(nodes ...netid.NodeId) []wire.PathHop {
	hops := make([]wire.PathHop, len(nodes))
	for i, n := range nodes {
		hops[i] = wire.PathHop{Node: n, Type: netid.NodeTypeDrone}
	}
	return hops
}

func TestUpdateGraph_BuildsBidirectionalEdges(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2, 3)})

	if _, ok := g.edges[1][2]; !ok {
		t.Fatal("expected edge 1->2")
	}
	if _, ok := g.edges[2][1]; !ok {
		t.Fatal("expected edge 2->1")
	}
	if g.edges[1][2] != WeightDefault {
		t.Fatalf("edge weight = %d, want %d", g.edges[1][2], WeightDefault)
	}
}

func TestBestPath_PrefersFewerHops(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2, 3)})
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 3)})

	srh, ok := g.BestPath(1, 3)
	if !ok {
		t.Fatal("expected a path")
	}
	if len(srh.Hops) != 2 {
		t.Fatalf("expected the direct 2-hop path, got %v", srh.Hops)
	}
}

func TestBestPath_Unreachable(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2)})
	if _, ok := g.BestPath(1, 99); ok {
		t.Fatal("expected no path to an unknown node")
	}
}

func TestBestPath_SameNode(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2)})
	srh, ok := g.BestPath(1, 1)
	if !ok || len(srh.Hops) != 1 || srh.Hops[0] != 1 {
		t.Fatalf("BestPath(1,1) = %v, %v", srh, ok)
	}
}

func TestNodeNack_RoutesAroundOffender(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2, 4)})
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 3, 4)})

	before, _ := g.BestPath(1, 4)

	// Penalize whichever middle node the first path used.
	offender := before.Hops[1]
	g.NodeNack(offender)

	after, ok := g.BestPath(1, 4)
	if !ok {
		t.Fatal("expected a path to remain")
	}
	if after.Hops[1] == offender {
		t.Fatalf("expected routing to avoid nacked node %v, got path %v", offender, after.Hops)
	}
}

func TestNodesCongestion_IncreasesWeight(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2)})
	before := g.edges[1][2]
	g.NodesCongestion(wire.NewSRH(1, 2))
	if g.edges[1][2] <= before {
		t.Fatalf("expected congestion to raise weight above %d, got %d", before, g.edges[1][2])
	}
}

func TestNodesAck_DecreasesWeight(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2)})
	g.NodesCongestion(wire.NewSRH(1, 2))
	before := g.edges[1][2]
	g.NodesAck(wire.NewSRH(1, 2))
	if g.edges[1][2] >= before {
		t.Fatalf("expected ack to lower weight below %d, got %d", before, g.edges[1][2])
	}
}

func TestWeight_SaturatesAtBounds(t *testing.T) {
	g := New()
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2)})
	for i := 0; i < 10000; i++ {
		g.NodesCongestion(wire.NewSRH(1, 2))
	}
	if g.edges[1][2] > WeightMax {
		t.Fatalf("weight %d exceeds WeightMax %d", g.edges[1][2], WeightMax)
	}
	for i := 0; i < 10000; i++ {
		g.NodesAck(wire.NewSRH(1, 2))
	}
	if g.edges[1][2] < WeightMin {
		t.Fatalf("weight %d below WeightMin %d", g.edges[1][2], WeightMin)
	}
}

func TestBestPath_DeterministicTieBreak(t *testing.T) {
	g := New()
	// Two equal-weight paths from 1 to 4: via 2 and via 3.
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 2, 4)})
	g.UpdateGraph(wire.FloodResponse{PathTrace: pathTrace(1, 3, 4)})

	first, ok := g.BestPath(1, 4)
	if !ok {
		t.Fatal("expected a path")
	}
	for i := 0; i < 20; i++ {
		again, ok := g.BestPath(1, 4)
		if !ok || again.Hops[1] != first.Hops[1] {
			t.Fatalf("BestPath not deterministic across repeated calls: %v vs %v", first, again)
		}
	}
	if first.Hops[1] != 2 {
		t.Fatalf("expected tie-break to prefer smaller NodeId 2, got %v", first.Hops[1])
	}
}
