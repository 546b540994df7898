// Package routing maintains this client's view of the overlay topology,
// built entirely from observed FloodResponse path traces, and computes
// shortest paths over it for outgoing source routes.
package routing

import (
	"container/heap"
	"sync"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

const (
	// WeightMin and WeightMax bound every edge weight. Arithmetic on a
	// weight saturates at these bounds instead of wrapping.
	WeightMin uint32 = 1
	WeightMax uint32 = 1000

	// WeightDefault is the starting weight of an edge that has been
	// observed but never adjusted.
	WeightDefault uint32 = 10

	congestionPenalty = 5
	ackReward         = 1
	nackPenalty       = 50
)

// Graph is a weighted directed topology graph. Zero value is not usable;
// use New.
type Graph struct {
	mu    sync.RWMutex
	edges map[netid.NodeId]map[netid.NodeId]uint32
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		edges: make(map[netid.NodeId]map[netid.NodeId]uint32),
	}
}

func (g *Graph) ensureNode(n netid.NodeId) {
	if _, ok := g.edges[n]; !ok {
		g.edges[n] = make(map[netid.NodeId]uint32)
	}
}

func (g *Graph) setEdge(from, to netid.NodeId, weight uint32) {
	g.ensureNode(from)
	g.ensureNode(to)
	g.edges[from][to] = clamp(weight)
}

func clamp(w uint32) uint32 {
	if w < WeightMin {
		return WeightMin
	}
	if w > WeightMax {
		return WeightMax
	}
	return w
}

func addSaturating(w, delta uint32) uint32 {
	sum := w + delta
	if sum < w {
		return WeightMax
	}
	return clamp(sum)
}

func subSaturating(w, delta uint32) uint32 {
	if delta >= w {
		return WeightMin
	}
	return clamp(w - delta)
}

// UpdateGraph folds a flood response's observed path trace into the
// topology: every adjacent pair of hops becomes a bidirectional edge, and
// an edge not yet known starts at WeightDefault.
func (g *Graph) UpdateGraph(resp wire.FloodResponse) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i+1 < len(resp.PathTrace); i++ {
		a := resp.PathTrace[i].Node
		b := resp.PathTrace[i+1].Node
		g.ensureNode(a)
		g.ensureNode(b)
		if _, ok := g.edges[a][b]; !ok {
			g.edges[a][b] = WeightDefault
		}
		if _, ok := g.edges[b][a]; !ok {
			g.edges[b][a] = WeightDefault
		}
	}
}

// NodesCongestion penalizes every edge along a source route's hops,
// reflecting path occupancy; the dispatcher applies it to every inbound
// fragment, ack and flood response.
func (g *Graph) NodesCongestion(routing wire.SourceRoutingHeader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adjustPath(routing.Hops, func(w uint32) uint32 { return addSaturating(w, congestionPenalty) })
}

// NodesAck rewards every edge along a source route's traversed hops after
// a successful per-fragment ack, nudging future routing toward it.
func (g *Graph) NodesAck(routing wire.SourceRoutingHeader) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adjustPath(routing.Hops, func(w uint32) uint32 { return subSaturating(w, ackReward) })
}

// NodeNack heavily penalizes every edge adjacent to a node that reported
// (or was reported as the offender of) a nack, so the graph routes around
// it when an alternative exists.
func (g *Graph) NodeNack(node netid.NodeId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for from, out := range g.edges {
		for to := range out {
			if from == node || to == node {
				g.edges[from][to] = addSaturating(g.edges[from][to], nackPenalty)
			}
		}
	}
}

func (g *Graph) adjustPath(hops []netid.NodeId, f func(uint32) uint32) {
	for i := 0; i+1 < len(hops); i++ {
		a, b := hops[i], hops[i+1]
		if _, ok := g.edges[a]; !ok {
			continue
		}
		if w, ok := g.edges[a][b]; ok {
			g.edges[a][b] = f(w)
		}
	}
}

// pqItem is one entry in the Dijkstra priority queue.
type pqItem struct {
	node netid.NodeId
	dist uint64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	// Deterministic tie-break: prefer the smaller NodeId.
	return pq[i].node < pq[j].node
}
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// BestPath computes the shortest weighted path from src to dst using
// Dijkstra's algorithm. Ties in total distance are broken deterministically
// by preferring the smaller NodeId at each relaxation step, so repeated
// calls over an unchanged graph always return the same route. Returns
// false if dst is unreachable from src.
func (g *Graph) BestPath(src, dst netid.NodeId) (wire.SourceRoutingHeader, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if src == dst {
		return wire.NewSRH(src), true
	}
	if _, ok := g.edges[src]; !ok {
		return wire.SourceRoutingHeader{}, false
	}

	const infinity = ^uint64(0)
	dist := make(map[netid.NodeId]uint64)
	prev := make(map[netid.NodeId]netid.NodeId)
	visited := make(map[netid.NodeId]bool)

	for n := range g.edges {
		dist[n] = infinity
	}
	dist[src] = 0

	pq := &priorityQueue{{node: src, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == dst {
			break
		}

		neighbors := make([]netid.NodeId, 0, len(g.edges[cur.node]))
		for to := range g.edges[cur.node] {
			neighbors = append(neighbors, to)
		}
		sortNodeIds(neighbors)

		for _, to := range neighbors {
			if visited[to] {
				continue
			}
			weight := uint64(g.edges[cur.node][to])
			alt := dist[cur.node] + weight
			if alt < dist[to] {
				dist[to] = alt
				prev[to] = cur.node
				heap.Push(pq, pqItem{node: to, dist: alt})
			}
		}
	}

	if dist[dst] == infinity {
		return wire.SourceRoutingHeader{}, false
	}

	var path []netid.NodeId
	for at := dst; ; {
		path = append([]netid.NodeId{at}, path...)
		if at == src {
			break
		}
		at = prev[at]
	}
	return wire.NewSRH(path...), true
}

func sortNodeIds(ids []netid.NodeId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
