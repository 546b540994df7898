// Package metrics exposes Prometheus collectors for the overlay client's
// networking core, separate from the application-level HTTP/SSE surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles every counter/gauge this client exports. It is safe
// for concurrent use, matching prometheus's own collector guarantees.
type Collector struct {
	PacketsSent      prometheus.Counter
	PacketsAcked     prometheus.Counter
	PacketsNacked    *prometheus.CounterVec
	FloodsInitiated  prometheus.Counter
	ChunkBytesServed prometheus.Counter
	ChunkBytesRecv   prometheus.Counter
	GraphEdges       prometheus.Gauge // registered, but never set by the client: reads 0
	HistorySize      prometheus.Gauge
}

// New creates a Collector and registers every metric with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "packets_sent_total",
			Help:      "Total message fragment packets handed to a neighbour sender.",
		}),
		PacketsAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "packets_acked_total",
			Help:      "Total fragments removed from history after a matching ack.",
		}),
		PacketsNacked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "packets_nacked_total",
			Help:      "Total nacks processed, labeled by kind.",
		}, []string{"kind"}),
		FloodsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "floods_initiated_total",
			Help:      "Total flood requests this client has originated.",
		}),
		ChunkBytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "chunk_bytes_served_total",
			Help:      "Total video content bytes served to peers as ChunkResponse payloads.",
		}),
		ChunkBytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overlay_client",
			Name:      "chunk_bytes_received_total",
			Help:      "Total video content bytes delivered to the local consumer via the chunk reorder buffer.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overlay_client",
			Name:      "topology_edges",
			Help:      "Current number of directed edges known in the topology graph.",
		}),
		HistorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overlay_client",
			Name:      "unacked_history_size",
			Help:      "Current number of unacked fragments held in the retransmit history.",
		}),
	}

	reg.MustRegister(
		c.PacketsSent,
		c.PacketsAcked,
		c.PacketsNacked,
		c.FloodsInitiated,
		c.ChunkBytesServed,
		c.ChunkBytesRecv,
		c.GraphEdges,
		c.HistorySize,
	)
	return c
}
