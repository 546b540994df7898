// Package client implements the networking core: the packet dispatcher,
// the send primitives, the flood subsystem, the application message
// handlers, and the client lifecycle FSM. Every inbound packet or
// controller command is handled under a single writer-preferring lock
// spanning one handler call.
package client

import (
	"log/slog"
	"time"

	"github.com/dronecast/overlay-client/internal/chunkbuffer"
	"github.com/dronecast/overlay-client/internal/clock"
	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/metrics"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/reassembly"
	"github.com/dronecast/overlay-client/internal/routing"
	"github.com/dronecast/overlay-client/internal/rwmutex"
	"github.com/dronecast/overlay-client/internal/store"
	"github.com/dronecast/overlay-client/internal/wire"
)

// FileListEvent is published on the file-list broadcast channel whenever
// a ResponseFileList arrives from a server.
type FileListEvent struct {
	ServerID netid.NodeId
	Videos   []forge.VideoMetaData
}

// Config configures a Client.
type Config struct {
	ID         netid.NodeId
	ClientType forge.ClientType

	PacketRecv     <-chan wire.Packet
	ControllerRecv <-chan DroneCommand
	ControllerSend chan<- ControllerEvent

	Store   store.Store
	Metrics *metrics.Collector
	Logger  *slog.Logger
	Clock   *clock.Clock

	HistoryCapacity         int
	RoutingErrorFloodWindow time.Duration
}

// Client is the single shared mutable state record described by the
// concurrency model: one writer-preferring lock spans every handler
// call, while the broadcast subscriber slots are guarded separately so
// HTTP handlers can install or replace them without contending with the
// event loop.
type Client struct {
	mu *rwmutex.RWMutex

	id         netid.NodeId
	clientType forge.ClientType

	senders map[netid.NodeId]chan<- wire.Packet

	forge       *forge.Forge
	reassembler *reassembly.Reassembler
	history     *history
	graph       *routing.Graph

	floodID                   uint64
	fsm                       FSM
	servers                   map[netid.NodeId][]netid.FileHash
	lastRoutingErrorFloodUnix uint32
	routingErrorFloodGuard    time.Duration

	chunkBuf           *chunkbuffer.Buffer
	activeVideoRequest netid.FileHash

	packetRecv     <-chan wire.Packet
	controllerRecv <-chan DroneCommand
	controllerSend chan<- ControllerEvent

	store   store.Store
	metrics *metrics.Collector
	log     *slog.Logger
	clock   *clock.Clock

	broadcast broadcastSlots
}

// New creates a Client in its initial ServerNotFound FSM state.
func New(cfg Config) *Client {
	historyCap := cfg.HistoryCapacity
	if historyCap <= 0 {
		historyCap = 4096
	}
	floodWindow := cfg.RoutingErrorFloodWindow
	if floodWindow <= 0 {
		floodWindow = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cl := cfg.Clock
	if cl == nil {
		cl = clock.New()
	}

	c := &Client{
		mu:                     rwmutex.New(),
		id:                     cfg.ID,
		clientType:             cfg.ClientType,
		senders:                make(map[netid.NodeId]chan<- wire.Packet),
		forge:                  forge.New(),
		reassembler:            reassembly.New(),
		history:                newHistory(historyCap),
		graph:                  routing.New(),
		fsm:                    ServerNotFound,
		servers:                make(map[netid.NodeId][]netid.FileHash),
		routingErrorFloodGuard: floodWindow,
		packetRecv:             cfg.PacketRecv,
		controllerRecv:         cfg.ControllerRecv,
		controllerSend:         cfg.ControllerSend,
		store:                  cfg.Store,
		metrics:                cfg.Metrics,
		log:                    logger.WithGroup("client"),
		clock:                  cl,
	}
	c.chunkBuf = chunkbuffer.New(c.deliverChunk)
	return c
}

// ID returns the client's own NodeId.
func (c *Client) ID() netid.NodeId { return c.id }

// FSMState returns the current lifecycle state under a read lock.
func (c *Client) FSMState() FSM {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fsm
}

// Graph exposes the topology graph for HTTP introspection endpoints.
func (c *Client) Graph() *routing.Graph { return c.graph }

