package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	serialport "go.bug.st/serial"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

var _ Transport = (*SerialTransport)(nil)

const (
	// DefaultBaudRate is used when SerialConfig.BaudRate is unset.
	DefaultBaudRate = 115200

	readBufSize = 1024

	// frameHeaderSize is the 4-byte big-endian payload length prefix.
	frameHeaderSize = 4
	// frameChecksumSize is the trailing Fletcher-16 checksum.
	frameChecksumSize = 2
)

// SerialConfig configures a SerialTransport.
type SerialConfig struct {
	Port     string
	BaudRate int
	Logger   *slog.Logger
}

// SerialTransport bridges wire.Packet values over a serial link, one
// process per neighbour relationship: every packet written is addressed
// implicitly to whatever is on the other end of the wire.
type SerialTransport struct {
	cfg  SerialConfig
	port serialport.Port
	log  *slog.Logger

	mu            sync.RWMutex
	connected     bool
	cancel        context.CancelFunc
	done          chan struct{}
	packetHandler PacketHandler
	stateHandler  StateHandler
}

// NewSerial creates a serial bridge transport with the given configuration.
func NewSerial(cfg SerialConfig) *SerialTransport {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SerialTransport{
		cfg: cfg,
		log: cfg.Logger.WithGroup("bridge.serial"),
	}
}

// Start opens the serial port and begins reading frames.
func (t *SerialTransport) Start(ctx context.Context) error {
	if t.cfg.Port == "" {
		return errors.New("bridge: serial port is required")
	}

	mode := &serialport.Mode{BaudRate: t.cfg.BaudRate}
	port, err := serialport.Open(t.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("bridge: open serial port: %w", err)
	}

	t.mu.Lock()
	t.port = port
	t.connected = true
	t.done = make(chan struct{})
	handler := t.stateHandler
	t.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	go t.readLoop(readCtx)

	t.log.Info("connected", "port", t.cfg.Port, "baud", t.cfg.BaudRate)
	if handler != nil {
		handler(EventConnected)
	}
	return nil
}

// Stop closes the serial port and stops the read loop.
func (t *SerialTransport) Stop() error {
	t.mu.Lock()
	handler := t.stateHandler
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	t.mu.Lock()
	t.connected = false
	port := t.port
	t.port = nil
	done := t.done
	t.mu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}
	if done != nil {
		<-done
	}
	if handler != nil {
		handler(EventDisconnected)
	}
	return err
}

// IsConnected reports whether the serial port is open.
func (t *SerialTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// SetPacketHandler implements Transport.
func (t *SerialTransport) SetPacketHandler(fn PacketHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetHandler = fn
}

// SetStateHandler implements Transport.
func (t *SerialTransport) SetStateHandler(fn StateHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateHandler = fn
}

// SendPacket frames pkt as length-prefixed CBOR with a trailing
// Fletcher-16 checksum and writes it to the serial port. to is unused:
// a serial link has exactly one peer on the other end.
func (t *SerialTransport) SendPacket(to netid.NodeId, pkt wire.Packet) error {
	t.mu.RLock()
	port := t.port
	connected := t.connected
	t.mu.RUnlock()
	if !connected || port == nil {
		return errors.New("bridge: serial not connected")
	}

	data, err := wire.Encode(pkt)
	if err != nil {
		return fmt.Errorf("bridge: encode packet: %w", err)
	}
	frame := encodeFrame(data)
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("bridge: write serial frame: %w", err)
	}
	return nil
}

func encodeFrame(payload []byte) []byte {
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload)+frameChecksumSize)
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	checksum := wire.Fletcher16(payload)
	var checksumBytes [2]byte
	binary.BigEndian.PutUint16(checksumBytes[:], checksum)
	frame = append(frame, checksumBytes[:]...)
	return frame
}

func (t *SerialTransport) readLoop(ctx context.Context) {
	defer close(t.done)

	buf := make([]byte, readBufSize)
	var assemblyBuf []byte

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				t.handleDisconnect(err)
				return
			}
			t.log.Error("serial read error", "error", err)
			t.handleDisconnect(err)
			return
		}
		if n == 0 {
			continue
		}

		assemblyBuf = append(assemblyBuf, buf[:n]...)
		assemblyBuf = t.processFrames(assemblyBuf)
	}
}

// processFrames extracts complete frames from data, dispatching each
// decoded packet, and returns any trailing partial frame.
func (t *SerialTransport) processFrames(data []byte) []byte {
	for {
		if len(data) < frameHeaderSize {
			return data
		}
		payloadLen := int(binary.BigEndian.Uint32(data[:frameHeaderSize]))
		total := frameHeaderSize + payloadLen + frameChecksumSize
		if len(data) < total {
			return data
		}

		payload := data[frameHeaderSize : frameHeaderSize+payloadLen]
		wantChecksum := binary.BigEndian.Uint16(data[frameHeaderSize+payloadLen : total])
		data = data[total:]

		if wire.Fletcher16(payload) != wantChecksum {
			t.log.Debug("dropping frame with bad checksum")
			continue
		}

		pkt, err := wire.Decode(payload)
		if err != nil {
			t.log.Debug("failed to decode bridged packet", "error", err)
			continue
		}

		t.mu.RLock()
		handler := t.packetHandler
		t.mu.RUnlock()
		if handler != nil {
			from := netid.NodeId(0)
			if len(pkt.Routing.Hops) > 0 {
				from = pkt.Routing.Hops[0]
			}
			handler(pkt, from)
		}
	}
}

func (t *SerialTransport) handleDisconnect(err error) {
	t.mu.Lock()
	t.connected = false
	handler := t.stateHandler
	t.mu.Unlock()

	t.log.Error("serial link lost", "error", err)
	if handler != nil {
		handler(EventError)
	}
}
