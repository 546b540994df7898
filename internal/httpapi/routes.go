package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dronecast/overlay-client/internal/client"
	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
)

// fsmPollInterval is how often /fsm-status emits the current state.
const fsmPollInterval = 1 * time.Second

// videoChunkBacklog bounds the buffered chunk channel installed per
// /video-stream subscriber.
const videoChunkBacklog = 1024

// fileListBacklog bounds the buffered file-list channel installed per
// /video-list-from-server subscriber.
const fileListBacklog = 10

func registerRoutes(mux *http.ServeMux, c *client.Client, log *slog.Logger) {
	mux.HandleFunc("GET /get-id", handleGetID(c))
	mux.HandleFunc("GET /fsm-status", handleFSMStatus(c))
	mux.HandleFunc("GET /req-video/{video_id}", handleRequestVideo(c))
	mux.HandleFunc("GET /video-stream", handleVideoStream(c))
	mux.HandleFunc("GET /req-video-list-from-db", handleVideoListFromDB(c))
	mux.HandleFunc("GET /req-video-list-from-server", handleRequestFileListFromServer(c))
	mux.HandleFunc("GET /video-list-from-server", handleVideoListFromServer(c))
	mux.HandleFunc("GET /flood-req", handleFloodReq(c))
}

// handleGetID returns the client's NodeId as decimal text.
func handleGetID(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%d", uint8(c.ID()))
	}
}

// handleFSMStatus streams the current FSM name once per second until the
// client disconnects or the state reaches Terminated.
func handleFSMStatus(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := beginSSE(w)
		if !ok {
			return
		}

		ticker := time.NewTicker(fsmPollInterval)
		defer ticker.Stop()

		writeSSEData(w, flusher, []byte(c.FSMState().String()))
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				state := c.FSMState()
				writeSSEData(w, flusher, []byte(state.String()))
				if state == client.Terminated {
					return
				}
			}
		}
	}
}

// handleRequestVideo parses the video_id path value, attempts a local
// fetch, and falls back to peer discovery on a miss, per §6.
func handleRequestVideo(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseFileHash(r.PathValue("video_id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := c.RequestVideo(id); err != nil {
			loggerFromContext(r.Context()).Warn("request video failed", "video_id", id, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// handleVideoStream streams chunk bytes for the active video request as
// base64-encoded SSE events.
func handleVideoStream(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := beginSSE(w)
		if !ok {
			return
		}

		ch := make(chan []byte, videoChunkBacklog)
		c.SetVideoSubscriber(ch)
		defer c.SetVideoSubscriber(nil)

		for {
			select {
			case <-r.Context().Done():
				return
			case chunk := <-ch:
				encoded := base64.StdEncoding.EncodeToString(chunk)
				writeSSEData(w, flusher, []byte(encoded))
			}
		}
	}
}

// handleVideoListFromDB emits one JSON-encoded VideoMetaData event per
// locally stored video, then ends the stream.
func handleVideoListFromDB(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := beginSSE(w)
		if !ok {
			return
		}

		videos, err := c.LocalVideos()
		if err != nil {
			loggerFromContext(r.Context()).Error("list local videos failed", "error", err)
			writeSSEEvent(w, flusher, "error")
			return
		}
		for _, v := range videos {
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			writeSSEData(w, flusher, data)
		}
		writeSSEEvent(w, flusher, "done")
	}
}

// handleRequestFileListFromServer broadcasts a RequestFileList to every
// known server.
func handleRequestFileListFromServer(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.RequestFileList(); err != nil {
			loggerFromContext(r.Context()).Warn("request file list failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// fileListEventDTO is the wire shape of a ResponseFileList arrival,
// published on /video-list-from-server.
type fileListEventDTO struct {
	ServerID netid.NodeId          `json:"server_id"`
	Videos   []forge.VideoMetaData `json:"videos"`
}

// handleVideoListFromServer streams (server_id, videos) events as
// ResponseFileList messages arrive from known servers.
func handleVideoListFromServer(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := beginSSE(w)
		if !ok {
			return
		}

		ch := make(chan client.FileListEvent, fileListBacklog)
		c.SetFileListSubscriber(ch)
		defer c.SetFileListSubscriber(nil)

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-ch:
				data, err := json.Marshal(fileListEventDTO{ServerID: ev.ServerID, Videos: ev.Videos})
				if err != nil {
					continue
				}
				writeSSEData(w, flusher, data)
			}
		}
	}
}

// handleFloodReq manually triggers an unconditional flood.
func handleFloodReq(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.TriggerFlood()
		w.WriteHeader(http.StatusAccepted)
	}
}

func parseFileHash(raw string) (netid.FileHash, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid video_id %q: %w", raw, err)
	}
	return netid.FileHash(v), nil
}
