package httpapi

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dronecast/overlay-client/internal/client"
	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/store"
	"github.com/dronecast/overlay-client/internal/wire"
)

type fakeStore struct {
	meta    map[netid.FileHash]forge.VideoMetaData
	content map[netid.FileHash][]byte
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		meta:    make(map[netid.FileHash]forge.VideoMetaData),
		content: make(map[netid.FileHash][]byte),
	}
}

func (s *fakeStore) ListMetadata() ([]forge.VideoMetaData, error) {
	out := make([]forge.VideoMetaData, 0, len(s.meta))
	for _, v := range s.meta {
		out = append(out, v)
	}
	return out, nil
}

func (s *fakeStore) GetMetadata(id netid.FileHash) (forge.VideoMetaData, bool, error) {
	v, ok := s.meta[id]
	return v, ok, nil
}

func (s *fakeStore) GetContent(id netid.FileHash) ([]byte, bool, error) {
	v, ok := s.content[id]
	return v, ok, nil
}

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	st := newFakeStore()
	st.meta[7] = forge.VideoMetaData{ID: 7, Title: "clip"}
	st.content[7] = []byte("hello world")
	return client.New(client.Config{
		ID:             1,
		ClientType:     forge.ClientTypeVideo,
		PacketRecv:     make(chan wire.Packet, 4),
		ControllerRecv: make(chan client.DroneCommand, 4),
		ControllerSend: make(chan client.ControllerEvent, 4),
		Store:          st,
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	c := newTestClient(t)
	srv := New(Config{Addr: "127.0.0.1:0", Client: c})
	return httptest.NewServer(srv.httpSrv.Handler)
}

func TestHandleGetID(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/get-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	require.Equal(t, "1", string(buf[:n]))
}

func TestHandleFSMStatus_StreamsInitialState(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	httpClient := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/fsm-status", nil)
	require.NoError(t, err)

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	line := scanner.Text()
	require.Equal(t, "data: ServerNotFound", line)
}

func TestHandleRequestVideo_LocalHit(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/req-video/7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHandleRequestVideo_BadID(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/req-video/not-a-number")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleVideoStream_DeliversBase64Chunks(t *testing.T) {
	c := newTestClient(t)
	srv := New(Config{Addr: "127.0.0.1:0", Client: c})
	ts := httptest.NewServer(srv.httpSrv.Handler)
	defer ts.Close()

	httpClient := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/video-stream", nil)
	require.NoError(t, err)

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	lines := make(chan string, 1)
	go func() {
		if scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// The subscriber channel is installed just after headers flush, so
	// retry the request until it lands on an active subscription.
	var line string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, c.RequestVideo(7))
		select {
		case line = <-lines:
		case <-time.After(100 * time.Millisecond):
			continue
		}
		break
	}
	require.True(t, strings.HasPrefix(line, "data: "), "got line %q", line)
	encoded := strings.TrimPrefix(line, "data: ")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(decoded))
}

func TestHandleVideoListFromDB(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	httpClient := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/req-video-list-from-db", nil)
	require.NoError(t, err)

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var sawVideo, sawDone bool
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			var v forge.VideoMetaData
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v))
			require.Equal(t, netid.FileHash(7), v.ID)
			sawVideo = true
		case line == "event: done":
			sawDone = true
		}
	}
	require.True(t, sawVideo)
	require.True(t, sawDone)
}

func TestHandleRequestFileListFromServer_NoServersYet(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/req-video-list-from-server")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleFloodReq(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/flood-req")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestClient(t)
	reg := prometheus.NewRegistry()
	srv := New(Config{Addr: "127.0.0.1:0", Client: c, Registry: reg})
	ts := httptest.NewServer(srv.httpSrv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
