package net

import (
	"encoding/json"
	"errors"
	"image"
	"io"
	stdnet "net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanvasBoard/internal/state"
)

func testBoard(name string) state.Board {
	img := state.NewImage("a.png", "image/png", state.Rect{Width: 10, Height: 10})
	return state.Board{ID: state.NewID(), Name: name, Elements: []state.Element{img}}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastReachesViewers(t *testing.T) {
	share := NewShareServer(NewConnectionManager())
	srv := httptest.NewServer(share.Handler())
	t.Cleanup(srv.Close)

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return share.Connections().Count() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, share.Broadcast(testBoard("first")))
	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		assert.Equal(t, "snapshot", msg.Type)
		assert.Equal(t, "first", msg.Board.Name)
		require.Len(t, msg.Board.Elements, 1)
	}
}

func TestLateViewerGetsLastSnapshot(t *testing.T) {
	share := NewShareServer(NewConnectionManager())
	srv := httptest.NewServer(share.Handler())
	t.Cleanup(srv.Close)

	require.NoError(t, share.Broadcast(testBoard("old")))
	require.NoError(t, share.Broadcast(testBoard("new")))
	conn := dial(t, srv)
	assert.Equal(t, "new", read(t, conn).Board.Name)

	resp, err := http.Get(srv.URL + "/board.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "new", msg.Board.Name)
}

func TestBoardJSONBeforeShare(t *testing.T) {
	srv := httptest.NewServer(NewShareServer(NewConnectionManager()).Handler())
	t.Cleanup(srv.Close)
	resp, err := http.Get(srv.URL + "/board.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewerRemovedOnClose(t *testing.T) {
	share := NewShareServer(NewConnectionManager())
	srv := httptest.NewServer(share.Handler())
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return share.Connections().Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return share.Connections().Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSlowViewerIsDropped(t *testing.T) {
	cm := NewConnectionManager()
	v := &Viewer{send: make(chan []byte, 1), addr: "test"}
	cm.Add(v)
	cm.Broadcast([]byte("1"))
	cm.Broadcast([]byte("2"))
	assert.Zero(t, cm.Count())
	cm.Remove(v)
	assert.Equal(t, []byte("2"), cm.Last())
}

func TestSnapshotMessage(t *testing.T) {
	b := testBoard("x")
	b.Elements[0].Image.Handle = image.NewRGBA(image.Rect(0, 0, 4, 4))
	data, err := SnapshotMessage(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"snapshot"`)
	assert.Contains(t, string(data), `"href":"a.png"`)
	assert.NotNil(t, b.Elements[0].Image.Handle)
}

func TestEntryFound(t *testing.T) {
	f, ok := entryFound(&mdns.ServiceEntry{AddrV4: stdnet.IPv4(192, 168, 1, 4), Port: 8888, InfoFields: []string{"CanvasBoard", "board=Sketches"}})
	assert.True(t, ok)
	assert.Equal(t, Found{Board: "Sketches", Addr: "192.168.1.4:8888", URL: "ws://192.168.1.4:8888/ws"}, f)
	_, ok = entryFound(&mdns.ServiceEntry{Port: 8888})
	assert.False(t, ok)
	_, ok = entryFound(nil)
	assert.False(t, ok)
}

func TestBrowseReportsEachServerOnce(t *testing.T) {
	orig := query
	t.Cleanup(func() { query = orig })
	query = func(p *mdns.QueryParam) error {
		assert.Equal(t, serviceType, p.Service)
		assert.True(t, p.DisableIPv6)
		a := &mdns.ServiceEntry{AddrV4: stdnet.IPv4(10, 0, 0, 7), Port: 8888, InfoFields: []string{"board=A"}}
		p.Entries <- a
		p.Entries <- a
		p.Entries <- &mdns.ServiceEntry{Port: 1}
		p.Entries <- &mdns.ServiceEntry{AddrV4: stdnet.IPv4(10, 0, 0, 8), Port: 9000}
		return nil
	}

	var got []Found
	require.NoError(t, Browse(50*time.Millisecond, func(f Found) { got = append(got, f) }))
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Board)
	assert.Equal(t, "ws://10.0.0.8:9000/ws", got[1].URL)
}

func TestBrowseReturnsQueryError(t *testing.T) {
	orig := query
	t.Cleanup(func() { query = orig })
	query = func(*mdns.QueryParam) error { return errors.New("no multicast") }
	assert.EqualError(t, Browse(time.Millisecond, func(Found) {}), "no multicast")
}

func TestShareURL(t *testing.T) {
	assert.Equal(t, "ws://10.0.0.2:8888/ws", ShareURL("10.0.0.2", 8888))
	assert.Equal(t, "ws://[::1]:80/ws", ShareURL("::1", 80))
}
