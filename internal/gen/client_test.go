package gen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)
	return c
}

func TestEditSendsRequest(t *testing.T) {
	var got EditRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/images/edit", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Result{Base64: "aGk=", TextResponse: "done"})
	})
	c := newTestClient(t, mux)

	res, err := c.Edit(context.Background(), EditRequest{
		Images:     []ImageInput{{Source: "data:image/png;base64,AA==", MimeType: "image/png"}},
		Prompt:     "make it blue",
		TargetSize: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGk=", res.Source())
	assert.Equal(t, "done", res.TextResponse)
	assert.Equal(t, "make it blue", got.Prompt)
	require.Len(t, got.Images, 1)
	assert.Equal(t, 1024, got.TargetSize)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, "", func(t *testing.T, err error) {
			assert.True(t, IsUnauthorized(err))
		}},
		{"forbidden", http.StatusForbidden, "", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"json message", http.StatusBadRequest, `{"error":"prompt rejected"}`, func(t *testing.T, err error) {
			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, 400, se.Status)
			assert.Equal(t, "prompt rejected", se.Message)
		}},
		{"plain body", http.StatusInternalServerError, "boom", func(t *testing.T, err error) {
			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "boom", se.Message)
			assert.False(t, IsUnauthorized(err))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestEmptyResult(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"textResponse":"cannot"}`))
	}))
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestModels(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"id":"m1","name":"Fast","kind":"image"}]}`))
	}))
	models, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Model{{ID: "m1", Name: "Fast", Kind: "image"}}, models)
}

func TestNewClientRejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com", "")
	assert.Error(t, err)
}

func videoServer(t *testing.T, script func(conn *websocket.Conn, req VideoRequest)) *Client {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req VideoRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		script(conn, req)
	}))
}

func TestGenerateVideoStreamsProgress(t *testing.T) {
	c := videoServer(t, func(conn *websocket.Conn, req VideoRequest) {
		_ = conn.WriteJSON(streamMessage{Type: "progress", Percent: 25})
		_ = conn.WriteJSON(streamMessage{Type: "progress", Percent: 75, Message: "rendering"})
		_ = conn.WriteJSON(streamMessage{Type: "done", VideoURL: "https://cdn.example/" + req.Ratio + ".mp4"})
	})

	var seen []Progress
	res, err := c.GenerateVideo(context.Background(), VideoRequest{Prompt: "pan left", Ratio: "16x9", Duration: 5},
		func(p Progress) { seen = append(seen, p) })
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/16x9.mp4", res.VideoURL)
	assert.Equal(t, []Progress{{Percent: 25}, {Percent: 75, Message: "rendering"}}, seen)
}

func TestGenerateVideoFailure(t *testing.T) {
	c := videoServer(t, func(conn *websocket.Conn, _ VideoRequest) {
		_ = conn.WriteJSON(streamMessage{Type: "error", Message: "quota exceeded"})
	})
	_, err := c.GenerateVideo(context.Background(), VideoRequest{}, nil)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "quota exceeded", se.Message)
}

func TestGenerateVideoUnauthorized(t *testing.T) {
	c := videoServer(t, func(*websocket.Conn, VideoRequest) {})
	c.token = "wrong"
	_, err := c.GenerateVideo(context.Background(), VideoRequest{}, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGenerateVideoCancelled(t *testing.T) {
	block := make(chan struct{})
	c := videoServer(t, func(*websocket.Conn, VideoRequest) { <-block })
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.GenerateVideo(ctx, VideoRequest{}, nil)
		errc <- err
	}()
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
