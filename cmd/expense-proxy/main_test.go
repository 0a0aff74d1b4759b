package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestProxy(url string) (*proxy, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &proxy{
		remoteURL: url,
		client:    &http.Client{Timeout: 5 * time.Second},
		out:       out,
	}, out
}

func TestForwardJSONResponse(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Mcp-Session-Id", "session-1")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer srv.Close()

	p, out := newTestProxy(srv.URL)
	if err := p.forward([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if gotBody != `{"jsonrpc":"2.0","id":1,"method":"ping"}` {
		t.Fatalf("remote saw %q", gotBody)
	}
	if out.String() != `{"jsonrpc":"2.0","id":1,"result":{}}`+"\n" {
		t.Fatalf("unexpected stdout: %q", out.String())
	}
	if p.sessionID != "session-1" {
		t.Fatalf("session id not captured: %q", p.sessionID)
	}
}

func TestForwardSessionReplay(t *testing.T) {
	var sawSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSession = r.Header.Get("Mcp-Session-Id")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p, out := newTestProxy(srv.URL)
	p.sessionID = "session-2"
	if err := p.forward([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if sawSession != "session-2" {
		t.Fatalf("session header not replayed: %q", sawSession)
	}
	// 202 means notification accepted: no stdout line.
	if out.Len() != 0 {
		t.Fatalf("unexpected output for notification: %q", out.String())
	}
}

func TestForwardEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":2,\"result\":{}}\n\n"))
	}))
	defer srv.Close()

	p, out := newTestProxy(srv.URL)
	if err := p.forward([]byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.String() != `{"jsonrpc":"2.0","id":2,"result":{}}`+"\n" {
		t.Fatalf("unexpected stdout: %q", out.String())
	}
}

func TestForwardRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad session", http.StatusNotFound)
	}))
	defer srv.Close()

	p, out := newTestProxy(srv.URL)
	err := p.forward([]byte(`{"jsonrpc":"2.0","id":3,"method":"ping"}`))
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("error responses must not reach stdout: %q", out.String())
	}
}
