// expense-proxy bridges a desktop MCP client speaking stdio to a remote
// expense-mcp instance serving streamable HTTP. Each newline-framed
// JSON-RPC message read from stdin is posted to the remote endpoint and
// the response body is written back to stdout.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"expensetracker/internal/cli"
)

const sessionHeader = "Mcp-Session-Id"

type proxy struct {
	remoteURL string
	client    *http.Client
	sessionID string
	out       io.Writer
}

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), "expense-proxy")
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.RemoteURL == "" {
		logger.Error("REMOTE_URL is required for the proxy")
		os.Exit(1)
	}

	p := &proxy{
		remoteURL: cfg.RemoteURL,
		client:    &http.Client{Timeout: 60 * time.Second},
		out:       os.Stdout,
	}

	logger.Info("Proxy started", "remote", cfg.RemoteURL)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := p.forward(line); err != nil {
			logger.Error("Forward failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Stdin read failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Client closed stdin, proxy exiting")
}

// forward posts one JSON-RPC message to the remote server and writes
// any response payloads to stdout, one per line.
func (p *proxy) forward(message []byte) error {
	req, err := http.NewRequest(http.MethodPost, p.remoteURL, bytes.NewReader(message))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if p.sessionID != "" {
		req.Header.Set(sessionHeader, p.sessionID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to remote: %w", err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get(sessionHeader); sid != "" {
		p.sessionID = sid
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		// Notification accepted, nothing to write back.
		return nil
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("remote returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return p.writeEventStream(resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return p.writeLine(bytes.TrimSpace(body))
}

// writeEventStream unwraps SSE framing, emitting each data payload as
// one stdout line.
func (p *proxy) writeEventStream(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			if err := p.writeLine(bytes.TrimSpace(data)); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func (p *proxy) writeLine(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(p.out, "%s\n", payload); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
