// Package mcp implements the search backend as a tool call against an
// MCP server reached over websocket.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orallm/voicebot/internal/logging"
)

// SearchClient holds a client session against an MCP server and answers
// queries by invoking a named tool.
type SearchClient struct {
	Tool string

	client *sdk.Client

	mu      sync.Mutex
	session *sdk.ClientSession
}

// NewSearchClient creates a client identifying itself with name/version.
// tool is the MCP tool invoked per query.
func NewSearchClient(name, version, tool string) *SearchClient {
	impl := &sdk.Implementation{Name: name, Version: version}
	return &SearchClient{
		Tool:   tool,
		client: sdk.NewClient(impl, nil),
	}
}

// Connect dials the server websocket endpoint and establishes a session.
// http(s) schemes are rewritten to ws(s).
func (c *SearchClient) Connect(ctx context.Context, rawurl string) error {
	u, err := url.Parse(rawurl)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	sess, err := c.client.Connect(ctx, newSocketTransport(conn), nil)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = sess.Ping(context.Background(), nil)
			}
		}
	}()
	logging.Infow("mcp: connected", "url", u.String(), "tool", c.Tool)
	return nil
}

// Answer invokes the configured tool with the query and concatenates the
// text content of the result.
func (c *SearchClient) Answer(ctx context.Context, query string) (string, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return "", errors.New("mcp: not connected")
	}

	res, err := sess.CallTool(ctx, &sdk.CallToolParams{
		Name:      c.Tool,
		Arguments: map[string]any{"query": query},
	})
	if err != nil {
		return "", fmt.Errorf("mcp: call %s: %w", c.Tool, err)
	}
	if res.IsError {
		return "", fmt.Errorf("mcp: tool %s reported an error", c.Tool)
	}

	var parts []string
	for _, item := range res.Content {
		if text, ok := item.(*sdk.TextContent); ok && strings.TrimSpace(text.Text) != "" {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("mcp: tool %s returned no text", c.Tool)
	}
	return strings.Join(parts, "\n"), nil
}

// Close tears down the session.
func (c *SearchClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		err := c.session.Close()
		c.session = nil
		return err
	}
	return nil
}
