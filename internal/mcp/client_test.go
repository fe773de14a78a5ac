package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func startToolServer(t *testing.T, impl *sdk.Server) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		go func() {
			session, err := impl.Connect(context.Background(), newSocketTransport(conn), nil)
			if err != nil {
				t.Logf("server connect failed: %v", err)
				_ = conn.Close()
				return
			}
			defer session.Close()
			if err := session.Wait(); err != nil {
				t.Logf("server session wait: %v", err)
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchClientAnswerOverWebSocket(t *testing.T) {
	serverImpl := sdk.NewServer(&sdk.Implementation{Name: "tool-server", Version: "1.0.0"}, nil)

	type searchArgs struct {
		Query string `json:"query"`
	}
	sdk.AddTool(serverImpl, &sdk.Tool{Name: "web_search", Description: "search the web"}, func(ctx context.Context, req *sdk.CallToolRequest, args searchArgs) (*sdk.CallToolResult, any, error) {
		return &sdk.CallToolResult{
			Content: []sdk.Content{
				&sdk.TextContent{Text: "Weather Tomorrow — https://example.com/wx"},
			},
		}, nil, nil
	})

	srv := startToolServer(t, serverImpl)

	c := NewSearchClient("voicebot-test", "test", "web_search")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// the http:// test URL must be rewritten to ws:// by Connect
	if err := c.Connect(ctx, srv.URL); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	got, err := c.Answer(ctx, "weather tomorrow")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got != "Weather Tomorrow — https://example.com/wx" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestSearchClientToolErrorSurfaces(t *testing.T) {
	serverImpl := sdk.NewServer(&sdk.Implementation{Name: "tool-server", Version: "1.0.0"}, nil)

	type searchArgs struct {
		Query string `json:"query"`
	}
	sdk.AddTool(serverImpl, &sdk.Tool{Name: "web_search", Description: "always fails"}, func(ctx context.Context, req *sdk.CallToolRequest, args searchArgs) (*sdk.CallToolResult, any, error) {
		return &sdk.CallToolResult{
			IsError: true,
			Content: []sdk.Content{&sdk.TextContent{Text: "quota exceeded"}},
		}, nil, nil
	})

	srv := startToolServer(t, serverImpl)

	c := NewSearchClient("voicebot-test", "test", "web_search")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx, srv.URL); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.Answer(ctx, "anything"); err == nil {
		t.Fatal("expected an error when the tool reports failure")
	}
}

func TestSearchClientAnswerBeforeConnect(t *testing.T) {
	c := NewSearchClient("voicebot-test", "test", "web_search")
	if _, err := c.Answer(context.Background(), "q"); err == nil {
		t.Fatal("expected an error before Connect")
	}
}
