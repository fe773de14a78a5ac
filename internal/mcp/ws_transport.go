package mcp

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// socketTransport adapts an already-dialed websocket to the SDK's transport
// interfaces. The SDK separates dialing from the message stream, but here the
// dial happened in SearchClient.Connect, so both roles wrap the same conn.
type socketTransport struct {
	conn *websocket.Conn
}

type socketConn socketTransport

func newSocketTransport(conn *websocket.Conn) sdk.Transport {
	return &socketTransport{conn: conn}
}

func (t *socketTransport) Connect(ctx context.Context) (sdk.Connection, error) {
	return (*socketConn)(t), nil
}

func (c *socketConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	reset := c.applyDeadline(ctx, c.conn.SetReadDeadline)
	defer reset()
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return jsonrpc.DecodeMessage(raw)
}

func (c *socketConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	raw, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	reset := c.applyDeadline(ctx, c.conn.SetWriteDeadline)
	defer reset()
	return c.conn.WriteMessage(websocket.BinaryMessage, raw)
}

// applyDeadline maps the context deadline, if any, onto the conn for one
// operation. Gorilla deadlines are sticky, so the returned func clears them.
func (c *socketConn) applyDeadline(ctx context.Context, set func(time.Time) error) func() {
	dl, ok := ctx.Deadline()
	if !ok {
		return func() {}
	}
	_ = set(dl)
	return func() { _ = set(time.Time{}) }
}

func (c *socketConn) Close() error { return c.conn.Close() }

// SessionID is empty: the tool server does not issue session identifiers
// over this transport.
func (c *socketConn) SessionID() string { return "" }
