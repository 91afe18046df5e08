package presence

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	portRangeStart = 6463
	portRangeEnd   = 6472

	dialTimeout      = 2 * time.Second
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
)

// DiscordClient talks to the local Discord client over its websocket RPC
// endpoint. The connection is established lazily on first use and dropped on
// any error so the next call reconnects.
type DiscordClient struct {
	clientID string

	mu    sync.Mutex
	conn  *websocket.Conn
	nonce int
}

func NewDiscordClient(clientID string) *DiscordClient {
	return &DiscordClient{clientID: clientID}
}

type rpcFrame struct {
	Cmd   string          `json:"cmd"`
	Args  json.RawMessage `json:"args,omitempty"`
	Evt   string          `json:"evt,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
}

type activityArgs struct {
	PID      int       `json:"pid"`
	Activity *activity `json:"activity"`
}

type activity struct {
	Details    string              `json:"details,omitempty"`
	State      string              `json:"state,omitempty"`
	Timestamps *activityTimestamps `json:"timestamps,omitempty"`
	Assets     *activityAssets     `json:"assets,omitempty"`
}

type activityTimestamps struct {
	Start int64 `json:"start,omitempty"`
}

type activityAssets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Publish sets the presence to the given payload.
func (c *DiscordClient) Publish(p Payload) error {
	act := &activity{
		Details: p.Details,
		State:   p.State,
	}
	if p.Start > 0 {
		act.Timestamps = &activityTimestamps{Start: p.Start}
	}
	if p.LargeImage != "" || p.SmallImage != "" {
		act.Assets = &activityAssets{
			LargeImage: p.LargeImage,
			LargeText:  p.LargeText,
			SmallImage: p.SmallImage,
			SmallText:  p.SmallText,
		}
	}
	return c.setActivity(act)
}

// Clear removes the presence. Publishing a nil activity is how the RPC
// protocol expresses "no presence".
func (c *DiscordClient) Clear() error {
	return c.setActivity(nil)
}

func (c *DiscordClient) setActivity(act *activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(); err != nil {
		return err
	}

	c.nonce++
	args, err := json.Marshal(activityArgs{PID: os.Getpid(), Activity: act})
	if err != nil {
		return errors.Wrap(err, "failed to encode activity")
	}
	frame := rpcFrame{
		Cmd:   "SET_ACTIVITY",
		Args:  args,
		Nonce: fmt.Sprintf("%d", c.nonce),
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.dropConn()
		return errors.Wrap(err, "failed to send activity frame")
	}
	return nil
}

// ensureConn scans the local RPC port range and completes the handshake on
// the first port that answers. Discord binds one port in 6463-6472 depending
// on how many clients are running.
func (c *DiscordClient) ensureConn() error {
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{"Origin": []string{"https://localhost"}}

	var lastErr error
	for port := portRangeStart; port <= portRangeEnd; port++ {
		url := fmt.Sprintf("ws://127.0.0.1:%d/?v=1&client_id=%s&encoding=json", port, c.clientID)
		conn, _, err := dialer.Dial(url, header)
		if err != nil {
			lastErr = err
			continue
		}

		if err := awaitReady(conn); err != nil {
			conn.Close()
			lastErr = err
			continue
		}

		c.conn = conn
		return nil
	}

	if lastErr != nil {
		return errors.Wrap(lastErr, "no local RPC endpoint answered")
	}
	return errors.New("no local RPC endpoint answered")
}

// awaitReady waits for the READY dispatch that the client sends right after
// the websocket handshake.
func awaitReady(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var frame rpcFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return errors.Wrap(err, "failed to read handshake response")
	}
	if frame.Evt != "READY" {
		return errors.Errorf("unexpected handshake event %q", frame.Evt)
	}
	return nil
}

func (c *DiscordClient) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *DiscordClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConn()
	return nil
}
