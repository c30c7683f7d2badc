package ami

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config describes how to reach and authenticate against the AMI control
// port of the PBX.
type Config struct {
	Addr     string
	Username string
	Secret   string

	// ReadTimeout bounds every socket read. A half-open connection is
	// detected when a read exceeds it.
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 10 * time.Second
	}
	return out
}

// Client is a line-oriented AMI session. Requests are key:value blocks
// terminated by a blank line; responses are one or more such blocks.
//
// A Client is NOT meant to be shared across campaign loops: responses are
// read sequentially off one socket. The internal mutex only serializes
// request/response pairs issued by a loop and its call monitors.
type Client struct {
	mu sync.Mutex

	conn        net.Conn
	r           *bufio.Reader
	readTimeout time.Duration
	closed      bool
}

// Dial opens a TCP connection to the PBX, consumes the banner line and
// performs the Login action. Any failure is reported as a *ConnectError.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	d := net.Dialer{Timeout: cfg.ReadTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, &ConnectError{Addr: cfg.Addr, Err: err}
	}

	c := &Client{conn: conn, r: bufio.NewReader(conn), readTimeout: cfg.ReadTimeout}

	// Banner, e.g. "Asterisk Call Manager/5.0".
	if _, err := c.readLine(ctx); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Addr: cfg.Addr, Err: fmt.Errorf("banner read: %w", err)}
	}

	resp, err := c.roundTrip(ctx, action{
		name: "Login",
		fields: []field{
			{"Username", cfg.Username},
			{"Secret", cfg.Secret},
		},
	})
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Addr: cfg.Addr, Err: err}
	}
	if !isSuccess(resp) {
		_ = conn.Close()
		return nil, &ConnectError{Addr: cfg.Addr, Err: ErrLoginRejected}
	}
	return c, nil
}

// OriginateRequest mirrors the AMI Originate action. Variables are sent
// as repeated Variable: K=V lines in sorted key order.
type OriginateRequest struct {
	Channel   string
	Context   string
	Exten     string
	Priority  string
	Timeout   time.Duration
	CallerID  string
	Variables map[string]string
}

// Originate places an outbound call. It returns false without error when
// the PBX explicitly rejects the request; an error only means the
// transport failed.
func (c *Client) Originate(ctx context.Context, req OriginateRequest) (bool, error) {
	if req.Priority == "" {
		req.Priority = "1"
	}
	if req.Timeout <= 0 {
		req.Timeout = 30 * time.Second
	}

	a := action{
		name:     "Originate",
		actionID: uuid.NewString(),
		fields: []field{
			{"Channel", req.Channel},
			{"Context", req.Context},
			{"Exten", req.Exten},
			{"Priority", req.Priority},
			{"Timeout", fmt.Sprintf("%d", req.Timeout.Milliseconds())},
		},
	}
	if req.CallerID != "" {
		a.fields = append(a.fields, field{"CallerID", req.CallerID})
	}
	for _, k := range sortedKeys(req.Variables) {
		a.fields = append(a.fields, field{"Variable", k + "=" + req.Variables[k]})
	}

	resp, err := c.roundTrip(ctx, a)
	if err != nil {
		return false, &ProtocolError{Action: "originate", Err: err}
	}
	return isSuccess(resp), nil
}

// Hangup tears down a single channel. False means the PBX refused (e.g.
// the channel is already gone).
func (c *Client) Hangup(ctx context.Context, channel string) (bool, error) {
	resp, err := c.roundTrip(ctx, action{
		name:   "Hangup",
		fields: []field{{"Channel", channel}},
	})
	if err != nil {
		return false, &ProtocolError{Action: "hangup", Err: err}
	}
	return isSuccess(resp), nil
}

// ChannelStatus queries a single channel and returns the first event
// block describing it.
func (c *Client) ChannelStatus(ctx context.Context, channel string) (map[string]string, error) {
	events, err := c.statusQuery(ctx, []field{{"Channel", channel}})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events[0], nil
}

// ActiveChannels lists every active channel as one key:value block per
// channel. vars names channel variables to include in each event block,
// which is how callers correlate channels back to their own call IDs.
func (c *Client) ActiveChannels(ctx context.Context, vars ...string) ([]map[string]string, error) {
	var fields []field
	if len(vars) > 0 {
		fields = append(fields, field{"Variables", strings.Join(vars, ",")})
	}
	return c.statusQuery(ctx, fields)
}

func (c *Client) statusQuery(ctx context.Context, fields []field) ([]map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &ProtocolError{Action: "status", Err: ErrClosed}
	}

	a := action{name: "Status", actionID: uuid.NewString(), fields: fields}
	if err := c.writeAction(ctx, a); err != nil {
		return nil, &ProtocolError{Action: "status", Err: err}
	}

	// First block acknowledges the query; the events follow until a
	// StatusComplete marker. An idle read timeout also terminates the
	// stream so a half-open socket cannot wedge the caller.
	ack, err := c.readBlock(ctx)
	if err != nil {
		return nil, &ProtocolError{Action: "status", Err: err}
	}
	if !isSuccess(ack) {
		return nil, nil
	}

	var events []map[string]string
	for {
		block, err := c.readBlock(ctx)
		if err != nil {
			if isTimeout(err) {
				return events, nil
			}
			return events, &ProtocolError{Action: "status", Err: err}
		}
		if len(block) == 0 {
			continue
		}
		if block["Event"] == "StatusComplete" {
			return events, nil
		}
		events = append(events, block)
	}
}

// Close logs off and closes the socket. It is safe to call multiple
// times; the logoff is best effort.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.conn.Write([]byte("Action: Logoff\r\n\r\n"))
	return c.conn.Close()
}

// roundTrip writes one action and reads one response block.
func (c *Client) roundTrip(ctx context.Context, a action) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.writeAction(ctx, a); err != nil {
		return nil, err
	}
	return c.readBlock(ctx)
}

type field struct {
	key   string
	value string
}

type action struct {
	name     string
	actionID string
	fields   []field
}

func (c *Client) writeAction(ctx context.Context, a action) error {
	var b strings.Builder
	b.WriteString("Action: ")
	b.WriteString(a.name)
	b.WriteString("\r\n")
	if a.actionID != "" {
		b.WriteString("ActionID: ")
		b.WriteString(a.actionID)
		b.WriteString("\r\n")
	}
	for _, f := range a.fields {
		b.WriteString(f.key)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(b.String()))
	return err
}

// readBlock reads key:value lines until a blank line. Lines without a
// colon are ignored, matching how the PBX intermixes informational text.
func (c *Client) readBlock(ctx context.Context) (map[string]string, error) {
	block := map[string]string{}
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			// A timeout after partial data still surfaces as an error;
			// the caller decides whether partial results are usable.
			return block, err
		}
		if line == "" {
			if len(block) == 0 {
				// Tolerate a stray blank line between blocks.
				continue
			}
			return block, nil
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		block[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
}

func (c *Client) readLine(ctx context.Context) (string, error) {
	if err := c.conn.SetReadDeadline(c.deadline(ctx)); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.readTimeout)
	if ctxD, ok := ctx.Deadline(); ok && ctxD.Before(d) {
		return ctxD
	}
	return d
}

func isSuccess(block map[string]string) bool {
	return block["Response"] == "Success"
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
