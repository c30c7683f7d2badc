package ami

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// fakePBX runs a scripted AMI endpoint on a loopback listener. The script
// receives the accepted connection after the banner has been written.
func fakePBX(t *testing.T, script func(conn net.Conn, r *bufio.Reader)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("Asterisk Call Manager/5.0\r\n"))
		script(conn, bufio.NewReader(conn))
	}()
	return ln.Addr().String()
}

// readAction consumes one key:value request block from the client.
func readAction(r *bufio.Reader) map[string]string {
	block := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return block
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return block
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			// Variable repeats; keep the last occurrence joined for assertions.
			key := strings.TrimSpace(k)
			val := strings.TrimSpace(v)
			if prev, dup := block[key]; dup {
				block[key] = prev + "|" + val
			} else {
				block[key] = val
			}
		}
	}
}

func respond(conn net.Conn, lines ...string) {
	_, _ = conn.Write([]byte(strings.Join(lines, "\r\n") + "\r\n\r\n"))
}

func expectLogin(t *testing.T, conn net.Conn, r *bufio.Reader) {
	t.Helper()
	req := readAction(r)
	if req["Action"] != "Login" {
		t.Errorf("expected Login first, got %q", req["Action"])
	}
	respond(conn, "Response: Success", "Message: Authentication accepted")
}

func TestDial_LoginSuccess(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		req := readAction(r)
		if req["Action"] != "Login" || req["Username"] != "admin" || req["Secret"] != "amp111" {
			respond(conn, "Response: Error", "Message: Authentication failed")
			return
		}
		respond(conn, "Response: Success", "Message: Authentication accepted")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	defer c.Close()
}

func TestDial_LoginRejected(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		readAction(r)
		respond(conn, "Response: Error", "Message: Authentication failed")
	})

	_, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "wrong", ReadTimeout: time.Second})
	if err == nil {
		t.Fatalf("expected error")
	}
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectError, got %T", err)
	}
	if !errors.Is(err, ErrLoginRejected) {
		t.Fatalf("expected ErrLoginRejected, got %v", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), Config{Addr: "127.0.0.1:1", Username: "a", Secret: "b", ReadTimeout: 200 * time.Millisecond})
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
}

func TestOriginate_WireFormatAndSuccess(t *testing.T) {
	got := make(chan map[string]string, 1)
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		req := readAction(r)
		got <- req
		respond(conn, "Response: Success", "Message: Originate successfully queued")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ok, err := c.Originate(context.Background(), OriginateRequest{
		Channel:  "SIP/trunk/6281234567890",
		Context:  "predictive-dialer",
		Exten:    "101",
		Timeout:  30 * time.Second,
		CallerID: "Predictive Dialer <1000>",
		Variables: map[string]string{
			"CALL_ID":  "abc",
			"AGENT_ID": "a1",
		},
	})
	if err != nil {
		t.Fatalf("originate: %v", err)
	}
	if !ok {
		t.Fatalf("expected originate success")
	}

	req := <-got
	if req["Action"] != "Originate" {
		t.Fatalf("expected Originate action, got %q", req["Action"])
	}
	if req["ActionID"] == "" {
		t.Fatalf("expected a correlation ActionID")
	}
	if req["Channel"] != "SIP/trunk/6281234567890" || req["Exten"] != "101" || req["Priority"] != "1" {
		t.Fatalf("unexpected originate fields: %+v", req)
	}
	if req["Timeout"] != "30000" {
		t.Fatalf("expected Timeout 30000 ms, got %q", req["Timeout"])
	}
	// Variables arrive sorted by key.
	if req["Variable"] != "AGENT_ID=a1|CALL_ID=abc" {
		t.Fatalf("unexpected variables: %q", req["Variable"])
	}
}

func TestOriginate_ExplicitRejectionIsNotAnError(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		readAction(r)
		respond(conn, "Response: Error", "Message: Originate failed")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ok, err := c.Originate(context.Background(), OriginateRequest{Channel: "SIP/x", Context: "ctx", Exten: "100"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected rejection")
	}
}

func TestActiveChannels_ParsesStackedEventBlocks(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		req := readAction(r)
		if req["Action"] != "Status" {
			t.Errorf("expected Status action, got %q", req["Action"])
		}
		if req["Variables"] != "CALL_ID" {
			t.Errorf("expected Variables: CALL_ID, got %q", req["Variables"])
		}
		respond(conn, "Response: Success", "EventList: start")
		respond(conn, "Event: Status", "Channel: SIP/trunk-0001", "Variable: CALL_ID=call-1")
		respond(conn, "Event: Status", "Channel: SIP/trunk-0002", "Variable: CALL_ID=call-2")
		respond(conn, "Event: StatusComplete", "Items: 2")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	events, err := c.ActiveChannels(context.Background(), "CALL_ID")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0]["Variable"] != "CALL_ID=call-1" || events[1]["Channel"] != "SIP/trunk-0002" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestActiveChannels_IdleTimeoutTerminatesRead(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		readAction(r)
		respond(conn, "Response: Success", "EventList: start")
		respond(conn, "Event: Status", "Channel: SIP/trunk-0001")
		// No StatusComplete; the client must give up on its own.
		time.Sleep(2 * time.Second)
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: 300 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	start := time.Now()
	events, err := c.ActiveChannels(context.Background())
	if err != nil {
		t.Fatalf("expected timeout to be swallowed, got %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the one delivered event, got %d", len(events))
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("read did not terminate on idle timeout, took %v", elapsed)
	}
}

func TestClose_Idempotent(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		readAction(r) // Logoff
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := c.Originate(context.Background(), OriginateRequest{Channel: "SIP/x", Context: "c", Exten: "1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func TestHangup_WireFormat(t *testing.T) {
	got := make(chan map[string]string, 1)
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		req := readAction(r)
		got <- req
		respond(conn, "Response: Success", "Message: Channel Hungup")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ok, err := c.Hangup(context.Background(), "SIP/trunk-000001")
	if err != nil || !ok {
		t.Fatalf("hangup ok=%v err=%v", ok, err)
	}
	req := <-got
	if req["Action"] != "Hangup" || req["Channel"] != "SIP/trunk-000001" {
		t.Fatalf("unexpected hangup request: %v", req)
	}
}

func TestChannelStatus_ReturnsFirstEvent(t *testing.T) {
	addr := fakePBX(t, func(conn net.Conn, r *bufio.Reader) {
		expectLogin(t, conn, r)
		req := readAction(r)
		if req["Action"] != "Status" || req["Channel"] != "SIP/trunk-000002" {
			respond(conn, "Response: Error", "Message: No such channel")
			return
		}
		respond(conn, "Response: Success", "Message: Channel status will follow")
		respond(conn, "Event: Status", "Channel: SIP/trunk-000002", "ChannelState: 6", "ChannelStateDesc: Up")
		respond(conn, "Event: StatusComplete", "Items: 1")
	})

	c, err := Dial(context.Background(), Config{Addr: addr, Username: "admin", Secret: "amp111", ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	ev, err := c.ChannelStatus(context.Background(), "SIP/trunk-000002")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if ev["ChannelStateDesc"] != "Up" || ev["Channel"] != "SIP/trunk-000002" {
		t.Fatalf("unexpected event: %v", ev)
	}
}
