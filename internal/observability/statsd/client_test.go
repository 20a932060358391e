package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}
	for input, want := range tests {
		if got := sanitizePrefix(input); got != want {
			t.Fatalf("sanitizePrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" consult/dispatch ": "consult_dispatch",
		"foo..bar":           "foo.bar",
		"multi  space":       "multi__space",
		".consult.result.":   "consult.result",
	}
	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEncodeLine(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " consultd "}
	local := map[string]string{"outcome": " accepted ", "": "ignored", "env": "stage"}

	got := encodeLine("app", "consult.dispatch", "1", "c", global, local)
	want := "app.consult.dispatch:1|c|#env:stage,outcome:accepted,service:consultd"
	if got != want {
		t.Fatalf("encodeLine mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := encodeLine("app", "  ", "1", "c", nil, nil); got != "" {
		t.Fatalf("expected empty line for blank name, got %q", got)
	}
	if got := encodeLine("", "consult.reaped", "2", "c", nil, nil); got != "consult.reaped:2|c" {
		t.Fatalf("unexpected untagged line %q", got)
	}
}

func TestClientWritesDatagram(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{prefix: "consultd", conn: clientConn, logger: discardLogger()}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		done <- string(buf[:n])
	}()

	client.Timing("consult.dispatch.duration", 1500*time.Microsecond, map[string]string{"outcome": "accepted"})

	select {
	case line := <-done:
		if line != "consultd.consult.dispatch.duration:1.5|ms|#outcome:accepted" {
			t.Fatalf("unexpected datagram %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn, logger: discardLogger()}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}
	client.Count("consult.enqueued", 1, nil)

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("consult.enqueued", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorderSum(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("consult.result", 1, map[string]string{"state": "COMPLETED"})
	r.Count("consult.result", 1, map[string]string{"state": "FAILED"})
	r.Count("consult.result", 1, map[string]string{"state": "COMPLETED"})
	r.Gauge("consult.result", 5, nil)

	if got := r.Sum("consult.result", map[string]string{"state": "COMPLETED"}); got != 2 {
		t.Fatalf("Sum = %v, want 2", got)
	}
	if got := len(r.Named("consult.result")); got != 4 {
		t.Fatalf("Named returned %d samples, want 4", got)
	}
}
