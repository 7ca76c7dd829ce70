package queryserver

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/loader"
	"github.com/Redish101/gn/schema"
)

func buildTestGraph() *graph.Graph {
	g := graph.NewGraph()
	lib := &graph.Target{
		Label:  schema.Make("//app", "lib", loader.DefaultToolchain.Dir(), loader.DefaultToolchain.Name()),
		Output: graph.StaticLibrary,
		Libs:   []string{"z"},
	}
	g.Add(lib)
	return g
}

func startTestServer(t *testing.T) (sockPath string, cancel func()) {
	t.Helper()
	dir := t.TempDir()
	sockPath = filepath.Join(dir, "gnq.sock")

	g := buildTestGraph()
	s := &Server{SockPath: sockPath, Graph: g, Agg: graph.New()}

	ctx, cancelFn := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ListenAndServe(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(sockPath); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return sockPath, func() {
		cancelFn()
		<-done
	}
}

// sendRequest dials the server, attaches a pipe's write ends as the
// ancillary stdout/stderr descriptors, sends a NUL-delimited
// length-prefixed payload, and returns whatever the server wrote to the
// stdout pipe before the connection closed.
func sendRequest(t *testing.T, sockPath string, args ...string) string {
	t.Helper()

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	payload := strings.Join(args, "\x00") + "\x00"
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(payload)))
	copy(buf[8:], payload)

	rights := unix.UnixRights(int(outW.Fd()), int(errW.Fd()))

	result := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(outR)
		result <- string(data)
	}()

	if _, _, err := conn.WriteMsgUnix(buf, rights, nil); err != nil {
		t.Fatalf("sendmsg: %v", err)
	}

	outW.Close()
	errW.Close()

	select {
	case out := <-result:
		errR.Close()
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server response")
		return ""
	}
}

func TestDescOverSocket(t *testing.T) {
	sockPath, stop := startTestServer(t)
	defer stop()

	out := sendRequest(t, sockPath, "desc", "//app:lib")
	if !strings.Contains(out, "//app:lib") {
		t.Fatalf("expected output to describe //app:lib, got %q", out)
	}
	if !strings.Contains(out, "static_library") {
		t.Fatalf("expected output to name the output type, got %q", out)
	}
}

func TestUnsupportedCommandOverSocket(t *testing.T) {
	sockPath, stop := startTestServer(t)
	defer stop()

	// The server writes the UnsupportedCommand line to its own redirected
	// stderr, not stdout, so the stdout pipe observed by sendRequest is
	// empty; the meaningful assertion is that the server survives the
	// request and keeps serving (checked by the next request below).
	_ = sendRequest(t, sockPath, "bogus")

	out := sendRequest(t, sockPath, "desc", "//app:lib")
	if !strings.Contains(out, "//app:lib") {
		t.Fatalf("expected server to still be listening after an unsupported command, got %q", out)
	}
}

// TestMalformedAncillaryOverSocket checks that a connection with zero
// attached descriptors is rejected and closed without taking down the
// server.
func TestMalformedAncillaryOverSocket(t *testing.T) {
	sockPath, stop := startTestServer(t)
	defer stop()

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	payload := "desc\x00//app:lib\x00"
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(payload)))
	copy(buf[8:], payload)

	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.Close()

	out := sendRequest(t, sockPath, "desc", "//app:lib")
	if !strings.Contains(out, "//app:lib") {
		t.Fatalf("expected server to still be listening after a malformed ancillary record, got %q", out)
	}
}
