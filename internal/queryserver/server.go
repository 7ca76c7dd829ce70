// Package queryserver implements the local query server: a process that
// loads a project once and then answers repeated "desc"/"gen" requests
// over a Unix domain socket without re-running CUE evaluation on every
// call. Each request arrives with the client's stdout and stderr file
// descriptors attached as ancillary data; the server retargets its own
// standard streams at them for the duration of one request so that
// existing fmt.Println-style subcommand code "just works" against a
// socket instead of a terminal.
package queryserver

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
)

// SockPath is the default, compile-time socket path. ResolveSockPath lets
// $GNQ_SOCK_PATH override it; the constant itself is final, for parity with
// the original's hardcoded path.
const SockPath = "/tmp/gnq.sock"

// maxPayload bounds the NUL-delimited argument payload accepted per
// request.
const maxPayload = 4096

// ResolveSockPath returns $GNQ_SOCK_PATH when set, else SockPath.
func ResolveSockPath() string {
	if p := os.Getenv("GNQ_SOCK_PATH"); p != "" {
		return p
	}
	return SockPath
}

// Server owns one loaded graph, one aggregator over it, and the listening
// socket. It does not unlink a stale socket file before binding: a
// pre-existing path at SockPath surfaces as a bind error to the operator.
type Server struct {
	SockPath string
	Graph    *graph.Graph
	Agg      *graph.Aggregator

	listener *net.UnixListener
}

// ListenAndServe binds the socket and serves connections one at a time
// until ctx is canceled or a fatal setup error occurs. Per-connection
// errors are logged and never terminate the loop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := zerolog.Ctx(ctx)

	addr, err := net.ResolveUnixAddr("unix", s.SockPath)
	if err != nil {
		return fnerrors.InternalError("failed to resolve socket address %q: %v", s.SockPath, err)
	}

	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fnerrors.InternalError("failed to bind socket %q: %v", s.SockPath, err)
	}
	// The socket file is left in place when the listener closes.
	l.SetUnlinkOnClose(false)
	s.listener = l
	defer l.Close()

	log.Info().Str("path", s.SockPath).Msg("query server ready")

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("accept failed")
			continue
		}

		if err := s.handleConn(ctx, conn); err != nil {
			log.Error().Err(err).Msg("connection handling failed")
		}
		if err := conn.Close(); err != nil {
			log.Error().Err(fnerrors.CloseFailed("%v", err)).Msg("close failed")
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn *net.UnixConn) (err error) {
	log := zerolog.Ctx(ctx)

	// A panic while serving this connection becomes its error; this runs
	// after the stdio restore and descriptor close deferred below.
	defer func() {
		if r := recover(); r != nil {
			err = fnerrors.InternalError("panic while handling request: %v", r)
		}
	}()

	buf := make([]byte, 8+maxPayload)
	oob := make([]byte, unix.CmsgSpace(2*4))

	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		log.Error().Err(err).Msg("recv failed")
		return fnerrors.RecvFailed("recv failed: %v", err)
	}

	fds, cmsgErr := parseRightsFDs(oob[:oobn])
	if cmsgErr != nil {
		log.Error().Err(cmsgErr).Msg("bad ancillary data")
		return cmsgErr
	}
	defer func() {
		for _, fd := range fds {
			_ = unix.Close(fd)
		}
	}()

	args, reqErr := parsePayload(buf[:n])
	if reqErr != nil {
		log.Error().Err(reqErr).Msg("bad request")
		return reqErr
	}

	restore, err := redirectStdio(fds[0], fds[1])
	if err != nil {
		log.Error().Err(err).Msg("failed to install stdio redirection")
		return err
	}
	defer func() {
		if err := restore(); err != nil {
			log.Error().Err(err).Msg("failed to restore stdio")
		}
	}()

	return s.dispatch(args)
}

// parseRightsFDs validates that oob carries exactly one SCM_RIGHTS record
// naming exactly two descriptors (client stdout, then stderr).
func parseRightsFDs(oob []byte) ([]int, error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fnerrors.BadCmsg("bad ancillary record: %v", err)
	}
	if len(scms) != 1 {
		return nil, fnerrors.BadCmsg("expected exactly one ancillary record, got %d", len(scms))
	}
	if scms[0].Header.Level != unix.SOL_SOCKET || scms[0].Header.Type != unix.SCM_RIGHTS {
		return nil, fnerrors.BadCmsg("ancillary record is not SCM_RIGHTS")
	}

	fds, err := unix.ParseUnixRights(&scms[0])
	if err != nil {
		return nil, fnerrors.BadCmsg("failed to parse unix rights: %v", err)
	}
	if len(fds) != 2 {
		return nil, fnerrors.BadCmsg("expected exactly 2 descriptors (stdout, stderr), got %d", len(fds))
	}
	return fds, nil
}

// parsePayload reads the length-prefixed, NUL-delimited argument buffer.
// The length field is validated against the number of bytes actually
// received before slicing, and an empty argument list is rejected
// explicitly rather than indexing arg[0] unconditionally.
func parsePayload(raw []byte) ([]string, error) {
	if len(raw) < 8 {
		return nil, fnerrors.RecvFailed("payload too short for a length prefix: %d bytes", len(raw))
	}

	declared := binary.BigEndian.Uint64(raw[:8])
	actual := uint64(len(raw) - 8)
	if declared > actual {
		return nil, fnerrors.RecvFailed("declared payload length %d exceeds %d bytes received", declared, actual)
	}

	body := raw[8 : 8+declared]
	trimmed := strings.TrimRight(string(body), "\x00")
	if trimmed == "" {
		return nil, fnerrors.BadRequest("empty argument list")
	}

	return strings.Split(trimmed, "\x00"), nil
}

func (s *Server) dispatch(args []string) error {
	switch args[0] {
	case "desc":
		return runDesc(s.Graph, s.Agg, args[1:])
	case "gen":
		return runGen(s.Graph, s.Agg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "UnsupportedCommand: %s\n", args[0])
		return fnerrors.UnsupportedCommand("unsupported command: %s", args[0])
	}
}
