// Package fnerrors provides the typed error vocabulary used across the
// label, graph, and query-server packages. Every constructor captures a
// stack trace at the point of invocation so that an internal error can be
// traced back to its origin without needing to wrap every call site.
package fnerrors

import (
	"errors"
	"fmt"
	"io"

	cueerrors "cuelang.org/go/cue/errors"
	"github.com/kr/text"
	"github.com/morikuni/aec"

	"github.com/Redish101/gn/internal/fnerrors/stacktrace"
)

// Location is implemented by anything that can identify where an error
// occurred in user-authored input (a label, a package name, a file path).
type Location interface {
	ErrorLocation() string
}

// New returns a new error for a format specifier and optional args with the
// stack trace at the point of invocation.
func New(format string, args ...interface{}) error {
	return &fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()}
}

func Wrap(loc Location, err error) error {
	if userErr, ok := err.(*userError); ok {
		if userErr.Location == nil {
			return &userError{fnError: fnError{Err: userErr.Err, stack: userErr.stack}, Location: loc}
		} else if userErr.Location == loc {
			return userErr
		}
	}
	return &userError{fnError: fnError{Err: err, stack: stacktrace.New()}, Location: loc}
}

func Wrapf(loc Location, err error, whatFmt string, args ...interface{}) error {
	return &userError{
		fnError:  fnError{Err: err, stack: stacktrace.New()},
		Location: loc,
		What:     fmt.Sprintf(whatFmt, args...),
	}
}

// UserError wraps an error whose cause is user-authored input (a malformed
// label, an unresolved dependency) at a given Location.
func UserError(loc Location, format string, args ...interface{}) error {
	return &userError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		Location: loc,
	}
}

// BadLabel reports that a label string could not be resolved. Raised by
// label.Resolve.
func BadLabel(format string, args ...interface{}) error {
	return &internalError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		kind:     "bad label",
		expected: true,
	}
}

// CycleDetected reports that the aggregator re-entered a target that is
// still being resolved; this indicates a loader bug (the loader is
// responsible for guaranteeing an acyclic graph), not bad user input.
func CycleDetected(format string, args ...interface{}) error {
	return &internalError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		kind:     "cycle detected",
		expected: false,
	}
}

// Unexpected situation internal to the tool.
func InternalError(format string, args ...interface{}) error {
	return &internalError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		expected: false,
	}
}

// An OS-level call (socket/bind/listen/accept/recvmsg/close) failed.
func InvocationError(format string, args ...interface{}) error {
	return &invocationError{
		fnError: fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
	}
}

// BadCmsg reports a malformed or unexpected ancillary-data record on a
// query-server connection.
func BadCmsg(format string, args ...interface{}) error {
	return kindError("bad cmsg", false, format, args...)
}

// RecvFailed reports that a recvmsg-equivalent call on a query-server
// connection failed or returned fewer bytes than the declared length.
func RecvFailed(format string, args ...interface{}) error {
	return kindError("recv failed", false, format, args...)
}

// BadRequest reports that a client's argument payload split into an empty
// list.
func BadRequest(format string, args ...interface{}) error {
	return kindError("bad request", true, format, args...)
}

// UnsupportedCommand reports that a client named a subcommand the query
// server doesn't implement.
func UnsupportedCommand(format string, args ...interface{}) error {
	return kindError("unsupported command", true, format, args...)
}

// SubcommandFailed reports that a dispatched subcommand (desc, gen)
// returned a non-zero result.
func SubcommandFailed(format string, args ...interface{}) error {
	return kindError("subcommand failed", true, format, args...)
}

// CloseFailed reports that closing a client connection's descriptor
// failed; the server logs this and keeps serving.
func CloseFailed(format string, args ...interface{}) error {
	return kindError("close failed", false, format, args...)
}

func kindError(kind string, expected bool, format string, args ...interface{}) error {
	return &internalError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		kind:     kind,
		expected: expected,
	}
}

// This error is expected, e.g. an unsupported query command was requested.
func ExpectedError(format string, args ...interface{}) error {
	return &internalError{
		fnError:  fnError{Err: fmt.Errorf(format, args...), stack: stacktrace.New()},
		expected: true,
	}
}

// This error is purely for wiring and ensures that the CLI exits with an
// appropriate exit code.
func ExitWithCode(err error, code int) error {
	return &exitError{fnError: fnError{Err: err, stack: stacktrace.New()}, code: code}
}

// Wraps an error with a stack trace at the point of invocation.
type fnError struct {
	Err   error
	stack stacktrace.StackTrace
}

func (f *fnError) Error() string { return f.Err.Error() }

// StackTrace has a signature compatible with pkg/errors so that frameworks
// expecting that convention can extract the frame.
func (f *fnError) StackTrace() stacktrace.StackTrace { return f.stack }

type userError struct {
	fnError
	What     string
	Location Location
}

type internalError struct {
	fnError
	kind     string
	expected bool
}

type invocationError struct {
	fnError
}

func IsExpected(err error) (string, bool) {
	if x, ok := unwrap(err).(*internalError); ok && x.expected {
		return x.Err.Error(), true
	}
	if x, ok := unwrap(err).(*userError); ok {
		return x.Err.Error(), true
	}
	return "", false
}

func (e *userError) Error() string {
	var locStr string
	if e.Location != nil {
		locStr = e.Location.ErrorLocation() + ": "
	}
	return fmt.Sprintf("%s%v", locStr, e.Err)
}

func (e *userError) Unwrap() error { return e.Err }

func (e *internalError) Error() string {
	if e.kind != "" {
		return fmt.Sprintf("%s: %s", e.kind, e.Err.Error())
	}
	return e.Err.Error()
}

func (e *invocationError) Error() string {
	return fmt.Sprintf("system call failed: %s", e.Err.Error())
}

type ExitError interface {
	ExitCode() int
}

type exitError struct {
	fnError
	code int
}

func (e *exitError) Error() string { return e.Err.Error() }
func (e *exitError) ExitCode() int { return e.code }

type FormatOptions struct {
	colors  bool
	tracing bool
}

type FormatOption func(*FormatOptions)

func WithColors(colors bool) FormatOption {
	return func(opts *FormatOptions) { opts.colors = colors }
}

func WithTracing(tracing bool) FormatOption {
	return func(opts *FormatOptions) { opts.tracing = tracing }
}

func isFnError(err error) bool {
	switch err.(type) {
	case *fnError, *userError, *internalError, *invocationError:
		return true
	}
	return false
}

// Format writes a single human-readable line (or, with tracing, a chain of
// frames) describing err to w.
func Format(w io.Writer, err error, args ...FormatOption) {
	opts := &FormatOptions{colors: false, tracing: false}
	for _, opt := range args {
		opt(opts)
	}
	if opts.colors {
		fmt.Fprint(w, aec.RedF.With(aec.Bold).Apply("Failed: "))
	} else {
		fmt.Fprint(w, "Failed: ")
	}
	if opts.tracing {
		fmt.Fprintln(w)
	}
	cause := err
	for isFnError(cause) {
		if opts.tracing {
			w = indent(w)
			format(w, cause, opts)
			writeSourceFileAndLine(w, cause, opts.colors)
		}
		if _, ok := cause.(*userError); ok {
			// Unwrapping past a userError would drop its Location.
			break
		}
		if x := errors.Unwrap(cause); x != nil {
			cause = x
		} else {
			break
		}
	}
	format(w, cause, opts)
}

func writeSourceFileAndLine(w io.Writer, err error, colors bool) {
	type stackTracer interface {
		StackTrace() stacktrace.StackTrace
	}
	if st, ok := err.(stackTracer); ok {
		stack := st.StackTrace()
		if len(stack) == 0 {
			return
		}
		frame := stack[0]
		sourceInfo := fmt.Sprintf("%s:%d", frame.File(), frame.Line())
		if colors {
			fmt.Fprintf(w, "%s\n", aec.LightBlackF.Apply(sourceInfo))
		} else {
			fmt.Fprintf(w, "%s\n", sourceInfo)
		}
	}
}

func format(w io.Writer, err error, opts *FormatOptions) {
	if err == nil {
		return
	}

	switch x := err.(type) {
	case *userError:
		formatUserError(w, x, opts)

	case *internalError:
		formatInternalError(w, x, opts)

	case *invocationError:
		formatInvocationError(w, x, opts)

	case cueerrors.Error:
		formatCueError(w, x, opts)

	default:
		fmt.Fprintf(w, "%s\n", x.Error())
	}
}

func formatInternalError(w io.Writer, err *internalError, opts *FormatOptions) {
	label := "internal error"
	if err.kind != "" {
		label = err.kind
	}
	fmt.Fprintf(w, "%s: %s\n", formatLabel(label, opts.colors), err.Err.Error())
	if !err.expected {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "This was unexpected; it likely indicates a bug in the loader or aggregator.\n")
	}
}

func formatInvocationError(w io.Writer, err *invocationError, opts *FormatOptions) {
	fmt.Fprintf(w, "%s: %s\n", formatLabel("invocation error", opts.colors), err.Err.Error())
}

func formatCueError(w io.Writer, err cueerrors.Error, opts *FormatOptions) {
	errclean := cueerrors.Sanitize(err)
	for _, e := range cueerrors.Errors(errclean) {
		positions := cueerrors.Positions(e)
		if len(positions) == 0 {
			fmt.Fprintln(w, e.Error())
		} else {
			for _, p := range positions {
				pos := p.Position()
				fmt.Fprintln(w, e.Error(), formatPos(pos.String(), opts.colors))
			}
		}
	}
}

func formatUserError(w io.Writer, err *userError, opts *FormatOptions) {
	what := err.What
	if len(what) > 0 {
		what = ": " + what
	}
	if err.Location != nil {
		loc := formatLabel(err.Location.ErrorLocation(), opts.colors)
		fmt.Fprintf(w, "%s%s: %s\n", loc, what, err.Err.Error())
	} else {
		fmt.Fprintf(w, "%s%s\n", what, err.Err.Error())
	}
}

func formatLabel(str string, colors bool) string {
	if colors {
		return aec.CyanF.Apply(str)
	}
	return str
}

func formatPos(pos string, colors bool) string {
	if colors {
		return aec.LightBlackF.Apply(pos)
	}
	return pos
}

func indent(w io.Writer) io.Writer { return text.NewIndentWriter(w, []byte("  ")) }

func unwrap(err error) error {
	if x := errors.Unwrap(err); x != nil {
		return x
	}
	return err
}
