package fnerrors

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeLoc string

func (f fakeLoc) ErrorLocation() string { return string(f) }

func TestErrorFormatting(t *testing.T) {
	cases := []struct {
		err      error
		expected string
	}{
		{
			err:      UserError(fakeLoc("//foo:bar"), "missing dependency"),
			expected: "Failed: //foo:bar: missing dependency\n",
		},
		{
			err:      BadLabel("empty name in %q", "//foo"),
			expected: "Failed: bad label: empty name in \"//foo\"\n",
		},
		{
			err:      InternalError("unexpected nil target"),
			expected: "Failed: internal error: unexpected nil target\n\nThis was unexpected; it likely indicates a bug in the loader or aggregator.\n",
		},
	}

	for _, c := range cases {
		var out bytes.Buffer
		Format(&out, c.err)

		if d := cmp.Diff(c.expected, out.String()); d != "" {
			t.Errorf("mismatch (-want +got):\n%s", d)
		}
	}
}

func TestIsExpected(t *testing.T) {
	if _, ok := IsExpected(ExpectedError("rebuild required")); !ok {
		t.Fatal("expected ExpectedError to be reported as expected")
	}
	if _, ok := IsExpected(InvocationError("accept failed")); ok {
		t.Fatal("invocation errors are not expected")
	}
}
