package command

import (
	"bufio"
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, v RespValue) RespValue {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestRespRoundTrip(t *testing.T) {
	cases := map[string]RespValue{
		"simple string": SimpleString("OK"),
		"error":          Error("ERR boom"),
		"integer":        Integer(42),
		"negative int":   Integer(-7),
		"bulk string":    BulkString([]byte("hello world")),
		"empty bulk":     BulkString([]byte("")),
		"nil bulk":       NilBulk(),
		"nil array":      NilArray(),
		"array": Array([]RespValue{
			Integer(1), BulkString([]byte("two")), NilBulk(),
		}),
		"nested array": Array([]RespValue{
			Array([]RespValue{Integer(1), Integer(2)}),
			SimpleString("ok"),
		}),
	}

	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			got := roundTrip(t, v)
			if !got.Equal(v) {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, v)
			}
		})
	}
}

func TestRespValueEqual(t *testing.T) {
	t.Run("nil bulk differs from empty bulk", func(t *testing.T) {
		if NilBulk().Equal(BulkString([]byte(""))) {
			t.Fatalf("nil bulk must not equal empty bulk")
		}
	})

	t.Run("nil array differs from empty array", func(t *testing.T) {
		if NilArray().Equal(Array([]RespValue{})) {
			t.Fatalf("nil array must not equal empty array")
		}
	})

	t.Run("identical bulk strings are equal", func(t *testing.T) {
		if !BulkString([]byte("abc")).Equal(BulkString([]byte("abc"))) {
			t.Fatalf("expected equal bulk strings to compare equal")
		}
	})
}

func TestParseUnknownCommand(t *testing.T) {
	cmd := Parse("NOTACOMMAND", nil)
	if cmd.Kind != KindUnknown {
		t.Fatalf("expected KindUnknown for unrecognized command")
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	cmd := Parse("get", [][]byte{[]byte("k")})
	if cmd.Kind != KindGet {
		t.Fatalf("expected lowercase command name to resolve to KindGet")
	}
	if cmd.Name != "GET" {
		t.Fatalf("expected normalized uppercase name, got %q", cmd.Name)
	}
}

func TestMutatesData(t *testing.T) {
	if !KindSet.MutatesData() {
		t.Fatalf("SET must be a mutating command")
	}
	if KindGet.MutatesData() {
		t.Fatalf("GET must not be a mutating command")
	}
	if KindExec.MutatesData() {
		t.Fatalf("EXEC itself does not directly mutate; its queued commands do")
	}
}
