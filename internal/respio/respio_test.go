package respio

import (
	"bufio"
	"bytes"
	"strconv"
	"testing"

	"github.com/dreamware/ridgekv/internal/command"
)

func encodeRequest(args ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("*")
	buf.WriteString(strconv.Itoa(len(args)))
	buf.WriteString("\r\n")
	for _, a := range args {
		buf.WriteString("$")
		buf.WriteString(strconv.Itoa(len(a)))
		buf.WriteString("\r\n")
		buf.WriteString(a)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func TestReadCommandParsesNameAndArgs(t *testing.T) {
	raw := encodeRequest("SET", "k1", "v1")
	cmd, err := ReadCommand(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != command.KindSet {
		t.Fatalf("kind = %v, want KindSet", cmd.Kind)
	}
	if len(cmd.Args) != 2 || string(cmd.Args[0]) != "k1" || string(cmd.Args[1]) != "v1" {
		t.Fatalf("args = %+v", cmd.Args)
	}
}

func TestReadCommandUnknownNameYieldsKindUnknown(t *testing.T) {
	raw := encodeRequest("BOGUSCMD", "x")
	cmd, err := ReadCommand(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Kind != command.KindUnknown {
		t.Fatalf("kind = %v, want KindUnknown", cmd.Kind)
	}
	if cmd.Name != "BOGUSCMD" {
		t.Fatalf("name = %q, want BOGUSCMD", cmd.Name)
	}
}

func TestReadCommandRejectsNonArrayFraming(t *testing.T) {
	raw := []byte("+PING\r\n")
	if _, err := ReadCommand(bufio.NewReader(bytes.NewReader(raw))); err == nil {
		t.Fatal("expected error for non-array request framing")
	}
}

func TestWriteReplyEncodesRespValue(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, command.SimpleString("OK")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "+OK\r\n" {
		t.Fatalf("got %q", buf.String())
	}
}
