package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stdout)

	SetLevel(Warning)
	defer SetLevel(Notice)

	logger := New("test")
	logger.Info("hidden message")
	logger.Warningf("visible %s", "message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Fatalf("expected info message to be filtered; got %q", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "[test]") {
		t.Fatalf("expected warning message tagged with module name; got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	type spec struct {
		in  string
		exp Level
		err bool
	}
	specs := []spec{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"", Notice, false},
		{"warn", Warning, false},
		{"error", Error, false},
		{"chatty", Notice, true},
	}

	for index, s := range specs {
		got, err := ParseLevel(s.in)
		if s.err != (err != nil) {
			t.Fatalf("[spec %d] expected error %t; got %v", index, s.err, err)
		}
		if got != s.exp {
			t.Fatalf("[spec %d] expected level %d; got %d", index, s.exp, got)
		}
	}
}
