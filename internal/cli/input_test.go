package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := getSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if !strings.Contains(out.String(), "Name?") {
		t.Fatalf("prompt not written: %q", out.String())
	}
}

func TestGetSimpleText_TrimsWhitespace(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("  padded  \n"))
	var out bytes.Buffer
	got, err := getSimpleText(in, "", &out)
	if err != nil || got != "padded" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleText_PartialLineOnEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := getSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleText_EOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer
	_, err := getSimpleText(in, "", &out)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestGetSecretText_NonTerminalFallback(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		t.Fatal("readPassword must not be called without a terminal")
		return nil, nil
	}

	in := bufio.NewReader(strings.NewReader("s3cret\n"))
	var out bytes.Buffer
	got, err := getSecretText(in, "Password:", &out)
	if err != nil || got != "s3cret" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}
