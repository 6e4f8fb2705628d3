package utils

import (
	"strings"
	"testing"
)

func TestReadSecretLine(t *testing.T) {
	got, err := ReadSecretLine(strings.NewReader("hunter2\r\nignored\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("ReadSecretLine = %q, want %q", got, "hunter2")
	}
}

func TestReadSecretLineWithoutNewline(t *testing.T) {
	got, err := ReadSecretLine(strings.NewReader("p@ss word"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "p@ss word" {
		t.Errorf("ReadSecretLine = %q, want %q", got, "p@ss word")
	}
}

func TestReadSecretLineEmpty(t *testing.T) {
	if _, err := ReadSecretLine(strings.NewReader("\n")); err == nil {
		t.Error("Expected error for empty input")
	}
}
