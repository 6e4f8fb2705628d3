package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadSecretLine reads the first line from r, without its line ending.
// Used for --password-stdin so secrets never appear in argv.
func ReadSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("stdin is empty")
	}
	return line, nil
}
