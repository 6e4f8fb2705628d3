package utils

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// Identity is the host and user identity of the running process.
type Identity struct {
	Host string
	User string
}

// CurrentIdentity returns the host and user identity, falling back to the
// COMPUTERNAME/HOSTNAME and USERNAME/USER environment variables when the
// system calls fail.
func CurrentIdentity() (Identity, error) {
	host, err := GetHostname()
	if err != nil || host == "" {
		host = firstEnv("COMPUTERNAME", "HOSTNAME")
	}

	name, err := GetUsername()
	if err != nil || name == "" {
		name = firstEnv("USERNAME", "USER")
	}
	// Windows reports DOMAIN\user; the domain is already part of the host.
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	if host == "" || name == "" {
		return Identity{}, fmt.Errorf("could not determine host and user identity")
	}
	return Identity{Host: host, User: name}, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
