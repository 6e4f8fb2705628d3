package accounts

import (
	"context"
	"strings"
)

// ProvisionResult describes a successful Create.
type ProvisionResult int

const (
	// Created means a new account was added.
	Created ProvisionResult = iota + 1

	// AlreadyExisted means the account was there before and was not modified.
	AlreadyExisted
)

func (r ProvisionResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExisted:
		return "already existed"
	default:
		return "unknown"
	}
}

// DeleteResult describes a successful Delete.
type DeleteResult int

const (
	// Deleted means the account was removed.
	Deleted DeleteResult = iota + 1

	// DidNotExist means there was nothing to remove.
	DidNotExist
)

func (r DeleteResult) String() string {
	switch r {
	case Deleted:
		return "deleted"
	case DidNotExist:
		return "did not exist"
	default:
		return "unknown"
	}
}

// Provisioner creates, deletes and queries OS accounts. Every method
// sanitizes its name argument first.
type Provisioner interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name, secret string) (ProvisionResult, error)
	Delete(ctx context.Context, name string) (DeleteResult, error)
	Sanitize(name string) string
}

// replacement is substituted for every rune outside the safe set.
const replacement = '_'

// SanitizeAccountName maps name onto [A-Za-z0-9_-] and truncates it to max
// bytes (max <= 0 means no limit). A leading '-' is replaced so the result
// can never be parsed as a command-line option. The result is empty only
// when name is empty.
func SanitizeAccountName(name string, max int) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(replacement)
		}
		if max > 0 && b.Len() >= max {
			break
		}
	}

	account := b.String()
	if strings.HasPrefix(account, "-") {
		account = string(replacement) + account[1:]
	}
	return account
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
