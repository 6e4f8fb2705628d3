//go:build !windows

package accounts

import (
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

func protectSecret(string) (string, error) {
	return "", kerrors.ErrUnsupportedPlatform
}
