//go:build !unix && !windows

package accounts

import (
	"fmt"
	"runtime"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

func IsElevated() bool {
	return false
}

func DefaultElevator(string) (Elevator, error) {
	return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedPlatform, runtime.GOOS)
}
