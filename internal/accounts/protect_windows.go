//go:build windows

package accounts

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// protectSecret encrypts secret with DPAPI for the current user, producing
// the same hex form as PowerShell's ConvertFrom-SecureString.
func protectSecret(secret string) (string, error) {
	units := utf16.Encode([]rune(secret))
	plain := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(plain[i*2:], u)
	}

	var in windows.DataBlob
	in.Size = uint32(len(plain))
	if len(plain) > 0 {
		in.Data = &plain[0]
	}

	var out windows.DataBlob
	if err := windows.CryptProtectData(&in, nil, nil, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out); err != nil {
		return "", fmt.Errorf("CryptProtectData: %w", err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	protected := unsafe.Slice(out.Data, out.Size)
	encoded := hex.EncodeToString(protected)

	for i := range plain {
		plain[i] = 0
	}
	return encoded, nil
}
