// Package encoding converts the EUC-KR names stored in Ragnarok Online files.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Plain ASCII passes through unchanged; undecodable input is returned as-is.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR encoded bytes.
// Returns the original bytes if the string has no EUC-KR representation.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedStringToUTF8 decodes a NUL-terminated fixed-size EUC-KR field.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// UTF8ToFixedString encodes s as EUC-KR into a NUL-padded field of the given size.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToEUCKR(s))
	return result
}

// SlashPath converts the backslash separators used by the client to forward slashes.
func SlashPath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// NormalizeGRFPath normalizes a path for case-insensitive archive lookup.
func NormalizeGRFPath(path string) string {
	return strings.ToLower(SlashPath(path))
}
