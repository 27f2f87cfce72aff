package base64

import (
	"encoding/base64"
	"strings"
)

// EncodeToBase64 encodes the input string to a base64 string
func EncodeToBase64(input string) string {
	return base64.StdEncoding.EncodeToString([]byte(input))
}

// DecodeFromBase64 decodes a base64 string, ignoring the line breaks and
// spaces that multi-line env values tend to pick up.
func DecodeFromBase64(input string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, input)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
