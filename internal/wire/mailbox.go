package wire

import (
	"strings"

	"github.com/emersion/go-imap/utf7"
)

// EncodeMailbox transforms a mailbox name into its 7-bit-safe protocol
// form and quotes it so it survives as a single command argument.
func EncodeMailbox(name string) string {
	encoded, err := utf7.Encoding.NewEncoder().String(name)
	if err != nil {
		// Non-convertible names are sent as-is; the server rejects them
		// with a tagged NO rather than the client guessing.
		encoded = name
	}
	return Quote(encoded)
}

// DecodeMailbox reverses EncodeMailbox for names extracted from protocol
// replies. Undecodable input is returned unchanged.
func DecodeMailbox(s string) string {
	decoded, err := utf7.Encoding.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// Quote wraps s in double quotes, escaping embedded quotes and
// backslashes.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
