package natsliveliness

import (
	"encoding/base64"
	"fmt"
)

// KV key names admit only [A-Za-z0-9_=./-], and '.' is the subject
// separator. Liveliness keyexpressions use '@', '%', and '/', so the
// whole keyexpr is carried base64url-encoded as a single KV token.

func encodeKVKey(keyexpr string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(keyexpr))
}

func decodeKVKey(kvKey string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(kvKey)
	if err != nil {
		return "", fmt.Errorf("decode kv key %q: %w", kvKey, err)
	}
	return string(raw), nil
}
