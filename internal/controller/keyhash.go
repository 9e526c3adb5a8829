package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// keyHash computes the stable correlation id for a proxy key: the first
// 20 hex characters of sha256 over the key's bytes, including its "sk-"
// prefix. Keys must carry that prefix, matching the upstream's own
// assumption about its generated key format.
func keyHash(key string) (string, error) {
	if !strings.HasPrefix(key, "sk-") {
		return "", fmt.Errorf("key hash: key missing sk- prefix")
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:20], nil
}
