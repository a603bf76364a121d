// Package catalog implements the signed client for the affiliate catalog
// gateway: product queries and short-link generation over a single GET
// endpoint, authenticated with an HMAC request signature.
package catalog

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// signParam is the query parameter carrying the signature. It is appended
// after signing and never part of the signed set.
const signParam = "sign"

// Sign computes the gateway request signature: parameter keys sorted in byte
// order, concatenated as key+value with no separators, HMAC-SHA256 under
// secret, hex-encoded upper-case. Sorting makes the result independent of
// map iteration order.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == signParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	for _, k := range keys {
		payload.WriteString(k)
		payload.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
