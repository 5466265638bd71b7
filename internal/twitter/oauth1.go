package twitter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// authorizationHeader builds an OAuth 1.0a HMAC-SHA1 Authorization header
// for a form-encoded request, per RFC 5849.
func authorizationHeader(cred Credential, method, endpoint string, form url.Values) string {
	oauth := map[string]string{
		"oauth_consumer_key":     cred.AppKey,
		"oauth_nonce":            nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_token":            cred.AccessToken,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = signature(cred, method, endpoint, form, oauth)

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(percentEncode(k))
		b.WriteString(`="`)
		b.WriteString(percentEncode(oauth[k]))
		b.WriteString(`"`)
	}
	return b.String()
}

func signature(cred Credential, method, endpoint string, form url.Values, oauth map[string]string) string {
	// Collect all parameters: form body + oauth params (no query string
	// on the update endpoint).
	params := make(map[string][]string, len(form)+len(oauth))
	for k, vs := range form {
		params[k] = append(params[k], vs...)
	}
	for k, v := range oauth {
		params[k] = append(params[k], v)
	}

	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, vs := range params {
		ek := percentEncode(k)
		for _, v := range vs {
			pairs = append(pairs, pair{ek, percentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var ps strings.Builder
	for i, p := range pairs {
		if i > 0 {
			ps.WriteByte('&')
		}
		ps.WriteString(p.k)
		ps.WriteByte('=')
		ps.WriteString(p.v)
	}

	base := strings.ToUpper(method) + "&" + percentEncode(endpoint) + "&" + percentEncode(ps.String())
	key := percentEncode(cred.AppSecret) + "&" + percentEncode(cred.AccessSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func nonce() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a timestamp-derived nonce; uniqueness is what matters.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}

// percentEncode implements RFC 3986 encoding as required by OAuth 1.0a
// (url.QueryEscape encodes spaces as '+', which breaks signatures).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return b.String()
}
