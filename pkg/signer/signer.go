// Package signer builds the canonical query string for catalog API requests
// and signs it with HMAC-SHA256.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Control parameters are routing and auth metadata. They select the endpoint
// or key the signature and are never sent as request parameters.
const (
	CountryKey   = "Country"
	SecretKeyKey = "AWSSecretKey"

	SignatureKey = "Signature"
	TimestampKey = "Timestamp"

	// TimestampLayout is the UTC form expected by the service.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// Pair is one rendered query parameter.
type Pair struct {
	Key   string
	Value string
}

// Timestamp renders t in the service's UTC timestamp form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// WireKey renders a parameter name the way the service spells it: each
// "/x" becomes "::X", then the first character and every character after an
// underscore are uppercased and the underscores dropped.
//
//	item_id            -> ItemId
//	aWS_access_key_id  -> AWSAccessKeyId
//	admin/user_name    -> Admin::UserName
func WireKey(key string) string {
	src := []rune(key)
	ns := make([]rune, 0, len(src)+4)
	for i := 0; i < len(src); i++ {
		if src[i] != '/' {
			ns = append(ns, src[i])
			continue
		}
		ns = append(ns, ':', ':')
		if i+1 < len(src) {
			ns = append(ns, unicode.ToUpper(src[i+1]))
			i++
		}
	}

	out := make([]rune, 0, len(ns))
	for i := 0; i < len(ns); i++ {
		switch {
		case i == 0:
			out = append(out, unicode.ToUpper(ns[i]))
		case ns[i] == '_' && i+1 < len(ns):
			out = append(out, unicode.ToUpper(ns[i+1]))
			i++
		default:
			out = append(out, ns[i])
		}
	}
	return string(out)
}

// PercentEncode escapes every byte outside [A-Za-z0-9_.~-] as %XX with
// uppercase hex. Space becomes %20, never '+'.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '~', c == '-':
		return true
	}
	return false
}

// Canonicalize renders params into wire pairs sorted by key. Control
// parameters and empty values are dropped. When several input keys render
// to the same wire key, the input key sorting last wins.
func Canonicalize(params Params) []Pair {
	byWire := make(map[string]string, len(params))
	for _, k := range params.sortedKeys() {
		wire := WireKey(k)
		if isControlKey(wire) {
			continue
		}
		value := strings.Join(params[k], ",")
		if value == "" {
			delete(byWire, wire)
			continue
		}
		byWire[wire] = PercentEncode(value)
	}

	pairs := make([]Pair, 0, len(byWire))
	for k, v := range byWire {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

func isControlKey(wire string) bool {
	return strings.EqualFold(wire, CountryKey) || strings.EqualFold(wire, SecretKeyKey)
}

// Encode joins pairs as key=value separated by '&'.
func Encode(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

// Sign returns the canonical query string for params and, when secretKey is
// non-empty, the URL-ready signature over it. Without a key the signature is
// empty and the request is sent unauthenticated.
func Sign(params Params, secretKey, host, path string) (query, signature string) {
	query = Encode(Canonicalize(params))
	if secretKey == "" {
		return query, ""
	}
	return query, SignString(StringToSign(host, path, query), secretKey)
}

// StringToSign assembles the signing input for a GET request.
func StringToSign(host, path, query string) string {
	return "GET\n" + host + "\n" + path + "\n" + query
}

// SignString computes base64(HMAC-SHA256(secretKey, s)) with '+' and '='
// percent-encoded. Other base64 characters, including '/', are left as is.
func SignString(s, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(s))
	sig := strings.TrimRight(base64.StdEncoding.EncodeToString(mac.Sum(nil)), " \t\r\n")

	r := strings.NewReplacer("+", "%2B", "=", "%3D")
	return r.Replace(sig)
}

// AppendSignature adds the Signature parameter after the sorted query.
func AppendSignature(query, signature string) string {
	if signature == "" {
		return query
	}
	if query == "" {
		return SignatureKey + "=" + signature
	}
	return query + "&" + SignatureKey + "=" + signature
}
