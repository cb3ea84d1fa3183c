package operon

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// CookieCodec decrypts or verifies cookie parameter values before coercion.
// Cryptography is an external capability: the binder only calls Decode and
// treats a failure as a parse error on the parameter.
type CookieCodec interface {
	// Encode transforms a plaintext value into its on-wire form.
	Encode(name, value string) (string, error)
	// Decode transforms an on-wire value back into plaintext.
	Decode(name, value string) (string, error)
}

// PlainCookies is a passthrough codec.
func PlainCookies() CookieCodec { return plainCookies{} }

type plainCookies struct{}

func (plainCookies) Encode(_, value string) (string, error) { return value, nil }
func (plainCookies) Decode(_, value string) (string, error) { return value, nil }

// SignedCookies authenticates cookie values with HMAC-SHA256. The on-wire
// form is `value.base64(mac)`, with the mac computed over name and value so
// a signature cannot be replayed under another cookie name.
func SignedCookies(key []byte) CookieCodec {
	return signedCookies{key: key}
}

type signedCookies struct {
	key []byte
}

var errBadSignature = errors.New("invalid cookie signature")

func (c signedCookies) Encode(name, value string) (string, error) {
	return value + "." + c.sign(name, value), nil
}

func (c signedCookies) Decode(name, value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i < 0 {
		return "", errBadSignature
	}
	plain, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(c.sign(name, plain))) {
		return "", errBadSignature
	}
	return plain, nil
}

func (c signedCookies) sign(name, value string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
