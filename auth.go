package labdb

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Auth service names stored on users, and the PAM profiles they select.
const (
	AuthServiceLocal  = "local"
	AuthServiceSystem = "system"
	AuthServiceLDAP   = "ldap"
)

var authServiceProfiles = map[string]string{
	"":                "",
	AuthServiceLocal:  "",
	AuthServiceSystem: "pycopia",
	AuthServiceLDAP:   "pycopia_ldap",
}

// AuthServiceProfile returns the PAM service profile for an auth service
// name. An empty profile means local-only authentication.
func AuthServiceProfile(service string) (string, bool) {
	profile, ok := authServiceProfiles[service]
	return profile, ok
}

// SessionKey is a stable digest of the user's identity and last login. It
// changes every time the user logs in.
func (u *User) SessionKey() string {
	h := sha1.New()
	h.Write([]byte(strconv.FormatInt(u.ID, 10)))
	h.Write([]byte(u.Username))
	h.Write([]byte(formatLastLogin(u.LastLogin)))
	return hex.EncodeToString(h.Sum(nil))
}

func formatLastLogin(t *time.Time) string {
	if t == nil {
		return "None"
	}
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04:05.000000")
}

const keySalt = "ifucnrdthsurtoocls"

// DeriveKey turns the configured secret into a 16 byte signing key.
func DeriveKey(secret string) []byte {
	h := sha1.New()
	h.Write([]byte(secret))
	h.Write([]byte(keySalt))
	return h.Sum(nil)[:16]
}

// SignValue returns value with an HMAC suffix: "<value>.<hex mac>".
func SignValue(key []byte, value string) string {
	return value + "." + macHex(key, value)
}

// VerifySignedValue checks a value produced by SignValue and returns the
// original value.
func VerifySignedValue(key []byte, signed string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 {
		return "", false
	}
	value, mac := signed[:idx], signed[idx+1:]
	if !hmac.Equal([]byte(mac), []byte(macHex(key, value))) {
		return "", false
	}
	return value, true
}

func macHex(key []byte, value string) string {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(value))
	return hex.EncodeToString(m.Sum(nil))
}
