package provider

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// HMACSHA256Base64 signs payload with secret and returns standard base64
func HMACSHA256Base64(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// HMACSHA256Hex signs payload with secret and returns lowercase hex
func HMACSHA256Hex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// MD5Hex returns the lowercase hex md5 of s
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MD5UpperHex returns the uppercase hex md5 of s
func MD5UpperHex(s string) string {
	return strings.ToUpper(MD5Hex(s))
}

// SecureCompare compares two signatures in constant time. Empty values never match.
func SecureCompare(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
