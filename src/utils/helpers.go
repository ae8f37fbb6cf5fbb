package utils

import (
	"crypto/rand"
	"encoding/hex"
	"falcontour/src/types"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/gosimple/slug"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func IsProd() bool {
	return types.Environment(os.Getenv("API_ENV")) == types.Production
}

// WithSuffix appends the environment to a resource name outside production,
// e.g. EmailsToSend becomes EmailsToSend-local.
func WithSuffix(name string) string {
	if IsProd() {
		return name
	}
	env := os.Getenv("API_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s-%s", name, env)
}

// GenerateSlug builds a URL slug from name with a short random suffix.
func GenerateSlug(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "event"
	}
	suffix := make([]byte, 2)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%s", base, hex.EncodeToString(suffix))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails lowercases, trims and de-duplicates, dropping blanks.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RandomToken returns n URL-safe random characters.
func RandomToken(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf)
}

// RandomDigits returns n random decimal digits.
func RandomDigits(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = '0' + b%10
	}
	return string(buf)
}
