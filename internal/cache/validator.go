// Package cache computes HTTP cache validators (ETag, Last-Modified) and
// evaluates conditional requests against them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/thewebbaby/site/internal/content"
	"github.com/thewebbaby/site/internal/logger"
	"github.com/thewebbaby/site/internal/utils"
)

const chunkSize = 64 * 1024

// ErrInvalidInput is returned by HashContent for values that are neither
// bytes nor a string.
var ErrInvalidInput = errors.New("cache: content must be []byte or string")

// HashContent returns the hex SHA-256 of v.
func HashContent(v any) (string, error) {
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return "", fmt.Errorf("%w: got %T", ErrInvalidInput, v)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// FormatHTTPDate renders t as an RFC 7231 IMF-fixdate in GMT.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseHTTPDate accepts the three HTTP-date forms plus RFC 2822 dates with a
// numeric or obsolete named zone.
func ParseHTTPDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	numeric, named := content.NumericZone(s)
	if !named {
		if t, err := http.ParseTime(s); err == nil {
			return t.UTC(), true
		}
	}
	if t, err := mail.ParseDate(numeric); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// WeakETag formats a digest as a weak validator: W/"digest".
func WeakETag(digest string) string {
	return `W/"` + digest + `"`
}

// IsNotModified decides whether a conditional request can be answered with
// 304. If-None-Match wins over If-Modified-Since; anything unusable means
// the client must revalidate.
func IsNotModified(ifNoneMatch, ifModifiedSince, currentETag, currentLastModified string) bool {
	if ifNoneMatch != "" {
		current := unquote(currentETag)
		for _, tok := range strings.Split(ifNoneMatch, ",") {
			tok = unquote(tok)
			if tok == "" {
				continue
			}
			if tok == "*" || (current != "" && tok == current) {
				return true
			}
		}
	}

	if ifModifiedSince == "" || currentLastModified == "" {
		return false
	}
	since, ok := ParseHTTPDate(ifModifiedSince)
	if !ok {
		return false
	}
	modified, ok := ParseHTTPDate(currentLastModified)
	if !ok {
		return false
	}
	return !modified.After(since)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	return strings.Trim(s, `"`)
}

// Validator computes file-based validators and logs why one is missing.
type Validator struct {
	log logger.Logger
}

func NewValidator(log logger.Logger) *Validator {
	return &Validator{log: log}
}

// HashFile streams path through SHA-256. A missing file is a warning, any
// other I/O failure an error; both yield false.
func (v *Validator) HashFile(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		v.logOpenErr("hash file", path, err)
		return "", false
	}
	defer utils.Close(f)

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		v.log.Error("hash file: read failed", logger.String("path", path), logger.Error(err))
		return "", false
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

// FileLastModified returns the file mtime as an HTTP-date.
func (v *Validator) FileLastModified(path string) (string, bool) {
	st, err := os.Stat(path)
	if err != nil {
		v.logOpenErr("last modified", path, err)
		return "", false
	}
	if !st.Mode().IsRegular() {
		v.log.Warn("last modified: not a regular file", logger.String("path", path))
		return "", false
	}
	return FormatHTTPDate(st.ModTime()), true
}

func (v *Validator) logOpenErr(op, path string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		v.log.Warn(op+": file not found", logger.String("path", path))
		return
	}
	v.log.Error(op+": cannot access file", logger.String("path", path), logger.Error(err))
}
