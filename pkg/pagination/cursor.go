package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cursor is the canonical, opaque paging token (pre-encoding) with short field names to
// minimize payload size. It is serialized to minified JSON and encoded with URL-safe base64.
//
// Fields:
//   - v:   version of the cursor schema
//   - did: dataset ID
//   - dv:  dataset version snapshot; reloads and filter changes bump it
//   - off: row offset into the filtered row set
//   - ps:  page size in rows
//   - iat: issued-at timestamp (unix seconds)
//   - fh:  optional hash of the active filter
//   - m:   optional projection mode
type Cursor struct {
	V   int    `json:"v"`
	Did string `json:"did"`
	Dv  int64  `json:"dv"`
	Off int    `json:"off"`
	Ps  int    `json:"ps"`
	Iat int64  `json:"iat"`
	Fh  string `json:"fh,omitempty"`
	M   string `json:"m,omitempty"`
}

// EncodeCursor serializes and encodes the cursor as URL-safe base64 (without padding).
func EncodeCursor(c Cursor) (string, error) {
	if err := validate(&c); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor decodes a URL-safe base64 token and parses the JSON cursor.
func DecodeCursor(token string) (*Cursor, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil, errors.New("cursor: empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(t)
	if err != nil {
		return nil, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cursor: invalid json: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate performs structural checks and defaulting.
func validate(c *Cursor) error {
	if c.V <= 0 {
		c.V = 1
	}
	if c.Iat == 0 {
		c.Iat = time.Now().Unix()
	}
	if strings.TrimSpace(c.Did) == "" {
		return errors.New("cursor: did (dataset id) required")
	}
	if c.Off < 0 {
		return errors.New("cursor: off must be >= 0")
	}
	if c.Ps <= 0 {
		return errors.New("cursor: ps must be > 0")
	}
	if c.Dv < 0 {
		c.Dv = 0
	}
	return nil
}

// FilterHash fingerprints a filter column/value pair. An empty column yields "".
func FilterHash(column, value string) string {
	if column == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(column + "\x00" + value))
	return hex.EncodeToString(sum[:8])
}

// NextOffset computes the next offset after returning n units.
func NextOffset(curr, n int) int {
	if curr < 0 {
		curr = 0
	}
	if n <= 0 {
		return curr
	}
	return curr + n
}

// OffsetForPage converts a 1-based page number into a row offset.
func OffsetForPage(page, size int) int {
	if page < 1 || size <= 0 {
		return 0
	}
	return (page - 1) * size
}

// PageForOffset converts a row offset into its 1-based page number.
func PageForOffset(off, size int) int {
	if off <= 0 || size <= 0 {
		return 1
	}
	return off/size + 1
}
