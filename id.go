package gifp4

import (
	"encoding/base64"
	"io"
)

// IDLen is the width of an ID in bytes.
const IDLen = 6

// ID names one registered link. It is drawn uniformly at random and never reused.
type ID [IDLen]byte

// field tags appended to an ID to form the key of one stored field
const (
	tagPreview byte = 1
	tagVideo   byte = 2
)

var tokenEncoding = base64.RawURLEncoding

// tokenLen is the length of a formatted ID: 6 bytes are exactly 8 base64 characters.
var tokenLen = tokenEncoding.EncodedLen(IDLen)

// newID reads a fresh random ID from r.
func newID(r io.Reader) (id ID, err error) {
	_, err = io.ReadFull(r, id[:])
	return id, err
}

// key returns the bare ID as a store key. The key marks the ID as taken.
func (id ID) key() []byte {
	return id[:]
}

// fieldKey returns the store key of the field identified by tag:
//
//	[ 6 byte ID ][ 1 byte tag ]
func (id ID) fieldKey(tag byte) []byte {
	k := make([]byte, 0, IDLen+1)
	k = append(k, id[:]...)
	return append(k, tag)
}

// String returns the token form of the ID.
func (id ID) String() string {
	return FormatID(id)
}

// FormatID encodes an ID as a URL-safe token without padding.
func FormatID(id ID) string {
	return tokenEncoding.EncodeToString(id[:])
}

// ParseID decodes a token produced by FormatID. It reports false for any token
// that is not exactly the encoding of 6 bytes.
func ParseID(token string) (id ID, ok bool) {
	if len(token) != tokenLen {
		return ID{}, false
	}
	// the decoder silently skips \r and \n, so decode into a scratch buffer and
	// check the count rather than trusting the input length alone
	var buf [IDLen + 2]byte
	n, err := tokenEncoding.Decode(buf[:], []byte(token))
	if err != nil || n != IDLen {
		return ID{}, false
	}
	copy(id[:], buf[:IDLen])
	return id, true
}
