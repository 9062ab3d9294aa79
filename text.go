package gifp4

import "unicode/utf8"

// Text is a byte string known to be valid UTF-8.
// The only way to get a non-empty Text is NewText.
type Text struct {
	b []byte
}

// NewText validates b and wraps it. Text takes ownership of b, callers must not
// modify it afterwards.
func NewText(b []byte) (Text, bool) {
	if !utf8.Valid(b) {
		return Text{}, false
	}
	return Text{b: b}, true
}

func (t Text) String() string {
	return string(t.b)
}
