package gifp4

import "io"

// Segments reads a fixed list of byte slices back to back without copying them
// into a new buffer. It is consumed by a single pass and cannot be rewound.
type Segments struct {
	parts [][]byte
}

// NewSegments returns a reader over parts. The slices are borrowed, not copied,
// and must not be modified until the reader is drained.
func NewSegments(parts ...[]byte) *Segments {
	return &Segments{parts: append([][]byte(nil), parts...)}
}

// Len returns the number of bytes left to read.
func (s *Segments) Len() int {
	n := 0
	for _, p := range s.parts {
		n += len(p)
	}
	return n
}

func (s *Segments) Read(p []byte) (n int, err error) {
	for len(p) > 0 && len(s.parts) > 0 {
		c := copy(p, s.parts[0])
		n += c
		p = p[c:]
		s.advance(c)
	}
	if n == 0 && len(s.parts) == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// WriteTo writes every remaining segment to w directly.
func (s *Segments) WriteTo(w io.Writer) (n int64, err error) {
	for len(s.parts) > 0 {
		head := len(s.parts[0])
		c, err := w.Write(s.parts[0])
		n += int64(c)
		s.advance(c)
		if err != nil {
			return n, err
		}
		if c < head {
			return n, io.ErrShortWrite
		}
	}
	return n, nil
}

// advance drops c bytes from the head, along with any exhausted segments.
func (s *Segments) advance(c int) {
	s.parts[0] = s.parts[0][c:]
	for len(s.parts) > 0 && len(s.parts[0]) == 0 {
		s.parts = s.parts[1:]
	}
}

const cdnBase = "https://cdn.discordapp.com/attachments/"

var (
	pageLead = []byte(`<!DOCTYPE html><html><head><meta property="og:image" content="` + cdnBase)

	pageMiddle = []byte(`"><meta property="og:image:type" content="image/gif">` +
		`<meta property="og:image:height" content="202"><meta property="og:image:width" content="250">` +
		`<meta property="og:type" content="video.other"><meta property="og:video:url" content="` + cdnBase)

	pageTrail = []byte(`"><meta property="og:video:height" content="202"><meta property="og:video:width" content="250">` +
		`</head><body><h1><a href="submit">Submit a link</a></h1></body></html>`)
)

// PreviewPage returns the Open Graph page embedding the preview image and video of l.
func PreviewPage(l Link) *Segments {
	return NewSegments(pageLead, l.Preview.b, pageMiddle, l.Video.b, pageTrail)
}
