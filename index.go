package gifp4

import (
	"context"
	"crypto/rand"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// maxClaimAttempts bounds the number of random IDs tried per registration.
// With 48 bits of ID space a second attempt is already rare; running out
// means the random source is broken.
const maxClaimAttempts = 10

// ErrIDSpaceExhausted is returned by Register when no free ID could be claimed.
var ErrIDSpaceExhausted = errors.New("out of IDs")

// Link is the pair of CDN path suffixes stored for one ID.
type Link struct {
	Preview Text
	Video   Text
}

// Index keeps track of the ID -> Link mapping. It holds no state of its own,
// so one Index can serve any number of concurrent requests.
type Index struct {
	store  Store
	rand   io.Reader
	logger *zap.Logger
}

// NewIndex returns an Index persisting links in s. If l is nil, nothing is logged.
func NewIndex(s Store, l *zap.Logger) *Index {
	if l == nil {
		l = zap.NewNop()
	}
	return &Index{
		store:  s,
		rand:   rand.Reader,
		logger: l,
	}
}

// Register stores a new link and returns its ID.
//
// The ID is reserved first by claiming the bare ID key, then both fields are
// written in one batch. If the batch fails, the reserved ID stays in the store
// without fields and never resolves.
func (i *Index) Register(ctx context.Context, preview, video string) (ID, error) {
	id, err := i.claim(ctx)
	if err != nil {
		return ID{}, err
	}

	// the ID is already reserved: a cancelled request must not leave the batch half done
	err = i.store.ApplyBatch(context.WithoutCancel(ctx), []Write{
		{Key: id.fieldKey(tagPreview), Value: []byte(preview)},
		{Key: id.fieldKey(tagVideo), Value: []byte(video)},
	})
	if err != nil {
		return ID{}, err
	}

	return id, nil
}

// claim reserves a fresh random ID.
func (i *Index) claim(ctx context.Context) (ID, error) {
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		id, err := newID(i.rand)
		if err != nil {
			return ID{}, xerrors.Errorf("could not generate ID: %w", err)
		}

		ok, err := i.store.TryClaim(ctx, id.key())
		if err != nil {
			return ID{}, err
		}
		if ok {
			return id, nil
		}

		i.logger.Debug("ID collision", zap.Stringer("id", id), zap.Int("attempt", attempt))
	}

	i.logger.Warn("giving up on claiming an ID", zap.Int("attempts", maxClaimAttempts))
	return ID{}, ErrIDSpaceExhausted
}

// Resolve returns the link stored under id. It reports false if either field
// is missing or is not valid UTF-8; only store failures are errors.
func (i *Index) Resolve(ctx context.Context, id ID) (Link, bool, error) {
	preview, ok, err := i.field(ctx, id, tagPreview)
	if err != nil || !ok {
		return Link{}, false, err
	}

	video, ok, err := i.field(ctx, id, tagVideo)
	if err != nil || !ok {
		return Link{}, false, err
	}

	return Link{Preview: preview, Video: video}, true, nil
}

func (i *Index) field(ctx context.Context, id ID, tag byte) (Text, bool, error) {
	v, ok, err := i.store.Get(ctx, id.fieldKey(tag))
	if err != nil || !ok {
		return Text{}, false, err
	}

	t, ok := NewText(v)
	if !ok {
		i.logger.Warn("stored field is not valid UTF-8", zap.Stringer("id", id), zap.Uint8("tag", tag))
	}
	return t, ok, nil
}
