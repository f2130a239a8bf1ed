package arcontent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
)

// Asset overrides replace the payload of an existing asset in place. Blobs are
// rewritten under the same key, so the stored locator normally stays the same.
//
// The row is saved before the blob is written, both inside the transaction, so
// a failed row update leaves the stored bytes untouched. A commit failure after
// the write still leaves the new bytes behind the old row.

func (s *service) OverrideMarkers(ctx context.Context, req MarkerRequest) (err error) {
	const op = "override_markers"
	ctx, span := s.startSpan(ctx, "OverrideMarkers", attribute.String("markers.id", req.ID))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(req.Name); err != nil {
		return newError(op, ErrInvalidName, fmt.Sprintf("%q", req.Name))
	}
	data, err := decodeMarkers(op, req.payloads())
	if err != nil {
		return err
	}

	return s.override(ctx, op, KindMarkers, req.ID, req.Name, func(repo Repository, e Entity) error {
		m := e.(*MarkerSet)
		var size int64
		for _, d := range data {
			size += int64(len(d))
		}
		m.SizeBytes = size
		m.Name = req.Name
		m.UpdatedAt = s.now()
		if err := repo.Save(ctx, m); err != nil {
			return err
		}

		old := [3]Locator{m.Marker1, m.Marker2, m.Marker3}
		var locs [3]Locator
		for i, suffix := range MarkerSuffixes {
			loc, err := s.blobStore.Write(ctx, CategoryMarker, FormatID(m.ID)+suffix, data[i])
			if err != nil {
				s.logger.Error("failed to write marker", "id", m.ID, "slot", i+1, "err", err)
				return ioFailure(op, err)
			}
			locs[i] = loc
		}
		if locs == old {
			return nil
		}
		m.Marker1, m.Marker2, m.Marker3 = locs[0], locs[1], locs[2]
		return repo.Save(ctx, m)
	})
}

// OverrideSound sniffs the new payload and resolves the row before any blob is
// written.
func (s *service) OverrideSound(ctx context.Context, soundID, name string, sound []byte) (err error) {
	const op = "override_sound"
	ctx, span := s.startSpan(ctx, "OverrideSound", attribute.String("sound.id", soundID))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(name); err != nil {
		return newError(op, ErrInvalidName, fmt.Sprintf("%q", name))
	}
	format, err := s.sniffer.DetectFormat(sound)
	if err != nil {
		return wrapError(op, ErrInvalidParameter, "audio type not supported", err)
	}

	return s.override(ctx, op, KindSound, soundID, name, func(repo Repository, e Entity) error {
		a := e.(*SoundAsset)
		a.Name = name
		a.MimeType = format.MimeType
		a.SizeBytes = int64(len(sound))
		a.UpdatedAt = s.now()
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		loc, err := s.blobStore.Write(ctx, CategorySound, FormatID(a.ID), sound)
		if err != nil {
			s.logger.Error("failed to write sound", "id", a.ID, "err", err)
			return ioFailure(op, err)
		}
		return relocate(ctx, repo, a, &a.Locator, loc)
	})
}

func (s *service) OverrideVideo(ctx context.Context, videoID, name, rawURL string) (err error) {
	const op = "override_video"
	ctx, span := s.startSpan(ctx, "OverrideVideo", attribute.String("video.id", videoID))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(name); err != nil {
		return newError(op, ErrInvalidName, fmt.Sprintf("%q", name))
	}

	return s.override(ctx, op, KindVideo, videoID, name, func(repo Repository, e Entity) error {
		v := e.(*VideoAsset)
		u, err := parseVideoURL(rawURL)
		if err != nil {
			return wrapError(op, ErrInvalidParameter, "invalid url", err)
		}
		v.URL = u
		v.Name = name
		v.UpdatedAt = s.now()
		return repo.Save(ctx, v)
	})
}

func (s *service) OverrideImage(ctx context.Context, imageID, name, image string) (err error) {
	const op = "override_image"
	ctx, span := s.startSpan(ctx, "OverrideImage", attribute.String("image.id", imageID))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(name); err != nil {
		return newError(op, ErrInvalidName, fmt.Sprintf("%q", name))
	}

	return s.override(ctx, op, KindImage, imageID, name, func(repo Repository, e Entity) error {
		a := e.(*ImageAsset)
		data, err := base64.StdEncoding.DecodeString(image)
		if err != nil {
			return wrapError(op, ErrInvalidParameter, "image", err)
		}
		a.Name = name
		a.MimeType = mimetype.Detect(data).String()
		a.SizeBytes = int64(len(data))
		a.UpdatedAt = s.now()
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		loc, err := s.blobStore.Write(ctx, CategoryImage, FormatID(a.ID), data)
		if err != nil {
			s.logger.Error("failed to write image", "id", a.ID, "err", err)
			return ioFailure(op, err)
		}
		return relocate(ctx, repo, a, &a.Locator, loc)
	})
}

// relocate saves e again when a rewrite moved its blob.
func relocate(ctx context.Context, repo Repository, e Entity, field *Locator, loc Locator) error {
	if *field == loc {
		return nil
	}
	*field = loc
	return repo.Save(ctx, e)
}

// override parses id, holds the entity lock and runs apply on the resolved row
// inside one transaction.
func (s *service) override(ctx context.Context, op string, kind Kind, id, name string, apply func(Repository, Entity) error) error {
	parsed, err := ParseID(id)
	if err != nil {
		return newError(op, ErrInvalidID, fmt.Sprintf("%s id %q", kind, id))
	}
	unlock, err := s.lock(ctx, op, kind, parsed)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.repository.Atomically(ctx, func(repo Repository) error {
		e, err := resolve[Entity](ctx, repo, op, kind, id)
		if err != nil {
			return err
		}
		return apply(repo, e)
	})
	if err != nil {
		return s.storeError(op, err)
	}

	s.publish(ctx, EventAssetOverridden, kind, parsed, name)
	return nil
}

// Blob read-back

// ReadAsset returns the stored bytes of an image or sound.
func (s *service) ReadAsset(ctx context.Context, kind Kind, id string) (data []byte, err error) {
	const op = "read_asset"
	ctx, span := s.startSpan(ctx, "ReadAsset", attribute.String("kind", string(kind)), attribute.String("id", id))
	defer func() { endSpan(span, err) }()

	var loc Locator
	switch kind {
	case KindImage:
		a, err := resolve[*ImageAsset](ctx, s.repository, op, kind, id)
		if err != nil {
			return nil, err
		}
		loc = a.Locator
	case KindSound:
		a, err := resolve[*SoundAsset](ctx, s.repository, op, kind, id)
		if err != nil {
			return nil, err
		}
		loc = a.Locator
	default:
		return nil, newError(op, ErrInvalidParameter, fmt.Sprintf("kind %q has no blob", kind))
	}
	return s.readBlob(ctx, op, loc)
}

// ReadMarker returns one marker blob. Slots are numbered 1 to 3.
func (s *service) ReadMarker(ctx context.Context, markersID string, slot int) (data []byte, err error) {
	const op = "read_marker"
	ctx, span := s.startSpan(ctx, "ReadMarker", attribute.String("markers.id", markersID), attribute.Int("slot", slot))
	defer func() { endSpan(span, err) }()

	if slot < 1 || slot > len(MarkerSuffixes) {
		return nil, newError(op, ErrInvalidParameter, fmt.Sprintf("slot %d", slot))
	}
	m, err := resolve[*MarkerSet](ctx, s.repository, op, KindMarkers, markersID)
	if err != nil {
		return nil, err
	}
	return s.readBlob(ctx, op, m.Locators()[slot-1])
}

func (s *service) readBlob(ctx context.Context, op string, loc Locator) ([]byte, error) {
	if loc == "" {
		return nil, newError(op, ErrNotFound, "blob not written")
	}
	data, err := s.blobStore.Read(ctx, loc)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, newError(op, ErrNotFound, "blob missing")
		}
		s.logger.Error("failed to read blob", "locator", loc, "err", err)
		return nil, wrapError(op, ErrIOFailure, "read failed", err)
	}
	return data, nil
}
