package arcontent

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Resource operations

func (s *service) ListResourceIDs(ctx context.Context, projectID string) (ids []string, err error) {
	const op = "list_resource_ids"
	ctx, span := s.startSpan(ctx, "ListResourceIDs", attribute.String("project.id", projectID))
	defer func() { endSpan(span, err) }()

	p, err := resolve[*Project](ctx, s.repository, op, KindProject, projectID)
	if err != nil {
		return nil, err
	}
	raw, err := s.repository.ResourceIDsByProject(ctx, p.ID)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return formatIDs(raw), nil
}

// GetResource returns the assembled resource and counts the access.
func (s *service) GetResource(ctx context.Context, id string) (view *ResourceView, err error) {
	const op = "get_resource"
	ctx, span := s.startSpan(ctx, "GetResource", attribute.String("resource.id", id))
	defer func() { endSpan(span, err) }()

	err = s.repository.Atomically(ctx, func(repo Repository) error {
		r, err := resolve[*Resource](ctx, repo, op, KindResource, id)
		if err != nil {
			return err
		}
		r.AccessCount++
		if err := repo.Save(ctx, r); err != nil {
			return err
		}
		view, err = assembleResource(ctx, repo, op, r)
		return err
	})
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return view, nil
}

func (s *service) RenameResource(ctx context.Context, id, newName string) (err error) {
	const op = "rename_resource"
	ctx, span := s.startSpan(ctx, "RenameResource", attribute.String("resource.id", id))
	defer func() { endSpan(span, err) }()

	return s.rename(ctx, op, KindResource, id, newName, EventResourceRenamed, func(e Entity, name string) {
		r := e.(*Resource)
		r.Name = name
		r.UpdatedAt = s.now()
	})
}

func (s *service) DeleteResource(ctx context.Context, id string) (err error) {
	const op = "delete_resource"
	ctx, span := s.startSpan(ctx, "DeleteResource", attribute.String("resource.id", id))
	defer func() { endSpan(span, err) }()

	return s.delete(ctx, op, KindResource, id, EventResourceDeleted)
}

// CreateResource writes the thumbnail, the marker set and either the image and
// sound pair or the video of a new resource.
//
// All rows are inserted in one repository transaction. Every blob written is
// recorded in a saga, so the first failing step deletes the blobs already
// written and rolls back the rows. The deletes run before the transaction ends.
func (s *service) CreateResource(ctx context.Context, projectID string, req CreateResourceRequest) (view *ResourceView, err error) {
	const op = "create_resource"
	ctx, span := s.startSpan(ctx, "CreateResource", attribute.String("project.id", projectID))
	defer func() { endSpan(span, err) }()

	hasImageOrSound := req.Image != "" || req.Sound != ""
	hasVideo := req.Video != ""
	if hasImageOrSound && hasVideo {
		return nil, newError(op, ErrInvalidState, "image/sound and video are mutually exclusive")
	}
	if !hasImageOrSound && !hasVideo {
		return nil, newError(op, ErrInvalidState, "no asset supplied")
	}
	if err := ValidateName(req.Name); err != nil {
		return nil, newError(op, ErrInvalidName, fmt.Sprintf("%q", req.Name))
	}

	var owner *int64
	if projectID != "" {
		p, err := resolve[*Project](ctx, s.repository, op, KindProject, projectID)
		if err != nil {
			return nil, err
		}
		owner = &p.ID
	}

	sg := newSaga(op, s.logger)
	err = s.repository.Atomically(ctx, func(repo Repository) error {
		b := &resourceBuilder{s: s, repo: repo, sg: sg, op: op, name: req.Name}
		v, err := b.build(ctx, owner, req, hasVideo)
		if err != nil {
			// Blob keys are row ids, so the deletes must finish before the
			// rollback frees those ids for another writer.
			s.compensate(ctx, sg)
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		// Commit failures reach here with the saga still armed.
		s.compensate(ctx, sg)
		return nil, s.storeError(op, err)
	}
	sg.Succeed()

	id, _ := ParseID(view.ID)
	s.publish(ctx, EventResourceCreated, KindResource, id, req.Name)
	return view, nil
}

// compensate undoes the blob writes recorded in sg. It is a no-op once the
// saga has run.
func (s *service) compensate(ctx context.Context, sg *saga) {
	if failed := sg.Compensate(ctx); failed > 0 {
		s.logger.Warn("resource creation left blobs behind", "failed_compensations", failed)
	}
}

// resourceBuilder runs the per-asset steps of CreateResource inside one
// repository transaction.
type resourceBuilder struct {
	s    *service
	repo Repository
	sg   *saga
	op   string
	name string
}

func (b *resourceBuilder) build(ctx context.Context, owner *int64, req CreateResourceRequest, hasVideo bool) (*ResourceView, error) {
	r := &Resource{ProjectID: owner, Name: req.Name, CreatedAt: b.s.now()}
	r.UpdatedAt = r.CreatedAt

	thumb, err := b.thumbnail(ctx, req.Thumbnail)
	if err != nil {
		return nil, err
	}
	r.ThumbnailID = thumb.ID

	markers, err := b.markers(ctx, [3]string{req.Marker1, req.Marker2, req.Marker3})
	if err != nil {
		return nil, err
	}
	r.MarkersID = markers.ID

	var (
		image *ImageAsset
		sound *SoundAsset
		video *VideoAsset
	)
	if req.Image != "" {
		if image, err = b.image(ctx, req.Image); err != nil {
			return nil, err
		}
		r.ImageID = &image.ID
	}
	if req.Sound != "" {
		if sound, err = b.sound(ctx, req.Sound); err != nil {
			return nil, err
		}
		r.SoundID = &sound.ID
	}
	if hasVideo {
		if video, err = b.video(ctx, req.Video); err != nil {
			return nil, err
		}
		r.VideoID = &video.ID
	}

	if _, err := b.repo.Insert(ctx, r); err != nil {
		return nil, err
	}
	return buildResourceView(r, thumb, markers, image, sound, video), nil
}

func (b *resourceBuilder) insert(ctx context.Context, e Entity) error {
	if _, err := b.repo.Insert(ctx, e); err != nil {
		return err
	}
	return nil
}

func (b *resourceBuilder) thumbnail(ctx context.Context, payload string) (*ImageAsset, error) {
	if payload == "" {
		return nil, newError(b.op, ErrInvalidParameter, "thumbnail")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, wrapError(b.op, ErrInvalidParameter, "thumbnail", err)
	}
	now := b.s.now()
	a := &ImageAsset{Name: b.name, MimeType: mimetype.Detect(data).String(), SizeBytes: int64(len(data)), CreatedAt: now, UpdatedAt: now}
	if err := b.insert(ctx, a); err != nil {
		return nil, err
	}
	loc, err := b.sg.writeBlob(ctx, b.s.blobStore, CategoryImage, FormatID(a.ID), data)
	if err != nil {
		b.s.logger.Error("failed to write thumbnail", "id", a.ID, "err", err)
		return nil, wrapError(b.op, ErrInvalidParameter, "thumbnail", err)
	}
	a.Locator = loc
	return a, b.repo.Save(ctx, a)
}

func (b *resourceBuilder) markers(ctx context.Context, payloads [3]string) (*MarkerSet, error) {
	data, err := decodeMarkers(b.op, payloads)
	if err != nil {
		return nil, err
	}
	now := b.s.now()
	m := &MarkerSet{Name: b.name, CreatedAt: now, UpdatedAt: now}
	if err := b.insert(ctx, m); err != nil {
		return nil, err
	}
	var locs [3]Locator
	for i, suffix := range MarkerSuffixes {
		loc, err := b.sg.writeBlob(ctx, b.s.blobStore, CategoryMarker, FormatID(m.ID)+suffix, data[i])
		if err != nil {
			b.s.logger.Error("failed to write marker", "id", m.ID, "slot", i+1, "err", err)
			return nil, ioFailure(b.op, err)
		}
		locs[i] = loc
		m.SizeBytes += int64(len(data[i]))
	}
	m.Marker1, m.Marker2, m.Marker3 = locs[0], locs[1], locs[2]
	return m, b.repo.Save(ctx, m)
}

func (b *resourceBuilder) image(ctx context.Context, payload string) (*ImageAsset, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, wrapError(b.op, ErrInvalidParameter, "image", err)
	}
	now := b.s.now()
	a := &ImageAsset{Name: b.name, MimeType: mimetype.Detect(data).String(), SizeBytes: int64(len(data)), CreatedAt: now, UpdatedAt: now}
	if err := b.insert(ctx, a); err != nil {
		return nil, err
	}
	loc, err := b.sg.writeBlob(ctx, b.s.blobStore, CategoryImage, FormatID(a.ID), data)
	if err != nil {
		b.s.logger.Error("failed to write image", "id", a.ID, "err", err)
		return nil, ioFailure(b.op, err)
	}
	a.Locator = loc
	return a, b.repo.Save(ctx, a)
}

func (b *resourceBuilder) sound(ctx context.Context, payload string) (*SoundAsset, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, wrapError(b.op, ErrInvalidParameter, "sound", err)
	}
	format, err := b.s.sniffer.DetectFormat(data)
	if err != nil {
		return nil, wrapError(b.op, ErrInvalidParameter, "audio type not supported", err)
	}
	now := b.s.now()
	a := &SoundAsset{Name: b.name, MimeType: format.MimeType, SizeBytes: int64(len(data)), CreatedAt: now, UpdatedAt: now}
	if err := b.insert(ctx, a); err != nil {
		return nil, err
	}
	loc, err := b.sg.writeBlob(ctx, b.s.blobStore, CategorySound, FormatID(a.ID), data)
	if err != nil {
		b.s.logger.Error("failed to write sound", "id", a.ID, "err", err)
		return nil, ioFailure(b.op, err)
	}
	a.Locator = loc
	return a, b.repo.Save(ctx, a)
}

func (b *resourceBuilder) video(ctx context.Context, raw string) (*VideoAsset, error) {
	u, err := parseVideoURL(raw)
	if err != nil {
		return nil, wrapError(b.op, ErrInvalidParameter, "invalid url", err)
	}
	now := b.s.now()
	a := &VideoAsset{Name: b.name, URL: u, CreatedAt: now, UpdatedAt: now}
	if err := b.insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// decodeMarkers requires all three payloads and decodes them concurrently.
func decodeMarkers(op string, payloads [3]string) ([3][]byte, error) {
	var out [3][]byte
	for _, p := range payloads {
		if p == "" {
			return out, newError(op, ErrInvalidParameter, "markers required")
		}
	}

	var g errgroup.Group
	for i, p := range payloads {
		g.Go(func() error {
			data, err := base64.StdEncoding.DecodeString(p)
			if err != nil {
				return wrapError(op, ErrInvalidParameter, fmt.Sprintf("marker%d", i+1), err)
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// parseVideoURL accepts absolute http and https URLs with a host.
func parseVideoURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.String(), nil
}

// assembleResource loads every asset row a resource references.
func assembleResource(ctx context.Context, repo Repository, op string, r *Resource) (*ResourceView, error) {
	thumb, err := load[*ImageAsset](ctx, repo, op, KindImage, r.ThumbnailID)
	if err != nil {
		return nil, err
	}
	markers, err := load[*MarkerSet](ctx, repo, op, KindMarkers, r.MarkersID)
	if err != nil {
		return nil, err
	}
	var (
		image *ImageAsset
		sound *SoundAsset
		video *VideoAsset
	)
	if r.ImageID != nil {
		if image, err = load[*ImageAsset](ctx, repo, op, KindImage, *r.ImageID); err != nil {
			return nil, err
		}
	}
	if r.SoundID != nil {
		if sound, err = load[*SoundAsset](ctx, repo, op, KindSound, *r.SoundID); err != nil {
			return nil, err
		}
	}
	if r.VideoID != nil {
		if video, err = load[*VideoAsset](ctx, repo, op, KindVideo, *r.VideoID); err != nil {
			return nil, err
		}
	}
	return buildResourceView(r, thumb, markers, image, sound, video), nil
}

func buildResourceView(r *Resource, thumb *ImageAsset, markers *MarkerSet, image *ImageAsset, sound *SoundAsset, video *VideoAsset) *ResourceView {
	view := &ResourceView{
		ID:          FormatID(r.ID),
		Name:        r.Name,
		AccessCount: r.AccessCount,
		Thumbnail:   newImageView(thumb),
		Markers:     newMarkersView(markers),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ProjectID != nil {
		view.ProjectID = FormatID(*r.ProjectID)
	}
	if image != nil {
		v := newImageView(image)
		view.Image = &v
	}
	if sound != nil {
		v := newSoundView(sound)
		view.Sound = &v
	}
	if video != nil {
		view.Video = &VideoView{ID: FormatID(video.ID), Name: video.Name, URL: video.URL}
	}
	return view
}
