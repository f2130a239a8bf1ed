package arcontent

import (
	"strconv"
	"time"
)

// Kind identifies one of the entity tables managed by the repository.
type Kind string

// Entity kinds.
const (
	KindProject  Kind = "project"
	KindResource Kind = "resource"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindSound    Kind = "sound"
	KindMarkers  Kind = "markers"
)

// Category selects the blob namespace an asset is written to.
type Category string

// Blob categories.
const (
	CategoryImage  Category = "image"
	CategorySound  Category = "sound"
	CategoryMarker Category = "marker"
)

// Locator is an opaque URI returned by a BlobStore. The coordinator only stores
// and hands it back, it never parses it.
type Locator string

// Marker slot suffixes, in slot order. ARjs NFT markers are shipped as an
// .iset/.fset/.fset3 triple.
var MarkerSuffixes = [3]string{".iset", ".fset", ".fset3"}

// Entity is implemented by every persisted row type.
type Entity interface {
	Kind() Kind
	EntityID() int64
	SetEntityID(id int64)
}

// Project groups resources.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) Kind() Kind           { return KindProject }
func (p *Project) EntityID() int64      { return p.ID }
func (p *Project) SetEntityID(id int64) { p.ID = id }

// Resource is a composite AR content unit. Exactly one of the image/sound group
// or the video is set.
type Resource struct {
	ID          int64     `json:"id"`
	ProjectID   *int64    `json:"project_id,omitempty"`
	Name        string    `json:"name"`
	ThumbnailID int64     `json:"thumbnail_id"`
	MarkersID   int64     `json:"markers_id"`
	ImageID     *int64    `json:"image_id,omitempty"`
	SoundID     *int64    `json:"sound_id,omitempty"`
	VideoID     *int64    `json:"video_id,omitempty"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Resource) Kind() Kind           { return KindResource }
func (r *Resource) EntityID() int64      { return r.ID }
func (r *Resource) SetEntityID(id int64) { r.ID = id }

// MarkerSet holds the three marker blobs of a resource.
type MarkerSet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Marker1   Locator   `json:"marker1"`
	Marker2   Locator   `json:"marker2"`
	Marker3   Locator   `json:"marker3"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *MarkerSet) Kind() Kind           { return KindMarkers }
func (m *MarkerSet) EntityID() int64      { return m.ID }
func (m *MarkerSet) SetEntityID(id int64) { m.ID = id }

// Locators returns the marker locators in slot order.
func (m *MarkerSet) Locators() [3]Locator {
	return [3]Locator{m.Marker1, m.Marker2, m.Marker3}
}

// ImageAsset is an image stored in the blob store. Thumbnails are images too.
type ImageAsset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Locator   Locator   `json:"locator"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *ImageAsset) Kind() Kind           { return KindImage }
func (a *ImageAsset) EntityID() int64      { return a.ID }
func (a *ImageAsset) SetEntityID(id int64) { a.ID = id }

// SoundAsset is an audio clip stored in the blob store.
type SoundAsset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Locator   Locator   `json:"locator"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *SoundAsset) Kind() Kind           { return KindSound }
func (a *SoundAsset) EntityID() int64      { return a.ID }
func (a *SoundAsset) SetEntityID(id int64) { a.ID = id }

// VideoAsset references an externally hosted video.
type VideoAsset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *VideoAsset) Kind() Kind           { return KindVideo }
func (a *VideoAsset) EntityID() int64      { return a.ID }
func (a *VideoAsset) SetEntityID(id int64) { a.ID = id }

// NewEntity returns an empty entity of the given kind, or nil for an unknown kind.
func NewEntity(kind Kind) Entity {
	switch kind {
	case KindProject:
		return &Project{}
	case KindResource:
		return &Resource{}
	case KindImage:
		return &ImageAsset{}
	case KindVideo:
		return &VideoAsset{}
	case KindSound:
		return &SoundAsset{}
	case KindMarkers:
		return &MarkerSet{}
	}
	return nil
}

// Kinds lists every entity kind.
func Kinds() []Kind {
	return []Kind{KindProject, KindResource, KindImage, KindVideo, KindSound, KindMarkers}
}

// Usage is the disk usage reported by a BlobStore, in bytes.
type Usage struct {
	Used  int64
	Total int64
}

// StorageInfo is sampled from the blob store on every request.
type StorageInfo struct {
	UsedBytes  int64 `json:"used"`
	TotalBytes int64 `json:"total"`
}

// Page is one page of a paged listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

// FormatID renders an entity id the way it is exposed to callers.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, FormatID(id))
	}
	return out
}
