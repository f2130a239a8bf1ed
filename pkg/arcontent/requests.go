package arcontent

import "time"

// Request/Response DTOs

// CreateResourceRequest contains the payloads of a new resource.
//
// Thumbnail, Image, Sound and the three markers are base64 encoded. Video is a
// URL. Image and Sound form one group that is mutually exclusive with Video.
type CreateResourceRequest struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Image     string `json:"image,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Video     string `json:"video,omitempty"`
	Marker1   string `json:"marker1,omitempty"`
	Marker2   string `json:"marker2,omitempty"`
	Marker3   string `json:"marker3,omitempty"`
}

// MarkerRequest replaces the three marker blobs of an existing marker set.
// Markers are base64 encoded.
type MarkerRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Marker1 string `json:"marker1,omitempty"`
	Marker2 string `json:"marker2,omitempty"`
	Marker3 string `json:"marker3,omitempty"`
}

func (r MarkerRequest) payloads() [3]string {
	return [3]string{r.Marker1, r.Marker2, r.Marker3}
}

// ProjectView is the caller facing representation of a project.
type ProjectView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ResourceIDs []string  `json:"resource_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssetView describes a stored image or sound.
type AssetView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Locator   Locator `json:"locator"`
	MimeType  string  `json:"mime_type,omitempty"`
	SizeBytes int64   `json:"size_bytes"`
}

// MarkersView describes a marker set.
type MarkersView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Locators  [3]Locator `json:"locators"`
	SizeBytes int64      `json:"size_bytes"`
}

// VideoView describes a video reference.
type VideoView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResourceView is a fully assembled resource.
type ResourceView struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id,omitempty"`
	Name        string      `json:"name"`
	AccessCount int64       `json:"access_count"`
	Thumbnail   AssetView   `json:"thumbnail"`
	Markers     MarkersView `json:"markers"`
	Image       *AssetView  `json:"image,omitempty"`
	Sound       *AssetView  `json:"sound,omitempty"`
	Video       *VideoView  `json:"video,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func newProjectView(p *Project, resourceIDs []int64) *ProjectView {
	return &ProjectView{
		ID:          FormatID(p.ID),
		Name:        p.Name,
		ResourceIDs: formatIDs(resourceIDs),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newImageView(a *ImageAsset) AssetView {
	return AssetView{ID: FormatID(a.ID), Name: a.Name, Locator: a.Locator, MimeType: a.MimeType, SizeBytes: a.SizeBytes}
}

func newSoundView(a *SoundAsset) AssetView {
	return AssetView{ID: FormatID(a.ID), Name: a.Name, Locator: a.Locator, MimeType: a.MimeType, SizeBytes: a.SizeBytes}
}

func newMarkersView(m *MarkerSet) MarkersView {
	return MarkersView{ID: FormatID(m.ID), Name: m.Name, Locators: m.Locators(), SizeBytes: m.SizeBytes}
}
