package arcontent

import (
	"context"
)

// Service coordinates the metadata repository and the blob store for AR
// projects and resources.
type Service interface {
	// Project operations
	ListProjects(ctx context.Context, page, size int) (*Page[ProjectView], error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	GetProject(ctx context.Context, id string) (*ProjectView, error)
	CreateProject(ctx context.Context, name string) (string, error)
	RenameProject(ctx context.Context, id, newName string) error
	DeleteProject(ctx context.Context, id string) error

	// Resource operations
	ListResourceIDs(ctx context.Context, projectID string) ([]string, error)
	GetResource(ctx context.Context, id string) (*ResourceView, error)
	CreateResource(ctx context.Context, projectID string, req CreateResourceRequest) (*ResourceView, error)
	RenameResource(ctx context.Context, id, newName string) error
	DeleteResource(ctx context.Context, id string) error

	// Asset overrides
	OverrideMarkers(ctx context.Context, req MarkerRequest) error
	OverrideSound(ctx context.Context, soundID, name string, sound []byte) error
	OverrideVideo(ctx context.Context, videoID, name, url string) error
	OverrideImage(ctx context.Context, imageID, name, image string) error

	// Blob read-back
	ReadAsset(ctx context.Context, kind Kind, id string) ([]byte, error)
	ReadMarker(ctx context.Context, markersID string, slot int) ([]byte, error)

	GetStorageInfo(ctx context.Context) (*StorageInfo, error)
}
