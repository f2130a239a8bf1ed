package arcontent

import (
	"context"
	"errors"
	"time"
)

// Repository is the relational store for all entity kinds.
//
// Get, Save and Delete return ErrNotFound for a missing row. Insert assigns the
// generated id to the entity and returns it.
type Repository interface {
	Insert(ctx context.Context, e Entity) (int64, error)
	Get(ctx context.Context, kind Kind, id int64) (Entity, error)
	Save(ctx context.Context, e Entity) error
	Delete(ctx context.Context, kind Kind, id int64) error

	// ListIDs returns every id of a kind in ascending order.
	ListIDs(ctx context.Context, kind Kind) ([]int64, error)

	// Page returns one zero-based page of a kind ordered by id, and the total row count.
	Page(ctx context.Context, kind Kind, page, size int) ([]Entity, int64, error)

	// ResourceIDsByProject returns the ids of the resources owned by a project.
	ResourceIDsByProject(ctx context.Context, projectID int64) ([]int64, error)

	// Atomically runs fn against a repository whose changes become visible all
	// together when fn returns nil, and are discarded otherwise. An error from
	// fn is returned unchanged.
	Atomically(ctx context.Context, fn func(repo Repository) error) error
}

// BlobStore stores raw asset bytes keyed by category and key. Writing the same
// category and key twice overwrites the blob.
type BlobStore interface {
	Write(ctx context.Context, category Category, key string, data []byte) (Locator, error)
	Read(ctx context.Context, locator Locator) ([]byte, error)
	Delete(ctx context.Context, locator Locator) error
	DiskUsage(ctx context.Context) (Usage, error)
}

// AudioFormat describes a sniffed audio container.
type AudioFormat struct {
	MimeType  string
	Extension string
}

// ErrUnsupportedFormat is returned by an AudioSniffer for bytes that are not a
// supported audio container.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioSniffer detects the container format of audio bytes.
type AudioSniffer interface {
	DetectFormat(data []byte) (AudioFormat, error)
}

// Locker serializes writers of the same entity across requests.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventType names a lifecycle event.
type EventType string

// Lifecycle events fired after a successful mutation.
const (
	EventProjectCreated  EventType = "project.created"
	EventProjectRenamed  EventType = "project.renamed"
	EventProjectDeleted  EventType = "project.deleted"
	EventResourceCreated EventType = "resource.created"
	EventResourceRenamed EventType = "resource.renamed"
	EventResourceDeleted EventType = "resource.deleted"
	EventAssetOverridden EventType = "asset.overridden"
)

// Event is delivered to an EventSink.
type Event struct {
	ID         string
	Type       EventType
	EntityKind Kind
	EntityID   int64
	Name       string
	OccurredAt time.Time
}

// EventSink receives lifecycle events. Delivery failures are logged and never
// fail the operation that fired the event.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
