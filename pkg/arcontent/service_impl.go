package arcontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tendant/simple-ar/pkg/arcontent"

// Paging bounds for ListProjects.
const (
	MaxPageSize = 100
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	sniffer    AudioSniffer
	locker     Locker
	eventSink  EventSink
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store holding asset bytes
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithAudioSniffer sets the detector used to accept sound payloads
func WithAudioSniffer(sniffer AudioSniffer) Option {
	return func(s *service) {
		s.sniffer = sniffer
	}
}

// WithLocker enables per-entity locking of overrides and renames
func WithLocker(locker Locker) Option {
	return func(s *service) {
		s.locker = locker
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *service) {
		s.tracer = tracer
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.sniffer == nil {
		return nil, fmt.Errorf("audio sniffer is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	return s, nil
}

func (s *service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "arcontent."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lock takes the per-entity lock when a Locker is configured.
func (s *service) lock(ctx context.Context, op string, kind Kind, id int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("%s:%d", kind, id))
	if err != nil {
		s.logger.Error("failed to acquire entity lock", "op", op, "kind", kind, "id", id, "err", err)
		return nil, wrapError(op, ErrIOFailure, "lock unavailable", err)
	}
	return unlock, nil
}

func (s *service) publish(ctx context.Context, typ EventType, kind Kind, id int64, name string) {
	event := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		EntityKind: kind,
		EntityID:   id,
		Name:       name,
		OccurredAt: s.now(),
	}
	if err := s.eventSink.Publish(ctx, event); err != nil {
		// Log error but don't fail the operation
		s.logger.Warn("failed to publish event", "type", typ, "kind", kind, "id", id, "err", err)
	}
}

// storeError maps a repository failure. *Error values from nested steps pass
// through untouched.
func (s *service) storeError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, ErrNotFound) {
		return newError(op, ErrNotFound, "row disappeared")
	}
	s.logger.Error("metadata store failure", "op", op, "err", err)
	return wrapError(op, ErrIOFailure, "metadata store failed", err)
}

// Project operations

func (s *service) ListProjects(ctx context.Context, page, size int) (result *Page[ProjectView], err error) {
	const op = "list_projects"
	ctx, span := s.startSpan(ctx, "ListProjects", attribute.Int("page", page), attribute.Int("size", size))
	defer func() { endSpan(span, err) }()

	if page < 0 {
		return nil, newError(op, ErrInvalidParameter, "page must not be negative")
	}
	if size < 1 || size > MaxPageSize {
		return nil, newError(op, ErrInvalidParameter, fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}

	entities, total, err := s.repository.Page(ctx, KindProject, page, size)
	if err != nil {
		return nil, s.storeError(op, err)
	}

	result = &Page[ProjectView]{Items: make([]ProjectView, 0, len(entities)), Page: page, Size: size, Total: total}
	for _, e := range entities {
		p, ok := e.(*Project)
		if !ok {
			return nil, s.storeError(op, fmt.Errorf("unexpected %T in project page", e))
		}
		ids, err := s.repository.ResourceIDsByProject(ctx, p.ID)
		if err != nil {
			return nil, s.storeError(op, err)
		}
		result.Items = append(result.Items, *newProjectView(p, ids))
	}
	return result, nil
}

func (s *service) ListProjectIDs(ctx context.Context) (ids []string, err error) {
	const op = "list_project_ids"
	ctx, span := s.startSpan(ctx, "ListProjectIDs")
	defer func() { endSpan(span, err) }()

	raw, err := s.repository.ListIDs(ctx, KindProject)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return formatIDs(raw), nil
}

func (s *service) GetProject(ctx context.Context, id string) (view *ProjectView, err error) {
	const op = "get_project"
	ctx, span := s.startSpan(ctx, "GetProject", attribute.String("project.id", id))
	defer func() { endSpan(span, err) }()

	p, err := resolve[*Project](ctx, s.repository, op, KindProject, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.repository.ResourceIDsByProject(ctx, p.ID)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return newProjectView(p, ids), nil
}

func (s *service) CreateProject(ctx context.Context, name string) (id string, err error) {
	const op = "create_project"
	ctx, span := s.startSpan(ctx, "CreateProject")
	defer func() { endSpan(span, err) }()

	if err := ValidateName(name); err != nil {
		return "", newError(op, ErrInvalidName, fmt.Sprintf("%q", name))
	}

	now := s.now()
	p := &Project{Name: name, CreatedAt: now, UpdatedAt: now}
	newID, err := s.repository.Insert(ctx, p)
	if err != nil {
		return "", s.storeError(op, err)
	}

	s.publish(ctx, EventProjectCreated, KindProject, newID, name)
	return FormatID(newID), nil
}

func (s *service) RenameProject(ctx context.Context, id, newName string) (err error) {
	const op = "rename_project"
	ctx, span := s.startSpan(ctx, "RenameProject", attribute.String("project.id", id))
	defer func() { endSpan(span, err) }()

	return s.rename(ctx, op, KindProject, id, newName, EventProjectRenamed, func(e Entity, name string) {
		p := e.(*Project)
		p.Name = name
		p.UpdatedAt = s.now()
	})
}

func (s *service) DeleteProject(ctx context.Context, id string) (err error) {
	const op = "delete_project"
	ctx, span := s.startSpan(ctx, "DeleteProject", attribute.String("project.id", id))
	defer func() { endSpan(span, err) }()

	return s.delete(ctx, op, KindProject, id, EventProjectDeleted)
}

// rename validates newName, resolves the entity and persists the new name in
// one transaction.
func (s *service) rename(ctx context.Context, op string, kind Kind, id, newName string, typ EventType, apply func(Entity, string)) error {
	if err := ValidateName(newName); err != nil {
		return newError(op, ErrInvalidName, fmt.Sprintf("%q", newName))
	}
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
		apply(e, newName)
		return repo.Save(ctx, e)
	})
	if err != nil {
		return s.storeError(op, err)
	}

	s.publish(ctx, typ, kind, parsed, newName)
	return nil
}

// delete removes the row only. Owned rows and blobs are left in place.
func (s *service) delete(ctx context.Context, op string, kind Kind, id string, typ EventType) error {
	var deleted int64
	err := s.repository.Atomically(ctx, func(repo Repository) error {
		e, err := resolve[Entity](ctx, repo, op, kind, id)
		if err != nil {
			return err
		}
		deleted = e.EntityID()
		return repo.Delete(ctx, kind, deleted)
	})
	if err != nil {
		return s.storeError(op, err)
	}

	s.publish(ctx, typ, kind, deleted, "")
	return nil
}

// Storage information

func (s *service) GetStorageInfo(ctx context.Context) (info *StorageInfo, err error) {
	const op = "get_storage_info"
	ctx, span := s.startSpan(ctx, "GetStorageInfo")
	defer func() { endSpan(span, err) }()

	usage, err := s.blobStore.DiskUsage(ctx)
	if err != nil {
		s.logger.Error("failed to read disk usage", "err", err)
		return nil, wrapError(op, ErrIOFailure, "disk usage unavailable", err)
	}
	return &StorageInfo{UsedBytes: usage.Used, TotalBytes: usage.Total}, nil
}
