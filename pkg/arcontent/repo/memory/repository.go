package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

type state struct {
	tables map[arcontent.Kind]map[int64]arcontent.Entity
}

func newState() *state {
	st := &state{
		tables: make(map[arcontent.Kind]map[int64]arcontent.Entity),
	}
	for _, kind := range arcontent.Kinds() {
		st.tables[kind] = make(map[int64]arcontent.Entity)
	}
	return st
}

func (st *state) clone() *state {
	out := &state{
		tables: make(map[arcontent.Kind]map[int64]arcontent.Entity, len(st.tables)),
	}
	for kind, rows := range st.tables {
		copied := make(map[int64]arcontent.Entity, len(rows))
		for id, e := range rows {
			copied[id] = copyEntity(e)
		}
		out.tables[kind] = copied
	}
	return out
}

// Repository implements arcontent.Repository using in-memory storage.
//
// Ids are assigned per kind starting at 1 and are never reused, even when the
// transaction that took them rolls back. Atomically runs against a copy of the
// whole state and swaps it in on success; writers are serialized.
//
// Every transaction copies all rows, so the repository is meant for tests and
// development only.
type Repository struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
	// seq lives outside the snapshot and is shared with transaction copies.
	// It is only touched with the root txMu held.
	seq map[arcontent.Kind]int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{st: newState(), seq: make(map[arcontent.Kind]int64)}
}

var _ arcontent.Repository = (*Repository)(nil)

func (r *Repository) write(fn func(st *state) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.st)
}

func (r *Repository) rows(kind arcontent.Kind) (map[int64]arcontent.Entity, error) {
	rows, ok := r.st.tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return rows, nil
}

func (r *Repository) Insert(ctx context.Context, e arcontent.Entity) (int64, error) {
	var id int64
	err := r.write(func(st *state) error {
		rows, err := r.rows(e.Kind())
		if err != nil {
			return err
		}
		r.seq[e.Kind()]++
		id = r.seq[e.Kind()]
		e.SetEntityID(id)
		// Store a copy to avoid external modifications
		rows[id] = copyEntity(e)
		return nil
	})
	return id, err
}

func (r *Repository) Get(ctx context.Context, kind arcontent.Kind, id int64) (arcontent.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.rows(kind)
	if err != nil {
		return nil, err
	}
	e, ok := rows[id]
	if !ok {
		return nil, arcontent.ErrNotFound
	}
	return copyEntity(e), nil
}

func (r *Repository) Save(ctx context.Context, e arcontent.Entity) error {
	return r.write(func(st *state) error {
		rows, err := r.rows(e.Kind())
		if err != nil {
			return err
		}
		if _, ok := rows[e.EntityID()]; !ok {
			return arcontent.ErrNotFound
		}
		rows[e.EntityID()] = copyEntity(e)
		return nil
	})
}

// Delete removes a row. Deleting a project detaches the resources it owned.
func (r *Repository) Delete(ctx context.Context, kind arcontent.Kind, id int64) error {
	return r.write(func(st *state) error {
		rows, err := r.rows(kind)
		if err != nil {
			return err
		}
		if _, ok := rows[id]; !ok {
			return arcontent.ErrNotFound
		}
		delete(rows, id)
		if kind == arcontent.KindProject {
			for _, e := range st.tables[arcontent.KindResource] {
				res := e.(*arcontent.Resource)
				if res.ProjectID != nil && *res.ProjectID == id {
					res.ProjectID = nil
				}
			}
		}
		return nil
	})
}

func (r *Repository) ListIDs(ctx context.Context, kind arcontent.Kind) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.rows(kind)
	if err != nil {
		return nil, err
	}
	return sortedIDs(rows), nil
}

func (r *Repository) Page(ctx context.Context, kind arcontent.Kind, page, size int) ([]arcontent.Entity, int64, error) {
	if page < 0 || size < 1 {
		return nil, 0, fmt.Errorf("invalid page %d/%d", page, size)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.rows(kind)
	if err != nil {
		return nil, 0, err
	}
	ids := sortedIDs(rows)
	total := int64(len(ids))

	start := page * size
	if start >= len(ids) {
		return []arcontent.Entity{}, total, nil
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}

	result := make([]arcontent.Entity, 0, end-start)
	for _, id := range ids[start:end] {
		result = append(result, copyEntity(rows[id]))
	}
	return result, total, nil
}

func (r *Repository) ResourceIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, e := range r.st.tables[arcontent.KindResource] {
		res := e.(*arcontent.Resource)
		if res.ProjectID != nil && *res.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Atomically runs fn against a private copy of the state. The copy replaces
// the live state only when fn succeeds.
func (r *Repository) Atomically(ctx context.Context, fn func(repo arcontent.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	tx := &Repository{st: r.st.clone(), seq: r.seq}
	r.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.st = tx.st
	r.mu.Unlock()
	return nil
}

func sortedIDs(rows map[int64]arcontent.Entity) []int64 {
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyEntity(e arcontent.Entity) arcontent.Entity {
	switch v := e.(type) {
	case *arcontent.Project:
		c := *v
		return &c
	case *arcontent.Resource:
		c := *v
		c.ProjectID = copyID(v.ProjectID)
		c.ImageID = copyID(v.ImageID)
		c.SoundID = copyID(v.SoundID)
		c.VideoID = copyID(v.VideoID)
		return &c
	case *arcontent.MarkerSet:
		c := *v
		return &c
	case *arcontent.ImageAsset:
		c := *v
		return &c
	case *arcontent.SoundAsset:
		c := *v
		return &c
	case *arcontent.VideoAsset:
		c := *v
		return &c
	}
	return e
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
