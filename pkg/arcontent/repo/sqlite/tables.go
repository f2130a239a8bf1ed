package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps an entity kind to its columns. The id column is implicit: values
// excludes it, scan reads it first. Timestamps are stored as unix millis.
type table struct {
	name    string
	columns []string
	values  func(e arcontent.Entity) []any
	scan    func(row scanner) (arcontent.Entity, error)
}

func lookup(kind arcontent.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown kind %q", kind)
	}
	return t, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func fromNullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

var tables = map[arcontent.Kind]table{
	arcontent.KindProject: {
		name:    "projects",
		columns: []string{"name", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			p := e.(*arcontent.Project)
			return []any{p.Name, toMillis(p.CreatedAt), toMillis(p.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				p                    arcontent.Project
				createdAt, updatedAt int64
			)
			if err := row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			p.CreatedAt, p.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &p, nil
		},
	},
	arcontent.KindResource: {
		name: "resources",
		columns: []string{"project_id", "name", "thumbnail_id", "markers_id", "image_id", "sound_id", "video_id",
			"access_count", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			r := e.(*arcontent.Resource)
			return []any{nullableID(r.ProjectID), r.Name, r.ThumbnailID, r.MarkersID,
				nullableID(r.ImageID), nullableID(r.SoundID), nullableID(r.VideoID),
				r.AccessCount, toMillis(r.CreatedAt), toMillis(r.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				r                                  arcontent.Resource
				projectID, imageID, soundID, vidID sql.NullInt64
				createdAt, updatedAt               int64
			)
			if err := row.Scan(&r.ID, &projectID, &r.Name, &r.ThumbnailID, &r.MarkersID, &imageID, &soundID, &vidID,
				&r.AccessCount, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			r.ProjectID = fromNullable(projectID)
			r.ImageID = fromNullable(imageID)
			r.SoundID = fromNullable(soundID)
			r.VideoID = fromNullable(vidID)
			r.CreatedAt, r.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &r, nil
		},
	},
	arcontent.KindMarkers: {
		name:    "marker_sets",
		columns: []string{"name", "marker1", "marker2", "marker3", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			m := e.(*arcontent.MarkerSet)
			return []any{m.Name, string(m.Marker1), string(m.Marker2), string(m.Marker3), m.SizeBytes,
				toMillis(m.CreatedAt), toMillis(m.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				m                    arcontent.MarkerSet
				m1, m2, m3           string
				createdAt, updatedAt int64
			)
			if err := row.Scan(&m.ID, &m.Name, &m1, &m2, &m3, &m.SizeBytes, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			m.Marker1, m.Marker2, m.Marker3 = arcontent.Locator(m1), arcontent.Locator(m2), arcontent.Locator(m3)
			m.CreatedAt, m.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &m, nil
		},
	},
	arcontent.KindImage: {
		name:    "images",
		columns: []string{"name", "locator", "mime_type", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			a := e.(*arcontent.ImageAsset)
			return []any{a.Name, string(a.Locator), a.MimeType, a.SizeBytes, toMillis(a.CreatedAt), toMillis(a.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				a                    arcontent.ImageAsset
				loc                  string
				createdAt, updatedAt int64
			)
			if err := row.Scan(&a.ID, &a.Name, &loc, &a.MimeType, &a.SizeBytes, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			a.Locator = arcontent.Locator(loc)
			a.CreatedAt, a.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &a, nil
		},
	},
	arcontent.KindSound: {
		name:    "sounds",
		columns: []string{"name", "locator", "mime_type", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			a := e.(*arcontent.SoundAsset)
			return []any{a.Name, string(a.Locator), a.MimeType, a.SizeBytes, toMillis(a.CreatedAt), toMillis(a.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				a                    arcontent.SoundAsset
				loc                  string
				createdAt, updatedAt int64
			)
			if err := row.Scan(&a.ID, &a.Name, &loc, &a.MimeType, &a.SizeBytes, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			a.Locator = arcontent.Locator(loc)
			a.CreatedAt, a.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &a, nil
		},
	},
	arcontent.KindVideo: {
		name:    "videos",
		columns: []string{"name", "url", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []any {
			a := e.(*arcontent.VideoAsset)
			return []any{a.Name, a.URL, toMillis(a.CreatedAt), toMillis(a.UpdatedAt)}
		},
		scan: func(row scanner) (arcontent.Entity, error) {
			var (
				a                    arcontent.VideoAsset
				createdAt, updatedAt int64
			)
			if err := row.Scan(&a.ID, &a.Name, &a.URL, &createdAt, &updatedAt); err != nil {
				return nil, err
			}
			a.CreatedAt, a.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
			return &a, nil
		},
	},
}
