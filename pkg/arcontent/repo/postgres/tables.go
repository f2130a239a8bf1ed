package postgres

import (
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// table maps an entity kind to its columns. The id column is implicit: values
// excludes it, targets lists it first.
type table struct {
	name    string
	columns []string
	values  func(e arcontent.Entity) []interface{}
	targets func(e arcontent.Entity) []interface{}
}

var tables = map[arcontent.Kind]table{
	arcontent.KindProject: {
		name:    "projects",
		columns: []string{"name", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			p := e.(*arcontent.Project)
			return []interface{}{p.Name, p.CreatedAt, p.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			p := e.(*arcontent.Project)
			return []interface{}{&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt}
		},
	},
	arcontent.KindResource: {
		name: "resources",
		columns: []string{"project_id", "name", "thumbnail_id", "markers_id", "image_id", "sound_id", "video_id",
			"access_count", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			r := e.(*arcontent.Resource)
			return []interface{}{r.ProjectID, r.Name, r.ThumbnailID, r.MarkersID, r.ImageID, r.SoundID, r.VideoID,
				r.AccessCount, r.CreatedAt, r.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			r := e.(*arcontent.Resource)
			return []interface{}{&r.ID, &r.ProjectID, &r.Name, &r.ThumbnailID, &r.MarkersID, &r.ImageID, &r.SoundID, &r.VideoID,
				&r.AccessCount, &r.CreatedAt, &r.UpdatedAt}
		},
	},
	arcontent.KindMarkers: {
		name:    "marker_sets",
		columns: []string{"name", "marker1", "marker2", "marker3", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			m := e.(*arcontent.MarkerSet)
			return []interface{}{m.Name, string(m.Marker1), string(m.Marker2), string(m.Marker3), m.SizeBytes, m.CreatedAt, m.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			m := e.(*arcontent.MarkerSet)
			return []interface{}{&m.ID, &m.Name, &m.Marker1, &m.Marker2, &m.Marker3, &m.SizeBytes, &m.CreatedAt, &m.UpdatedAt}
		},
	},
	arcontent.KindImage: {
		name:    "images",
		columns: []string{"name", "locator", "mime_type", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.ImageAsset)
			return []interface{}{a.Name, string(a.Locator), a.MimeType, a.SizeBytes, a.CreatedAt, a.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.ImageAsset)
			return []interface{}{&a.ID, &a.Name, &a.Locator, &a.MimeType, &a.SizeBytes, &a.CreatedAt, &a.UpdatedAt}
		},
	},
	arcontent.KindSound: {
		name:    "sounds",
		columns: []string{"name", "locator", "mime_type", "size_bytes", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.SoundAsset)
			return []interface{}{a.Name, string(a.Locator), a.MimeType, a.SizeBytes, a.CreatedAt, a.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.SoundAsset)
			return []interface{}{&a.ID, &a.Name, &a.Locator, &a.MimeType, &a.SizeBytes, &a.CreatedAt, &a.UpdatedAt}
		},
	},
	arcontent.KindVideo: {
		name:    "videos",
		columns: []string{"name", "url", "created_at", "updated_at"},
		values: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.VideoAsset)
			return []interface{}{a.Name, a.URL, a.CreatedAt, a.UpdatedAt}
		},
		targets: func(e arcontent.Entity) []interface{} {
			a := e.(*arcontent.VideoAsset)
			return []interface{}{&a.ID, &a.Name, &a.URL, &a.CreatedAt, &a.UpdatedAt}
		},
	},
}
