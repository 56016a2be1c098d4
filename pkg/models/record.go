package models

import "time"

// Record is a persistable entity: a primary key plus a bag of named
// attributes. Root records and related records share this shape.
type Record struct {
	// KeyName is the name of the primary key attribute, usually "id".
	KeyName string
	// Key is the primary key value. Nil until the record has been persisted.
	Key any
	// Attrs holds the record's column values.
	Attrs map[string]any
	// Persisted reports whether the record exists in storage.
	Persisted bool

	CreatedAt time.Time
	UpdatedAt time.Time

	guarded map[string]struct{}
}

func NewRecord(keyName string) *Record {
	return &Record{
		KeyName: keyName,
		Attrs:   map[string]any{},
	}
}

// Guard marks attribute keys so Fill never assigns them.
func (r *Record) Guard(keys ...string) {
	if r.guarded == nil {
		r.guarded = make(map[string]struct{}, len(keys))
	}
	for _, k := range keys {
		r.guarded[k] = struct{}{}
	}
}

func (r *Record) IsGuarded(key string) bool {
	_, ok := r.guarded[key]
	return ok
}

// Fill mass-assigns the given attributes onto the record, skipping guarded
// keys and the primary key attribute.
func (r *Record) Fill(attrs map[string]any) {
	if r.Attrs == nil {
		r.Attrs = make(map[string]any, len(attrs))
	}
	for k, v := range attrs {
		if k == r.KeyName || r.IsGuarded(k) {
			continue
		}
		r.Attrs[k] = v
	}
}

func (r *Record) Get(key string) any {
	return r.Attrs[key]
}

func (r *Record) Set(key string, value any) {
	if r.Attrs == nil {
		r.Attrs = map[string]any{}
	}
	r.Attrs[key] = value
}
