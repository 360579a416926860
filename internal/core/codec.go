package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// collectionSchemaVersion is written into every persisted collection envelope.
const collectionSchemaVersion = 1

type collectionEnvelope struct {
	Version int               `json:"version"`
	Items   []json.RawMessage `json:"items"`
}

func encodeCollection[T any](items []T) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		raws = append(raws, b)
	}
	return json.Marshal(collectionEnvelope{Version: collectionSchemaVersion, Items: raws})
}

// decodeCollection accepts both the versioned envelope and the bare JSON array
// written by the browser build. Elements that fail to decode, or that coerce
// rejects, are dropped and counted instead of failing the whole collection.
func decodeCollection[T any](data []byte, coerce func(T) (T, bool)) ([]T, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, 0, nil
	}
	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, 0, fmt.Errorf("decode legacy collection: %w", err)
		}
	case '{':
		var env collectionEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, 0, fmt.Errorf("decode collection envelope: %w", err)
		}
		if env.Version < 1 || env.Version > collectionSchemaVersion {
			return nil, 0, fmt.Errorf("unsupported collection version %d", env.Version)
		}
		raws = env.Items
	default:
		return nil, 0, fmt.Errorf("unexpected collection payload starting with %q", trimmed[0])
	}

	items := make([]T, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			dropped++
			continue
		}
		if coerce != nil {
			var ok bool
			if item, ok = coerce(item); !ok {
				dropped++
				continue
			}
		}
		items = append(items, item)
	}
	return items, dropped, nil
}

func coerceSubject(s Subject) (Subject, bool) {
	s = s.Normalized()
	return s, s != ""
}

func coerceCourse(c Course) (Course, bool) {
	if c.Subjects == nil {
		c.Subjects = []string{}
	}
	return c, c.Name != ""
}

func coerceBatch(b Batch) (Batch, bool) {
	return b, b.Name != ""
}

func coerceStudent(s Student) (Student, bool) {
	return s, s.Name != ""
}
