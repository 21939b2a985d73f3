package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Repo is a typed view over a Collection. T must marshal to a JSON object
// with an "id" key.
type Repo[T any] struct {
	c *Collection
}

// NewRepo binds a typed view to c.
func NewRepo[T any](c *Collection) Repo[T] {
	return Repo[T]{c: c}
}

// Collection exposes the untyped collection behind the repo.
func (r Repo[T]) Collection() *Collection {
	return r.c
}

func (r Repo[T]) Find(ctx context.Context, q Query) ([]T, error) {
	docs, err := r.c.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := fromDoc[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindOne returns nil, nil when nothing matches.
func (r Repo[T]) FindOne(ctx context.Context, q Query) (*T, error) {
	d, err := r.c.FindOne(ctx, q)
	if err != nil || d == nil {
		return nil, err
	}
	v, err := fromDoc[T](d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Get is FindOne by id.
func (r Repo[T]) Get(ctx context.Context, id string) (*T, error) {
	return r.FindOne(ctx, Query{"id": id})
}

func (r Repo[T]) Insert(ctx context.Context, v T) (T, error) {
	d, err := toDoc(v)
	if err != nil {
		return v, err
	}
	stored, err := r.c.Insert(ctx, d)
	if err != nil {
		return v, err
	}
	return fromDoc[T](stored)
}

// Upsert writes every field of v under id: insert if absent, otherwise a
// whole-field overwrite of the stored document.
func (r Repo[T]) Upsert(ctx context.Context, id string, v T) (UpdateResult, error) {
	d, err := toDoc(v)
	if err != nil {
		return UpdateResult{}, err
	}
	d["id"] = id
	return r.c.Update(ctx, Query{"id": id}, d, UpdateOptions{Upsert: true})
}

// Patch updates selected fields of the documents matching q.
func (r Repo[T]) Patch(ctx context.Context, q Query, patch Doc, opts UpdateOptions) (UpdateResult, error) {
	return r.c.Update(ctx, q, patch, opts)
}

func toDoc(v any) (Doc, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	d, err := decodeDoc(b)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return d, nil
}

func fromDoc[T any](d Doc) (T, error) {
	var v T
	b, err := json.Marshal(d)
	if err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}
