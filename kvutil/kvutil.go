// Copyright (c) 2023 BVK Chaitanya

// Package kvutil has helpers to store gob-encoded values in a key-value
// database.
package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/bvkgo/kv"
)

func Get[T any](ctx context.Context, g kv.Getter, key string) (*T, error) {
	value, err := g.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not Get from %q: %w", key, err)
	}
	gv := new(T)
	if err := gob.NewDecoder(value).Decode(gv); err != nil {
		return nil, fmt.Errorf("could not gob-decode value at key %q: %w", key, err)
	}
	return gv, nil
}

func Set[T any](ctx context.Context, s kv.Setter, key string, value *T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("could not gob-encode value for key %q: %w", key, err)
	}
	return s.Set(ctx, key, &buf)
}

func GetDB[T any](ctx context.Context, db kv.Database, key string) (value *T, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		value, err = Get[T](ctx, r, key)
		return err
	})
	return value, err
}

func SetDB[T any](ctx context.Context, db kv.Database, key string, value *T) error {
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return Set[T](ctx, rw, key, value)
	})
}

type IterFunc[T any] func(context.Context, kv.Reader, string, *T) error

// Ascend decodes every value in the range in key order and calls fn on it.
func Ascend[T any](ctx context.Context, r kv.Reader, begin, end string, fn IterFunc[T]) error {
	it, err := r.Ascend(ctx, begin, end)
	if err != nil {
		return err
	}
	defer kv.Close(it)

	for k, v, err := it.Fetch(ctx, false); err == nil; k, v, err = it.Fetch(ctx, true) {
		gv := new(T)
		if err := gob.NewDecoder(v).Decode(gv); err != nil {
			return fmt.Errorf("could not decode value at key %q: %w", k, err)
		}
		if err := fn(ctx, r, k, gv); err != nil {
			return err
		}
	}

	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not complete ascend: %w", err)
	}
	return nil
}

func AscendDB[T any](ctx context.Context, db kv.Database, begin, end string, fn IterFunc[T]) error {
	return kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		return Ascend[T](ctx, r, begin, end, fn)
	})
}

// PathRange returns the key range for all keys under the directory.
func PathRange(dir string) (begin string, end string) {
	dir = path.Clean(dir)
	if dir == "/" {
		return "", ""
	}
	begin = dir + string('/')
	end = dir + string('/'+1)
	return begin, end
}

// DeleteRange deletes up to limit keys in the range and returns the number of
// deleted keys. Zero or negative limit deletes all keys.
func DeleteRange(ctx context.Context, rw kv.ReadWriter, begin, end string, limit int) (int, error) {
	it, err := rw.Ascend(ctx, begin, end)
	if err != nil {
		return 0, fmt.Errorf("could not create ascending iterator: %w", err)
	}
	defer kv.Close(it)

	// Deleting while iterating is not supported by all backends, so keys are
	// collected first.
	var keys []string
	for k, _, err := it.Fetch(ctx, false); err == nil; k, _, err = it.Fetch(ctx, true) {
		keys = append(keys, k)
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("iterator fetch has failed: %w", err)
	}
	for i, k := range keys {
		if err := rw.Delete(ctx, k); err != nil {
			return i, fmt.Errorf("could not delete key %q: %w", k, err)
		}
	}
	return len(keys), nil
}

// DeleteRangeDB deletes all keys in the range using multiple transactions
// with up to nops deletes each.
func DeleteRangeDB(ctx context.Context, db kv.Database, begin, end string, nops int) error {
	if nops <= 0 {
		nops = 100
	}
	for {
		var n int
		err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) (err error) {
			n, err = DeleteRange(ctx, rw, begin, end, nops)
			return err
		})
		if err != nil {
			return err
		}
		if n < nops {
			return nil
		}
	}
}

// Count returns the number of keys in the range.
func Count(ctx context.Context, r kv.Reader, begin, end string) (int, error) {
	it, err := r.Ascend(ctx, begin, end)
	if err != nil {
		return 0, err
	}
	defer kv.Close(it)

	n := 0
	for _, _, err := it.Fetch(ctx, false); err == nil; _, _, err = it.Fetch(ctx, true) {
		n++
	}
	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("could not complete count: %w", err)
	}
	return n, nil
}
