// Copyright (c) 2025 BVK Chaitanya

// Package pathdb stores enumerated triangular paths in a key-value database
// and in JSON files.
//
// Every path is saved under its sequence number, so a range scan returns
// paths in the enumeration order. Loaded paths are verified with
// pathgen.CheckClosure because path files can be edited or produced by other
// tools.
package pathdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/kvutil"
	"github.com/bvk/triarb/pathgen"
	"github.com/bvkgo/kv"
)

const (
	Keyspace = "/paths"

	MetaKey = "/paths/meta"
)

// numOpsPerTx limits the number of writes per transaction.
const numOpsPerTx = 500

var seqKeyspace = path.Join(Keyspace, "seq")

func pathKey(seq int) string {
	return path.Join(seqKeyspace, fmt.Sprintf("%010d", seq))
}

// Save replaces all paths in the database. Meta is updated with the number of
// paths and the current time when its fields are unset.
func Save(ctx context.Context, db kv.Database, paths []*gobs.TriangularPath, meta *gobs.PathsMeta) error {
	if meta == nil {
		meta = new(gobs.PathsMeta)
	}
	if meta.GeneratedAt == 0 {
		meta.GeneratedAt = time.Now().Unix()
	}
	meta.NumPaths = len(paths)

	begin, end := kvutil.PathRange(seqKeyspace)
	if err := kvutil.DeleteRangeDB(ctx, db, begin, end, numOpsPerTx); err != nil {
		return fmt.Errorf("could not delete old paths: %w", err)
	}

	for i := 0; i < len(paths); i += numOpsPerTx {
		batch := paths[i:min(i+numOpsPerTx, len(paths))]
		save := func(ctx context.Context, rw kv.ReadWriter) error {
			for _, p := range batch {
				if err := kvutil.Set(ctx, rw, pathKey(p.SequenceNumber), p); err != nil {
					return err
				}
			}
			return nil
		}
		if err := kv.WithReadWriter(ctx, db, save); err != nil {
			return fmt.Errorf("could not save paths: %w", err)
		}
	}

	if err := kvutil.SetDB(ctx, db, MetaKey, meta); err != nil {
		return fmt.Errorf("could not save paths metadata: %w", err)
	}
	return nil
}

// Load returns all paths from the database in sequence number order.
// Returns os.ErrNotExist if paths were never saved.
func Load(ctx context.Context, db kv.Database) ([]*gobs.TriangularPath, *gobs.PathsMeta, error) {
	meta, err := kvutil.GetDB[gobs.PathsMeta](ctx, db, MetaKey)
	if err != nil {
		return nil, nil, err
	}

	var paths []*gobs.TriangularPath
	collect := func(ctx context.Context, r kv.Reader, key string, p *gobs.TriangularPath) error {
		if err := pathgen.CheckClosure(p); err != nil {
			return fmt.Errorf("path at key %q: %w", key, err)
		}
		paths = append(paths, p)
		return nil
	}
	begin, end := kvutil.PathRange(seqKeyspace)
	if err := kvutil.AscendDB(ctx, db, begin, end, collect); err != nil {
		return nil, nil, err
	}
	if len(paths) != meta.NumPaths {
		return nil, nil, fmt.Errorf("found %d paths where metadata says %d: %w", len(paths), meta.NumPaths, os.ErrInvalid)
	}
	return paths, meta, nil
}

// Get returns the path with the sequence number.
func Get(ctx context.Context, db kv.Database, seq int) (*gobs.TriangularPath, error) {
	return kvutil.GetDB[gobs.TriangularPath](ctx, db, pathKey(seq))
}

// ReadFile reads a JSON array of paths.
func ReadFile(file string) ([]*gobs.TriangularPath, error) {
	fp, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	paths, err := Decode(fp)
	if err != nil {
		return nil, fmt.Errorf("could not read paths file %q: %w", file, err)
	}
	return paths, nil
}

// Decode reads a JSON array of paths and verifies them.
func Decode(r io.Reader) ([]*gobs.TriangularPath, error) {
	var paths []*gobs.TriangularPath
	if err := json.NewDecoder(r).Decode(&paths); err != nil {
		return nil, fmt.Errorf("could not decode paths: %w", err)
	}
	for i, p := range paths {
		if p == nil {
			return nil, fmt.Errorf("path %d is null: %w", i, os.ErrInvalid)
		}
		if err := pathgen.CheckClosure(p); err != nil {
			return nil, fmt.Errorf("path %d (n=%d): %w", i, p.SequenceNumber, err)
		}
	}
	if err := checkSequence(paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// Encode writes the paths as an indented JSON array.
func Encode(w io.Writer, paths []*gobs.TriangularPath) error {
	if paths == nil {
		paths = []*gobs.TriangularPath{}
	}
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func checkSequence(paths []*gobs.TriangularPath) error {
	seen := make(map[int]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p.SequenceNumber]; ok {
			return fmt.Errorf("duplicate sequence number %d: %w", p.SequenceNumber, os.ErrInvalid)
		}
		seen[p.SequenceNumber] = struct{}{}
	}
	return nil
}

// WriteFile writes the paths as a JSON array. File is replaced atomically.
func WriteFile(file string, paths []*gobs.TriangularPath) (status error) {
	abspath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("could not determine absolute path: %w", err)
	}
	fp, err := os.CreateTemp(filepath.Dir(abspath), ".paths*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer func() {
		fp.Close()
		if status != nil {
			os.Remove(fp.Name())
		}
	}()

	if err := Encode(fp, paths); err != nil {
		return err
	}
	if err := fp.Sync(); err != nil {
		return fmt.Errorf("could not sync the output file: %w", err)
	}
	if err := fp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	if err := os.Rename(fp.Name(), abspath); err != nil {
		return fmt.Errorf("could not rename temp file to %q: %w", abspath, err)
	}
	return nil
}
