// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bvk/triarb/kvutil"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBPath is the http path where a running detector serves its database.
const DBPath = "/db"

type DBFlags struct {
	ConfigFlags
	ClientFlags

	remote bool

	fromBackup string

	backupBefore string
	backupAfter  string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	f.ConfigFlags.SetFlags(fset)
	f.ClientFlags.SetFlags(fset)

	fset.BoolVar(&f.remote, "remote", false, "use the database of a running detector over http")
	fset.StringVar(&f.fromBackup, "from-backup", "", "Path to a database backup file")

	fset.StringVar(&f.backupBefore, "backup-before", "", "Path to a file to receive db backup before cmd is run")
	fset.StringVar(&f.backupAfter, "backup-after", "", "Path to a file to receive db backup after cmd is run")
}

// IsGoodKey returns true for clean, absolute keys.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

// DatabaseDir returns the badger directory under the data directory.
func DatabaseDir(dataDir string) string {
	return filepath.Join(dataDir, "db")
}

// OpenBadger opens the badger database in the directory.
func OpenBadger(dir string) (kv.Database, io.Closer, error) {
	bopts := badger.DefaultOptions(dir)
	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open the database at %q: %w", dir, err)
	}
	return kvbadger.New(bdb, IsGoodKey), bdb, nil
}

func (f *DBFlags) dbCloser(db kv.Database, c io.Closer) func() {
	return func() {
		if len(f.backupAfter) != 0 {
			if err := kvutil.BackupDB(context.Background(), db, f.backupAfter); err != nil {
				slog.Error("could not take db backup after it is used (ignored)", "file", f.backupAfter, "err", err)
			}
		}
		if c != nil {
			c.Close()
		}
	}
}

// IsRemoteDatabase returns true if target database is the database of a
// running detector.
func (f *DBFlags) IsRemoteDatabase() bool {
	return f.remote && f.fromBackup == ""
}

// GetDatabase opens the target database. Databases restored from a backup
// file are in-memory, so changes to them are lost unless -backup-after is
// used.
func (f *DBFlags) GetDatabase(ctx context.Context) (db kv.Database, closer func(), status error) {
	defer func() {
		if status == nil && len(f.backupBefore) != 0 {
			if err := kvutil.BackupDB(ctx, db, f.backupBefore); err != nil {
				closer()
				db, closer, status = nil, nil, fmt.Errorf("could not take a db backup before it is used: %w", err)
			}
		}
	}()

	if len(f.fromBackup) != 0 {
		fp, err := os.Open(f.fromBackup)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open file %q: %w", f.fromBackup, err)
		}
		defer fp.Close()

		db := kvmemdb.New()
		if err := kvutil.Import(ctx, bufio.NewReader(fp), db, 0); err != nil {
			return nil, nil, fmt.Errorf("could not restore in-memory db from backup: %w", err)
		}
		return db, f.dbCloser(db, nil), nil
	}

	if f.remote {
		addrURL := f.ClientFlags.AddressURL()
		addrURL.Path = path.Join(addrURL.Path, DBPath)
		db := kvhttp.New(addrURL, f.ClientFlags.HttpClient())
		return db, f.dbCloser(db, nil), nil
	}

	dataDir, err := f.ConfigFlags.DataDir()
	if err != nil {
		return nil, nil, err
	}
	db, c, err := OpenBadger(DatabaseDir(dataDir))
	if err != nil {
		return nil, nil, err
	}
	return db, f.dbCloser(db, c), nil
}
