// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"fmt"

	"github.com/bvk/triarb/objstore"
	"github.com/bvk/triarb/subcmds/cmdutil"
)

func newObjstore(ctx context.Context, f *cmdutil.ConfigFlags) (*objstore.Client, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := objstore.New(ctx, cfg.ObjstoreOptions())
	if err != nil {
		return nil, fmt.Errorf("could not create object store client: %w", err)
	}
	return client, nil
}
