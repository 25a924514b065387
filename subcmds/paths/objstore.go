// Copyright (c) 2025 BVK Chaitanya

package paths

import (
	"context"
	"fmt"
	"io"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/objstore"
	"github.com/bvk/triarb/pathdb"
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

func uploadPaths(ctx context.Context, client *objstore.Client, key string, paths []*gobs.TriangularPath) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(pathdb.Encode(pw, paths))
	}()
	if err := client.Upload(ctx, key, pr); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("could not upload paths to s3://%s/%s: %w", client.Bucket(), key, err)
	}
	return nil
}

func downloadPaths(ctx context.Context, client *objstore.Client, key string) ([]*gobs.TriangularPath, error) {
	obj, err := client.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not open s3://%s/%s: %w", client.Bucket(), key, err)
	}
	defer obj.Close()

	paths, err := pathdb.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("could not read paths from s3://%s/%s: %w", client.Bucket(), key, err)
	}
	return paths, nil
}
