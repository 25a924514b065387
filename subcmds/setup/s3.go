// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bvk/triarb/config"
	"github.com/bvk/triarb/objstore"
	"github.com/bvk/triarb/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type S3 struct {
	cmdutil.ConfigFlags

	skipTesting bool

	endpoint       string
	region         string
	bucket         string
	accessKey      string
	secretKey      string
	forcePathStyle bool
}

func (c *S3) Purpose() string {
	return "Configures the S3 compatible object store for backups"
}

func (c *S3) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("s3", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.StringVar(&c.endpoint, "endpoint", "", "custom endpoint url for S3 compatible services")
	fset.StringVar(&c.region, "region", "us-east-1", "bucket region")
	fset.StringVar(&c.bucket, "bucket", "", "bucket name")
	fset.StringVar(&c.accessKey, "access-key", "", "access key id")
	fset.StringVar(&c.secretKey, "secret-key", "", "secret access key")
	fset.BoolVar(&c.forcePathStyle, "force-path-style", false, "when true, uses path style bucket addressing")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "s3", fset, cli.CmdFunc(c.run)
}

func (c *S3) Description() string {
	return `

Command "s3" saves the object store parameters in the secrets.env file under
the data directory. Object store is used by the "db backup", "db restore",
"paths export" and "paths import" commands with the -s3-key flag.

When access keys are not given, default AWS credential chain is used.

`
}

func (c *S3) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}
	dataDir, err := c.ConfigFlags.DataDir()
	if err != nil {
		return err
	}

	opts := &objstore.Options{
		Endpoint:       c.endpoint,
		Region:         c.region,
		Bucket:         c.bucket,
		AccessKey:      c.accessKey,
		SecretKey:      c.secretKey,
		ForcePathStyle: c.forcePathStyle,
	}
	client, err := objstore.New(ctx, opts)
	if err != nil {
		return err
	}

	if !c.skipTesting {
		key := "triarb/setup-test.txt"
		if err := client.Upload(ctx, key, strings.NewReader("Test object from S3 config setup; please ignore.\n")); err != nil {
			return fmt.Errorf("could not upload test object: %w", err)
		}
		fmt.Fprintf(cli.Stdout(ctx), "uploaded s3://%s/%s\n", client.Bucket(), key)
	}

	vars := map[string]string{
		"S3_ENDPOINT":         c.endpoint,
		"S3_REGION":           c.region,
		"S3_BUCKET":           c.bucket,
		"S3_ACCESS_KEY":       c.accessKey,
		"S3_SECRET_KEY":       c.secretKey,
		"S3_FORCE_PATH_STYLE": strconv.FormatBool(c.forcePathStyle),
	}
	return config.UpdateSecrets(filepath.Join(dataDir, config.SecretsFileName), vars)
}
