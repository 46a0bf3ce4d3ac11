package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sitepack/internal/deploy"
)

func deployCmd(g *globals) *cobra.Command {
	var (
		bucket      string
		prefix      string
		region      string
		concurrency int
		dryRun      bool
		rebuild     bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload the publish directory to S3",
		Long: `Upload the publish directory to an S3 bucket.

Hashed bundles are uploaded as immutable; pages, the manifest and images
are revalidated on every request. Credentials come from the standard
AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.

Examples:
  sitepack deploy --bucket=www.example.com
  sitepack deploy --build --prefix=preview/ --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Deploy.Bucket = bucket
			}
			if prefix != "" {
				cfg.Deploy.Prefix = prefix
			}
			if region != "" {
				cfg.Deploy.Region = region
			}
			if concurrency > 0 {
				cfg.Deploy.Concurrency = concurrency
			}

			if rebuild {
				if err := runBuild(cmd.Context(), cfg, log); err != nil {
					return err
				}
			}

			publisher, err := deploy.New(deploy.NewS3Client(cfg.Deploy.Region), deploy.Options{
				Bucket:      cfg.Deploy.Bucket,
				Prefix:      cfg.Deploy.Prefix,
				Concurrency: cfg.Deploy.Concurrency,
				DryRun:      dryRun,
				Logger:      log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := publisher.Publish(ctx, cfg.PublishPath())
			if err != nil {
				return err
			}

			verb := "Uploaded"
			if dryRun {
				verb = "Would upload"
			}
			success("%s %d files (%s) to s3://%s/%s", verb, len(report.Objects),
				humanize.Bytes(uint64(report.Bytes)), cfg.Deploy.Bucket, cfg.Deploy.Prefix)
			if g.debug {
				for _, o := range report.Objects {
					info("%-40s %s", o.Key, o.CacheControl)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (default from sitepack.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default AWS_REGION)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel uploads")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be uploaded")
	cmd.Flags().BoolVar(&rebuild, "build", false, "Build before uploading")

	return cmd
}
