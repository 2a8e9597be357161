package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/admission-lists/internal/app"
	"github.com/garyellow/admission-lists/internal/artifact"
	"github.com/garyellow/admission-lists/internal/timeouts"
)

func (c *cli) newPublishCmd() *cobra.Command {
	var (
		path   string
		key    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the mapping artifact to R2",
		Long: `Compresses the artifact with zstd and uploads it to the configured R2
bucket, overwriting the current object. Artifacts of stored runs are also
archived once under runs/<run id>.json.zst next to the key.

Requires IDMAP_R2_ACCOUNT_ID, IDMAP_R2_ACCESS_KEY_ID, IDMAP_R2_SECRET_ACCESS_KEY
and IDMAP_R2_BUCKET_NAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.fail(cmd, c.runPublish(cmd,
				firstNonEmpty(path, c.cfg.ArtifactPath),
				firstNonEmpty(key, c.cfg.R2ArtifactKey),
				output))
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "artifact", "", "Artifact to upload (default IDMAP_ARTIFACT_PATH)")
	f.StringVar(&key, "key", "", "Object key (default IDMAP_R2_ARTIFACT_KEY)")
	f.StringVar(&output, "output", "text", "Output format: text or json")
	return cmd
}

func (c *cli) runPublish(cmd *cobra.Command, path, key, output string) error {
	a, err := artifact.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.R2Operation)
	defer cancel()

	store, err := app.NewObjectStore(ctx, c.cfg)
	if err != nil {
		return err
	}
	res, err := artifact.Publish(ctx, store, key, a)
	if err != nil {
		return err
	}

	c.log.WithFields(map[string]any{
		"bucket":      store.Bucket(),
		"key":         res.Key,
		"etag":        res.ETag,
		"archive_key": res.ArchiveKey,
		"archived":    res.Archived,
		"bytes":       res.Size,
		"programs":    len(a.Programs),
	}).Info("Artifact published")

	w := cmd.OutOrStdout()
	if output == "json" {
		return writeJSON(w, res)
	}
	_, _ = fmt.Fprintf(w, "☁️  Published %d programs to r2://%s/%s (%d bytes, etag %s)\n",
		len(a.Programs), store.Bucket(), res.Key, res.Size, res.ETag)
	if res.ArchiveKey != "" {
		state := "already archived"
		if res.Archived {
			state = "archived"
		}
		_, _ = fmt.Fprintf(w, "🗃️  %s as %s\n", state, res.ArchiveKey)
	}
	return nil
}
