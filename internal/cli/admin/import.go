package admin

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsgrid/triagekit/internal/config"
	"github.com/opsgrid/triagekit/internal/database"
	"github.com/opsgrid/triagekit/internal/metrics"
	"github.com/opsgrid/triagekit/internal/repository"
	"github.com/opsgrid/triagekit/internal/service"
	"github.com/opsgrid/triagekit/internal/storage"
)

// ImportCmd returns the import command, which bulk-loads documents from an
// S3-compatible bucket into memory.
func ImportCmd() *cobra.Command {
	var (
		prefix     string
		sourceType string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import knowledge documents from S3 into memory",
		Long:  "Reads every object under the given prefix in the configured S3 bucket and indexes it as retrievable knowledge.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), prefix, sourceType)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only import objects under this key prefix")
	cmd.Flags().StringVar(&sourceType, "source-type", "postmortem", "Source type to record for imported documents (sop, postmortem, note)")

	return cmd
}

func runImport(ctx context.Context, prefix, sourceType string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return fmt.Errorf("S3 is not configured (TRIAGE_S3_ENDPOINT, TRIAGE_S3_ACCESS_KEY_ID, TRIAGE_S3_SECRET_ACCESS_KEY)")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	embedder := service.NewHashEmbedder(cfg.EmbeddingDimensions)
	chunkCfg := service.ChunkConfig{MaxChars: cfg.ChunkMaxChars, Overlap: cfg.ChunkOverlap}
	memorySvc := service.NewMemoryService(repository.NewMemoryRepository(pool), embedder, chunkCfg, metrics.New())

	keys, err := s3Client.ListKeys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		log.Printf("no objects found under prefix %q in bucket %s", prefix, cfg.S3Bucket)
		return nil
	}

	var imported, failed int
	for _, key := range keys {
		data, err := s3Client.ReadObject(ctx, key)
		if err != nil {
			log.Printf("skipping %s: %v", key, err)
			failed++
			continue
		}

		chunks, err := memorySvc.Upsert(ctx, service.UpsertInput{
			SourceType: sourceType,
			SourceID:   key,
			Title:      titleFromKey(key),
			Content:    string(data),
			Metadata:   map[string]any{"bucket": cfg.S3Bucket, "key": key},
		})
		if err != nil {
			log.Printf("failed to index %s: %v", key, err)
			failed++
			continue
		}
		imported++
		log.Printf("indexed %s (%d chunks)", key, chunks)
	}

	log.Printf("import finished: %d indexed, %d failed", imported, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed to import", failed, len(keys))
	}
	return nil
}

// titleFromKey turns "runbooks/db-failover.md" into "db failover".
func titleFromKey(key string) string {
	base := path.Base(key)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return base
}
