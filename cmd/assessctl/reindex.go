package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
	"alfredoptarigan/assessment-engine/internal/services"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push stored tests from postgres into the qdrant corpus index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return reindex(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().Int("limit", services.DefaultCorpusLimit, "maximum number of recent tests to index")
}

func reindex(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	stack, err := services.NewGenerationStack(cfg, false, log)
	if err != nil {
		return err
	}
	defer stack.Close() //nolint:errcheck
	if stack.Embedder == nil {
		return errors.New("reindex needs GEMINI_API_KEY to embed job descriptions")
	}

	index, err := services.NewCorpusIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, stack.Embedder, cfg.Corpus.Limit, log)
	if err != nil {
		return err
	}
	if err := index.InitCollection(ctx); err != nil {
		return err
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	attemptRepo := repositories.NewTestAttemptRepository(db)
	jobRepo := repositories.NewJobRepository(db)

	attempts, err := attemptRepo.ListRecent(limit)
	if err != nil {
		return err
	}
	log.Info("reindexing tests", zap.Int("count", len(attempts)), zap.String("collection", cfg.Qdrant.Collection))

	jobs := map[uuid.UUID]models.JobRequirement{}
	successCount := 0
	failCount := 0

	for i := range attempts {
		attempt := &attempts[i]
		attemptLog := log.With(zap.String("attempt_id", attempt.ID.String()))

		job, ok := jobs[attempt.JobID]
		if !ok {
			found, err := jobRepo.FindByID(attempt.JobID)
			if err != nil {
				attemptLog.Warn("job not found, skipping", zap.Error(err))
				failCount++
				continue
			}
			job = found.Requirement()
			jobs[attempt.JobID] = job
		}

		if err := index.IndexTest(ctx, attempt, job); err != nil {
			attemptLog.Warn("failed to index test", zap.Error(err))
			failCount++
			continue
		}
		successCount++
	}

	log.Info("reindex finished", zap.Int("indexed", successCount), zap.Int("failed", failCount))
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d tests, %d failed\n", successCount, failCount)
	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("no tests indexed out of %d", failCount)
	}
	return nil
}
