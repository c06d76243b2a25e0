package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/models"
)

const embeddingVectorSize = 768

// CorpusIndex keeps issued tests in qdrant, keyed by an embedding of the job
// they were issued for, so prior tests for similar jobs can be found.
type CorpusIndex interface {
	CorpusSource
	InitCollection(ctx context.Context) error
	IndexTest(ctx context.Context, attempt *models.TestAttempt, job models.JobRequirement) error
	DeleteTest(ctx context.Context, attemptID uuid.UUID) error
}

type corpusIndex struct {
	client         *qdrant.Client
	embedder       Embedder
	promptBuilder  *PromptBuilder
	collectionName string
	vectorSize     uint64
	limit          int
	log            *zap.Logger
}

func NewCorpusIndex(urlStr, apiKey, collectionName string, embedder Embedder, limit int, log *zap.Logger) (CorpusIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if limit <= 0 {
		limit = DefaultCorpusLimit
	}

	return &corpusIndex{
		client:         client,
		embedder:       embedder,
		promptBuilder:  NewPromptBuilder(),
		collectionName: collectionName,
		vectorSize:     embeddingVectorSize,
		limit:          limit,
		log:            logger.OrNop(log),
	}, nil
}

func (q *corpusIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Debug("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// IndexTest upserts the attempt under its own ID, so a regenerated test replaces the old point.
func (q *corpusIndex) IndexTest(ctx context.Context, attempt *models.TestAttempt, job models.JobRequirement) error {
	embedding, err := q.embedder.GenerateEmbedding(ctx, q.promptBuilder.BuildCorpusQuery(job))
	if err != nil {
		return fmt.Errorf("failed to embed job: %w", err)
	}

	questions, err := json.Marshal(attempt.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(attempt.ID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"attempt_id":   attempt.ID.String(),
			"candidate_id": attempt.CandidateID.String(),
			"job_id":       attempt.JobID.String(),
			"job_title":    job.Title,
			"questions":    string(questions),
		}),
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert test: %w", err)
	}

	return nil
}

// PriorQuestionSets returns the tests issued for the most similar jobs, never
// those of excludeCandidate.
func (q *corpusIndex) PriorQuestionSets(ctx context.Context, job models.JobRequirement, excludeCandidate uuid.UUID) ([]QuestionSet, error) {
	embedding, err := q.embedder.GenerateEmbedding(ctx, q.promptBuilder.BuildCorpusQuery(job))
	if err != nil {
		return nil, fmt.Errorf("failed to embed job: %w", err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter: &qdrant.Filter{
			MustNot: []*qdrant.Condition{
				qdrant.NewMatch("candidate_id", excludeCandidate.String()),
			},
		},
		Limit:       qdrant.PtrOf(uint64(q.limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus: %w", err)
	}

	corpus := make([]QuestionSet, 0, len(points))
	for _, point := range points {
		raw, ok := point.Payload["questions"]
		if !ok {
			continue
		}
		var set QuestionSet
		if err := json.Unmarshal([]byte(raw.GetStringValue()), &set); err != nil {
			q.log.Warn("skipping undecodable corpus entry", zap.Error(err))
			continue
		}
		corpus = append(corpus, set)
	}

	return corpus, nil
}

func (q *corpusIndex) DeleteTest(ctx context.Context, attemptID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(attemptID.String())),
	})
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	return nil
}
