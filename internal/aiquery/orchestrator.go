// internal/aiquery/orchestrator.go
package aiquery

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/common/metrics"
	"pos-insights/internal/common/observability"
	"pos-insights/internal/models"
)

const (
	emptyQueryAnswer = "Please provide a question about your business data."
	invalidSQLAnswer = "I'm sorry, I couldn't generate a valid query for your request. Please try rephrasing your question."
	execFailAnswer   = "I encountered an error while executing the query. Please try again or rephrase your question."
)

// Service runs the full question-to-answer pipeline: cache lookup,
// SQL generation, hardening, bounded execution, insight composition and
// cache write-back. HandleAIQuery never returns a Go error; every
// failure mode is expressed as a well-formed response payload.
type Service struct {
	cache     ResponseCache
	generator *Generator
	store     ReadOnlyStore
	composer  *Composer
	cacheTTL  time.Duration
	obs       *observability.Observability
	logger    logger.Logger
}

func NewService(cache ResponseCache, generator *Generator, store ReadOnlyStore, composer *Composer, cacheTTL time.Duration, obs *observability.Observability, log logger.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		cache:     cache,
		generator: generator,
		store:     store,
		composer:  composer,
		cacheTTL:  cacheTTL,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "aiquery-service"}),
	}
}

func (s *Service) HandleAIQuery(ctx context.Context, tenant models.TenantContext, req models.AIQueryRequest) *models.AIQueryResponse {
	start := time.Now()
	requestID := uuid.New().String()
	log := s.logger.WithFields(map[string]interface{}{
		"requestId": requestID,
		"orgId":     tenant.OrgID,
	})

	if strings.TrimSpace(req.Query) == "" {
		reject := apperrors.NewEmptyQueryError()
		log.Warn("empty query rejected", map[string]interface{}{
			"errorCode": string(reject.Code),
		})
		return s.finish(ctx, log, start, "rejected", &models.AIQueryResponse{
			Answer: emptyQueryAnswer,
			SQL:    "",
			Data:   []models.Row{},
			Error:  reject.Message,
		})
	}

	cacheKey := BuildCacheKey(tenant.OrgID, &req)
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		log.Info("AI query served from cache", map[string]interface{}{
			"latencyMs": time.Since(start).Milliseconds(),
		})
		return s.finish(ctx, log, start, "cached", cached)
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	genStart := time.Now()
	generation := s.generator.Generate(ctx, &SQLGenerationRequest{
		Query:       req.Query,
		DateRange:   req.DateRange,
		LocationIDs: req.LocationIDs,
		Channel:     req.Channel,
		OrderType:   req.OrderType,
	})
	metrics.AIQueryStageDuration.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())

	// The generator already counted the precise rejection reason.
	if !generation.IsValid {
		log.Warn("SQL generation rejected", map[string]interface{}{
			"reason": generation.Error,
		})
		return s.finish(ctx, log, start, "rejected", &models.AIQueryResponse{
			Answer: invalidSQLAnswer,
			SQL:    "",
			Data:   []models.Row{},
			Error:  generation.Error,
		})
	}

	execStart := time.Now()
	result, err := s.store.ExecuteReadOnly(ctx, tenant.OrgID, generation.SQL)
	metrics.AIQueryStageDuration.WithLabelValues("execute").Observe(time.Since(execStart).Seconds())
	if err != nil {
		var stdErr *apperrors.StandardError
		errMsg := err.Error()
		if stderrors.As(err, &stdErr) {
			errMsg = stdErr.Message
		}
		log.Error("query execution failed", map[string]interface{}{
			"error": errMsg,
			"sql":   generation.SQL,
		})
		return s.finish(ctx, log, start, "failed", &models.AIQueryResponse{
			Answer: execFailAnswer,
			SQL:    RedactEmails(generation.SQL),
			Data:   []models.Row{},
			Error:  errMsg,
		})
	}

	composeStart := time.Now()
	resp := s.composer.Compose(ctx, req.Query, result, generation.SQL)
	metrics.AIQueryStageDuration.WithLabelValues("compose").Observe(time.Since(composeStart).Seconds())

	s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)

	log.Info("AI query answered", map[string]interface{}{
		"latencyMs": time.Since(start).Milliseconds(),
		"rowCount":  len(result.Rows),
	})
	return s.finish(ctx, log, start, "answered", resp)
}

// finish records terminal metrics and returns the response unchanged.
func (s *Service) finish(ctx context.Context, log logger.Logger, start time.Time, outcome string, resp *models.AIQueryResponse) *models.AIQueryResponse {
	elapsed := time.Since(start)
	metrics.AIQueriesTotal.WithLabelValues(outcome).Inc()
	metrics.AIQueryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if s.obs != nil {
		s.obs.RecordQueryProcessed(ctx, outcome)
		s.obs.RecordQueryDuration(ctx, elapsed, outcome)
	}
	return resp
}
