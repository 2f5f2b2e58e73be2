// Package pipeline drives a single insight task from keyword generation
// through search, ranking and relevance scoring to a terminal status.
// It is cooperative: every external call and database write is a yield
// point where cancellation is observed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/pkg/logger"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"
	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
	"github.com/longlongyang/wechat-article-insight/pkg/contenthash"
	"github.com/longlongyang/wechat-article-insight/pkg/embedding"
	"github.com/longlongyang/wechat-article-insight/pkg/llm"
	"github.com/longlongyang/wechat-article-insight/pkg/searchclient"
	"github.com/longlongyang/wechat-article-insight/pkg/sessiontoken"
	"github.com/longlongyang/wechat-article-insight/pkg/vectormath"

	"github.com/google/uuid"
)

// Searcher is the slice of the search client the pipeline consumes.
type Searcher interface {
	Search(ctx context.Context, keyword, cursor string, scope *searchclient.Scope, speed entity.SpeedTier) (*searchclient.Result, error)
}

// Providers is the per-task capability table: one provider per pipeline
// stage, constructed once at task start from the task's persisted
// configuration and never re-read while the task runs.
type Providers struct {
	Keyword   llm.Provider
	Reasoning llm.Provider
	Embedding embedding.Provider
}

type Config struct {
	WorkerCount        int
	BufferSize         int
	SimilarityFloor    float64
	MinKeywordPool     int
	RelevanceThreshold float64
	EmbeddingDim       int
	SearchTimeout      time.Duration
	GenerateTimeout    time.Duration
	EmbedTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 3
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 8
	}
	if c.SimilarityFloor == 0 {
		c.SimilarityFloor = 0.5
	}
	if c.MinKeywordPool <= 0 {
		c.MinKeywordPool = 5
	}
	if c.RelevanceThreshold == 0 {
		c.RelevanceThreshold = 0.6
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 30 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 60 * time.Second
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 30 * time.Second
	}
	return c
}

type Runner struct {
	tasks      contract.TaskRepository
	embeddings contract.EmbeddingRepository
	search     Searcher
	cache      sessiontoken.Store
	log        logger.ILogger
	cfg        Config
}

func NewRunner(
	tasks contract.TaskRepository,
	embeddings contract.EmbeddingRepository,
	search Searcher,
	cache sessiontoken.Store,
	log logger.ILogger,
	cfg Config,
) *Runner {
	return &Runner{
		tasks:      tasks,
		embeddings: embeddings,
		search:     search,
		cache:      cache,
		log:        log,
		cfg:        cfg.withDefaults(),
	}
}

// candidate is a search result that survived similarity ranking and is
// queued for the relevance stage.
type candidate struct {
	searchclient.Candidate
	Similarity float64
}

type scoreResult struct {
	cand      candidate
	relevance float64
	insight   string
	accepted  bool
}

// Run drives task to a terminal status. ctx is cancelled by the
// supervisor when a cancel request arrives; Run never returns before the
// task row is terminal. The task must already be in the processing state.
func (r *Runner) Run(ctx context.Context, task *entity.Task, p Providers) {
	keywords := task.Keywords
	if len(keywords) == 0 {
		kws, err := r.generateKeywords(ctx, task.Prompt, p.Keyword)
		if err != nil {
			if ctx.Err() != nil {
				r.finishCancelled(task)
				return
			}
			r.log.Error("pipeline", "keyword generation failed", map[string]interface{}{
				"task_id": task.Id.String(), "error": err.Error(),
			})
			r.fail(task, "keyword generation failed")
			return
		}
		if err := r.tasks.SetKeywords(ctx, task.Id, kws); err != nil {
			r.fail(task, fmt.Sprintf("persist keywords: %v", err))
			return
		}
		keywords = kws
	}
	r.log.Info("pipeline", "keywords ready", map[string]interface{}{
		"task_id": task.Id.String(), "keywords": keywords,
	})

	intentVec, err := r.ensureEmbedding(ctx, p.Embedding, task.Prompt, entity.SourceKindQuery)
	if err != nil {
		if ctx.Err() != nil {
			r.finishCancelled(task)
			return
		}
		r.fail(task, fmt.Sprintf("intent embedding failed: %v", err))
		return
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var fatalMu sync.Mutex
	var fatalErr error
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		stop()
	}

	buffer := make(chan candidate, r.cfg.BufferSize)
	results := make(chan scoreResult, r.cfg.WorkerCount)

	go func() {
		defer close(buffer)
		r.acquire(runCtx, task, keywords, intentVec, p.Embedding, buffer, setFatal)
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range buffer {
				if runCtx.Err() != nil {
					continue // drain without scoring
				}
				results <- r.score(runCtx, task, cand, p.Reasoning)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	processed := task.ProcessedCount
	for res := range results {
		if !res.accepted || processed >= task.TargetCount || ctx.Err() != nil {
			continue
		}
		article := &entity.Article{
			Id:             uuid.New(),
			TaskId:         task.Id,
			Title:          res.cand.Title,
			URL:            res.cand.URL,
			AccountName:    res.cand.AccountName,
			AccountFakeID:  res.cand.AccountFakeID,
			PublishTime:    res.cand.PublishTime,
			Similarity:     res.cand.Similarity,
			RelevanceScore: &res.relevance,
			Insight:        res.insight,
		}
		// The append + counter pair runs to completion even if a cancel
		// arrives mid-write: no task is killed mid-write, the flag is
		// re-checked before the next unit of work.
		inserted, err := r.tasks.AppendArticle(context.Background(), article)
		if err != nil {
			r.log.Error("pipeline", "append article failed", map[string]interface{}{
				"task_id": task.Id.String(), "url": res.cand.URL, "error": err.Error(),
			})
			continue
		}
		if !inserted {
			continue // duplicate (task_id, url), silently ignored
		}
		if n, err := r.tasks.IncrementProcessed(context.Background(), task.Id); err == nil {
			processed = n
		} else {
			processed++
		}
		if processed >= task.TargetCount {
			stop()
		}
	}

	fatalMu.Lock()
	fatal := fatalErr
	fatalMu.Unlock()

	switch {
	case ctx.Err() != nil:
		r.finishCancelled(task)
	case fatal != nil:
		r.fail(task, failureReason(fatal))
	case processed >= task.TargetCount:
		r.complete(task, "target reached")
	default:
		r.complete(task, fmt.Sprintf("search exhausted (%d/%d)", processed, task.TargetCount))
	}
}

// acquire is the stage-3 producer: it paginates the search client per
// keyword, ranks every page against the intent vector, and feeds
// surviving candidates into the bounded buffer.
func (r *Runner) acquire(
	ctx context.Context,
	task *entity.Task,
	keywords []string,
	intentVec []float32,
	embedder embedding.Provider,
	out chan<- candidate,
	setFatal func(error),
) {
	var scope *searchclient.Scope
	if task.Config.ScopeAccountFakeID != "" {
		scope = &searchclient.Scope{
			AccountFakeID: task.Config.ScopeAccountFakeID,
			AccountName:   task.Config.ScopeAccountName,
		}
	}
	seen := make(map[string]struct{})

	for _, kw := range keywords {
		if ctx.Err() != nil {
			return
		}
		kept := 0
		var reserve []candidate // below the floor, retained only if this keyword's pool is thin
		cursor := ""
		for {
			if ctx.Err() != nil {
				return
			}
			var page *searchclient.Result
			err := withRetry(ctx, maxCallAttempts, func(c context.Context) error {
				sc, cancel := context.WithTimeout(c, r.cfg.SearchTimeout)
				defer cancel()
				var callErr error
				page, callErr = r.search.Search(sc, kw, cursor, scope, task.Config.SearchSpeed)
				return callErr
			})
			if err != nil {
				if apperr.IsFatal(apperr.KindOf(err)) {
					setFatal(err)
					return
				}
				r.log.Warn("pipeline", "keyword page fetch failed, moving to next keyword", map[string]interface{}{
					"task_id": task.Id.String(), "keyword": kw, "error": err.Error(),
				})
				break
			}

			for _, cand := range r.rankPage(ctx, task, page.Candidates, intentVec, embedder, seen) {
				if cand.Similarity >= r.cfg.SimilarityFloor {
					if !send(ctx, out, cand) {
						return
					}
					kept++
				} else {
					reserve = append(reserve, cand)
				}
			}

			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}

		if kept < r.cfg.MinKeywordPool && len(reserve) > 0 {
			sort.Slice(reserve, func(i, j int) bool { return reserve[i].Similarity > reserve[j].Similarity })
			need := r.cfg.MinKeywordPool - kept
			if need > len(reserve) {
				need = len(reserve)
			}
			for _, cand := range reserve[:need] {
				if !send(ctx, out, cand) {
					return
				}
			}
		}
	}
}

// rankPage dedups one page of raw search results, ensures each title has
// a cached embedding, and ranks the batch against the intent vector.
func (r *Runner) rankPage(
	ctx context.Context,
	task *entity.Task,
	raw []searchclient.Candidate,
	intentVec []float32,
	embedder embedding.Provider,
	seen map[string]struct{},
) []candidate {
	var fresh []searchclient.Candidate
	for _, c := range raw {
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		if r.cache != nil {
			if cached, err := r.cache.SeenURL(ctx, task.Id.String(), c.URL); err == nil && cached {
				continue
			}
			_ = r.cache.MarkSeenURL(ctx, task.Id.String(), c.URL)
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	out := make([]candidate, 0, len(fresh))
	for _, c := range fresh {
		if ctx.Err() != nil {
			return nil
		}
		vec, err := r.ensureEmbedding(ctx, embedder, c.Title, entity.SourceKindTitle)
		if err != nil {
			// Candidate-level containment: a mis-dimensioned or
			// persistently failing title embedding skips this candidate
			// only, the page and task continue.
			r.log.Warn("pipeline", "title embedding failed, skipping candidate", map[string]interface{}{
				"task_id": task.Id.String(), "url": c.URL, "error": err.Error(),
			})
			continue
		}
		out = append(out, candidate{Candidate: c, Similarity: vectormath.Cosine(intentVec, vec)})
	}
	return out
}

// score is the stage-4 worker body: one reasoning call per candidate,
// parsed into a relevance score and an insight.
func (r *Runner) score(ctx context.Context, task *entity.Task, cand candidate, reasoning llm.Provider) scoreResult {
	var text string
	err := withRetry(ctx, maxCallAttempts, func(c context.Context) error {
		gc, cancel := context.WithTimeout(c, r.cfg.GenerateTimeout)
		defer cancel()
		var callErr error
		text, callErr = reasoning.Generate(gc, relevancePrompt(task.Prompt, cand.Title, cand.AccountName),
			llm.WithMaxTokens(1024),
			llm.WithTemperature(0.2),
			llm.WithThinkingBudget(),
			llm.WithJSONSchemaHint(relevanceSchemaHint),
		)
		return callErr
	})
	if err != nil {
		r.log.Warn("pipeline", "relevance call failed, skipping candidate", map[string]interface{}{
			"task_id": task.Id.String(), "url": cand.URL, "kind": apperr.KindOf(err).String(), "error": err.Error(),
		})
		return scoreResult{}
	}

	parsed, err := parseRelevance(text)
	if err != nil {
		r.log.Warn("pipeline", "unparseable relevance response, skipping candidate", map[string]interface{}{
			"task_id": task.Id.String(), "url": cand.URL, "error": err.Error(),
		})
		return scoreResult{}
	}

	relevance := parsed.RelevanceScore
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 1 {
		relevance = 1
	}
	if relevance < r.cfg.RelevanceThreshold && cand.Similarity < 0.7 {
		return scoreResult{}
	}
	return scoreResult{cand: cand, relevance: relevance, insight: parsed.Insight, accepted: true}
}

// ensureEmbedding is the upsert-then-get path shared by the intent vector
// and candidate titles: cache hit returns the stored vector, a miss calls
// the provider, dimension-checks the result, and stores it.
func (r *Runner) ensureEmbedding(ctx context.Context, embedder embedding.Provider, text string, kind entity.SourceKind) ([]float32, error) {
	hash := contenthash.Of(text)
	if cached, err := r.embeddings.Get(ctx, hash, kind); err == nil && cached != nil {
		return cached.Vector, nil
	}

	var resp *embedding.Response
	err := withRetry(ctx, maxCallAttempts, func(c context.Context) error {
		ec, cancel := context.WithTimeout(c, r.cfg.EmbedTimeout)
		defer cancel()
		var callErr error
		resp, callErr = embedder.Generate(ec, text, string(kind))
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if r.cfg.EmbeddingDim > 0 && len(resp.Values) != r.cfg.EmbeddingDim {
		return nil, apperr.New(apperr.KindDimensionMismatch,
			fmt.Sprintf("provider returned %d-wide vector, expected %d", len(resp.Values), r.cfg.EmbeddingDim), nil)
	}
	if err := r.embeddings.Upsert(ctx, hash, kind, resp.Values); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (r *Runner) generateKeywords(ctx context.Context, intent string, provider llm.Provider) ([]string, error) {
	prompts := []string{keywordPrompt(intent), strictKeywordPrompt(intent)}
	var lastErr error
	for _, prompt := range prompts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var text string
		err := withRetry(ctx, maxCallAttempts, func(c context.Context) error {
			gc, cancel := context.WithTimeout(c, r.cfg.GenerateTimeout)
			defer cancel()
			var callErr error
			text, callErr = provider.Generate(gc, prompt, llm.WithMaxTokens(512), llm.WithTemperature(0.7))
			return callErr
		})
		if err != nil {
			lastErr = err
			continue
		}
		kws, err := parseKeywords(text)
		if err != nil {
			lastErr = err
			continue
		}
		kws = clampKeywords(kws)
		if len(kws) > 0 {
			return kws, nil
		}
		lastErr = fmt.Errorf("keyword list empty after filtering")
	}
	return nil, lastErr
}

// clampKeywords enforces the task's keyword constraints: at most 20
// keywords, each usable by the search client (<= 64 characters).
func clampKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if utf8.RuneCountInString(kw) > 64 {
			continue
		}
		out = append(out, kw)
		if len(out) == 20 {
			break
		}
	}
	return out
}

func send(ctx context.Context, out chan<- candidate, c candidate) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func failureReason(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (r *Runner) complete(task *entity.Task, reason string) {
	r.terminate(task, entity.TaskStatusCompleted, reason)
}

func (r *Runner) fail(task *entity.Task, reason string) {
	r.terminate(task, entity.TaskStatusFailed, reason)
}

func (r *Runner) terminate(task *entity.Task, to entity.TaskStatus, reason string) {
	ctx := context.Background()
	ok, err := r.tasks.TransitionStatus(ctx, task.Id, entity.TaskStatusProcessing, to, reason)
	if err != nil {
		r.log.Error("pipeline", "terminal transition failed", map[string]interface{}{
			"task_id": task.Id.String(), "to": string(to), "error": err.Error(),
		})
		return
	}
	if !ok {
		// Lost the race with a concurrent cancel request: the row is
		// already in cancelling, finish that instead.
		r.finishCancelled(task)
		return
	}
	r.log.Info("pipeline", "task finished", map[string]interface{}{
		"task_id": task.Id.String(), "status": string(to), "reason": reason,
	})
}

func (r *Runner) finishCancelled(task *entity.Task) {
	ctx := context.Background()
	ok, err := r.tasks.TransitionStatus(ctx, task.Id, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user")
	if err == nil && !ok {
		// Cancellation was observed through the context before the
		// status row flipped to cancelling; flip it now, then finish.
		if _, reqErr := r.tasks.RequestCancel(ctx, task.Id); reqErr == nil {
			_, err = r.tasks.TransitionStatus(ctx, task.Id, entity.TaskStatusCancelling, entity.TaskStatusCancelled, "cancelled by user")
		}
	}
	if err != nil {
		r.log.Error("pipeline", "cancel transition failed", map[string]interface{}{
			"task_id": task.Id.String(), "error": err.Error(),
		})
		return
	}
	r.log.Info("pipeline", "task cancelled", map[string]interface{}{"task_id": task.Id.String()})
}
