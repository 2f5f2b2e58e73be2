package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"
	"github.com/longlongyang/wechat-article-insight/pkg/apperr"
	"github.com/longlongyang/wechat-article-insight/pkg/embedding"
	"github.com/longlongyang/wechat-article-insight/pkg/llm"
	"github.com/longlongyang/wechat-article-insight/pkg/searchclient"
	"github.com/longlongyang/wechat-article-insight/pkg/sessiontoken"
	"github.com/longlongyang/wechat-article-insight/pkg/vectormath"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

var (
	intentVector   = []float32{1, 0, 0, 0}
	relevantVector = []float32{0.65, 0.7599, 0, 0} // cosine vs intent ~0.65
	offtopicVector = []float32{0, 1, 0, 0}         // cosine vs intent 0
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// memTaskRepo is an in-memory contract.TaskRepository with the same CAS
// and duplicate-suppression semantics as the GORM implementation.
type memTaskRepo struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*entity.Task
	articles    map[uuid.UUID][]*entity.Article
	onIncrement func(taskId uuid.UUID, processed int)
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{
		tasks:    make(map[uuid.UUID]*entity.Task),
		articles: make(map[uuid.UUID][]*entity.Article),
	}
}

func (r *memTaskRepo) Create(_ context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.Id] = &cp
	return nil
}

func (r *memTaskRepo) List(_ context.Context) ([]*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTaskRepo) ListByStatuses(_ context.Context, statuses ...entity.TaskStatus) ([]*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Task
	for _, t := range r.tasks {
		for _, s := range statuses {
			if t.Status == s {
				cp := *t
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *memTaskRepo) Get(_ context.Context, id uuid.UUID) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) GetWithArticles(ctx context.Context, id uuid.UUID) (*entity.Task, []*entity.Article, error) {
	task, err := r.Get(ctx, id)
	if task == nil || err != nil {
		return task, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	arts := make([]*entity.Article, len(r.articles[id]))
	copy(arts, r.articles[id])
	return task, arts, nil
}

func (r *memTaskRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to entity.TaskStatus, reason string) (bool, error) {
	if !entity.ValidTransition(from, to) {
		return false, fmt.Errorf("invalid task transition %s -> %s", from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	if reason != "" {
		t.CompletionReason = reason
	}
	t.UpdatedAt = time.Now()
	return true, nil
}

func (r *memTaskRepo) SetKeywords(_ context.Context, id uuid.UUID, keywords []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.Keywords = keywords
	}
	return nil
}

func (r *memTaskRepo) RequestCancel(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	if t.Status != entity.TaskStatusPending && t.Status != entity.TaskStatusProcessing {
		return false, nil
	}
	t.Status = entity.TaskStatusCancelling
	return true, nil
}

func (r *memTaskRepo) AppendArticle(_ context.Context, article *entity.Article) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.articles[article.TaskId] {
		if existing.URL == article.URL {
			return false, nil
		}
	}
	cp := *article
	cp.CreatedAt = time.Now()
	r.articles[article.TaskId] = append(r.articles[article.TaskId], &cp)
	return true, nil
}

func (r *memTaskRepo) IncrementProcessed(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	t := r.tasks[id]
	t.ProcessedCount++
	n := t.ProcessedCount
	hook := r.onIncrement
	r.mu.Unlock()
	if hook != nil {
		hook(id, n)
	}
	return n, nil
}

func (r *memTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	delete(r.articles, id)
	return nil
}

var _ contract.TaskRepository = (*memTaskRepo)(nil)

// memEmbeddingRepo mirrors the first-writer-wins upsert and
// candidate-restricted cosine ranking of the pgvector implementation.
type memEmbeddingRepo struct {
	mu      sync.Mutex
	vectors map[string][]float32
}

func newMemEmbeddingRepo() *memEmbeddingRepo {
	return &memEmbeddingRepo{vectors: make(map[string][]float32)}
}

func embKey(hash string, kind entity.SourceKind) string {
	return hash + "|" + string(kind)
}

func (r *memEmbeddingRepo) Upsert(_ context.Context, hash string, kind entity.SourceKind, vector []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := embKey(hash, kind)
	if _, exists := r.vectors[key]; exists {
		return nil
	}
	cp := make([]float32, len(vector))
	copy(cp, vector)
	r.vectors[key] = cp
	return nil
}

func (r *memEmbeddingRepo) Get(_ context.Context, hash string, kind entity.SourceKind) (*entity.Embedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vectors[embKey(hash, kind)]
	if !ok {
		return nil, nil
	}
	return &entity.Embedding{ContentHash: hash, SourceKind: kind, Vector: v}, nil
}

func (r *memEmbeddingRepo) Nearest(_ context.Context, query []float32, kind entity.SourceKind, candidateHashes []string, k int) ([]contract.ScoredEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []contract.ScoredEmbedding
	for _, h := range candidateHashes {
		if v, ok := r.vectors[embKey(h, kind)]; ok {
			out = append(out, contract.ScoredEmbedding{ContentHash: h, Similarity: vectormath.Cosine(query, v)})
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Similarity > out[i].Similarity {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (r *memEmbeddingRepo) Dimension(_ context.Context, _ entity.SourceKind) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vectors {
		return len(v), nil
	}
	return 0, nil
}

func (r *memEmbeddingRepo) Verify(_ context.Context, expectedDim int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vectors {
		if len(v) != expectedDim {
			return fmt.Errorf("embedding dimension mismatch: stored vectors are %d-wide, configured provider produces %d", len(v), expectedDim)
		}
		return nil
	}
	return nil
}

var _ contract.EmbeddingRepository = (*memEmbeddingRepo)(nil)

type scriptedSearcher struct {
	mu      sync.Mutex
	calls   int
	respond func(call int, keyword, cursor string) (*searchclient.Result, error)
}

func (s *scriptedSearcher) Search(_ context.Context, keyword, cursor string, _ *searchclient.Scope, _ entity.SpeedTier) (*searchclient.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	return s.respond(n, keyword, cursor)
}

type stubLLM struct {
	fn func(prompt string) (string, error)
}

func (s stubLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	return s.fn(prompt)
}

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, text string) ([]float32, error)
}

func (s *stubEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.Response, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	values, err := s.fn(n, text)
	if err != nil {
		return nil, err
	}
	return &embedding.Response{Values: values}, nil
}

// defaultEmbedder maps the intent prompt to the intent vector, titles
// containing 相关 to a ~0.65-similarity vector, everything else to an
// orthogonal vector.
func defaultEmbedder(prompt string) *stubEmbedder {
	return &stubEmbedder{fn: func(_ int, text string) ([]float32, error) {
		switch {
		case text == prompt:
			return intentVector, nil
		case strings.Contains(text, "相关"):
			return relevantVector, nil
		default:
			return offtopicVector, nil
		}
	}}
}

// defaultReasoner scores titles containing 强相关 at 0.8, everything
// else at 0.5.
func defaultReasoner() stubLLM {
	return stubLLM{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "强相关") {
			return `{"relevance_score": 0.8, "insight": "对该研究主题有直接参考价值。"}`, nil
		}
		return `{"relevance_score": 0.5, "insight": "关联有限。"}`, nil
	}}
}

func keywordProvider(keywords ...string) stubLLM {
	return stubLLM{fn: func(string) (string, error) {
		parts := make([]string, len(keywords))
		for i, kw := range keywords {
			parts[i] = fmt.Sprintf("%q", kw)
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	}}
}

func newTestTask(target int) *entity.Task {
	return &entity.Task{
		Id:          uuid.New(),
		Prompt:      "在线广告归因模型",
		TargetCount: target,
		Status:      entity.TaskStatusProcessing,
		Config: entity.TaskConfig{
			KeywordProvider:   "cloud-b",
			ReasoningProvider: "cloud-b",
			EmbeddingProvider: "cloud-a",
			SearchSpeed:       entity.SpeedTierHigh,
		},
	}
}

func newTestRunner(tasks contract.TaskRepository, embeddings contract.EmbeddingRepository, search Searcher) *Runner {
	return NewRunner(tasks, embeddings, search, sessiontoken.NewMemoryStore(), nopLogger{}, Config{
		EmbeddingDim:    testDim,
		SearchTimeout:   time.Second,
		GenerateTimeout: time.Second,
		EmbedTimeout:    time.Second,
	})
}

func page(next string, candidates ...searchclient.Candidate) *searchclient.Result {
	return &searchclient.Result{Candidates: candidates, NextCursor: next, Total: len(candidates)}
}

func cand(title, url string) searchclient.Candidate {
	return searchclient.Candidate{
		Title:       title,
		URL:         url,
		AccountName: "广告观察",
		PublishTime: time.Unix(1700000000, 0),
	}
}

func TestRunHappyPathReachesTarget(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(3)
	require.NoError(t, tasks.Create(context.Background(), task))

	var counts []int
	var countsMu sync.Mutex
	tasks.onIncrement = func(_ uuid.UUID, n int) {
		countsMu.Lock()
		counts = append(counts, n)
		countsMu.Unlock()
	}

	search := &scriptedSearcher{respond: func(_ int, keyword, _ string) (*searchclient.Result, error) {
		var cands []searchclient.Candidate
		for i := 0; i < 3; i++ {
			cands = append(cands, cand(fmt.Sprintf("强相关 %s %d", keyword, i), fmt.Sprintf("https://mp.weixin.qq.com/s/%s-%d", keyword, i)))
		}
		cands = append(cands, cand(fmt.Sprintf("相关 %s 弱", keyword), fmt.Sprintf("https://mp.weixin.qq.com/s/%s-weak", keyword)))
		for i := 0; i < 6; i++ {
			cands = append(cands, cand(fmt.Sprintf("其他 %s %d", keyword, i), fmt.Sprintf("https://mp.weixin.qq.com/s/%s-off-%d", keyword, i)))
		}
		return page("", cands...), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型", "MMM", "MTA"),
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, final.Status)
	assert.Equal(t, "target reached", final.CompletionReason)
	assert.Equal(t, 3, final.ProcessedCount)
	assert.Len(t, articles, 3)
	assert.Equal(t, []string{"归因模型", "MMM", "MTA"}, final.Keywords)

	for _, a := range articles {
		require.NotNil(t, a.RelevanceScore)
		assert.InDelta(t, 0.8, *a.RelevanceScore, 1e-9)
		assert.NotEmpty(t, a.Insight)
		assert.GreaterOrEqual(t, a.Similarity, 0.6)
	}

	// Progress monotonicity: the counter only ever steps up by one.
	countsMu.Lock()
	defer countsMu.Unlock()
	for i, n := range counts {
		assert.Equal(t, i+1, n)
	}
}

func TestRunCancelMidRun(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(50)
	require.NoError(t, tasks.Create(context.Background(), task))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first completed article triggers a cancel request, the way the
	// supervisor would deliver one.
	var once sync.Once
	tasks.onIncrement = func(id uuid.UUID, n int) {
		if n >= 1 {
			once.Do(func() {
				_, _ = tasks.RequestCancel(context.Background(), id)
				cancel()
			})
		}
	}

	search := &scriptedSearcher{respond: func(_ int, keyword, _ string) (*searchclient.Result, error) {
		var cands []searchclient.Candidate
		for i := 0; i < 8; i++ {
			cands = append(cands, cand(fmt.Sprintf("强相关 %s %d", keyword, i), fmt.Sprintf("https://mp.weixin.qq.com/s/%s-%d", keyword, i)))
		}
		return page("", cands...), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(ctx, task, Providers{
		Keyword:   keywordProvider("归因模型", "MMM"),
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCancelled, final.Status)
	assert.GreaterOrEqual(t, final.ProcessedCount, 1)
	require.NotEmpty(t, articles)
	for _, a := range articles {
		assert.NotNil(t, a.RelevanceScore, "partial articles keep their relevance scores")
	}
}

func TestRunSessionExpiredFailsTask(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(10)
	require.NoError(t, tasks.Create(context.Background(), task))

	search := &scriptedSearcher{respond: func(call int, keyword, _ string) (*searchclient.Result, error) {
		if call == 1 {
			return page("cursor-2",
				cand("其他 无关 1", "https://mp.weixin.qq.com/s/off-1"),
				cand("其他 无关 2", "https://mp.weixin.qq.com/s/off-2"),
			), nil
		}
		return nil, apperr.New(apperr.KindSessionExpired, searchclient.SessionExpiredMessage, nil)
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型"),
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, _, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusFailed, final.Status)
	assert.Contains(t, final.CompletionReason, "session expired")
	assert.Equal(t, 0, final.ProcessedCount)
}

func TestRunExhaustionCompletesShortOfTarget(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(50)
	require.NoError(t, tasks.Create(context.Background(), task))

	search := &scriptedSearcher{respond: func(_ int, keyword, _ string) (*searchclient.Result, error) {
		if keyword != "归因模型" {
			return page(""), nil
		}
		var cands []searchclient.Candidate
		for i := 0; i < 5; i++ {
			cands = append(cands, cand(fmt.Sprintf("强相关 %d", i), fmt.Sprintf("https://mp.weixin.qq.com/s/only-%d", i)))
		}
		return page("", cands...), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型", "MMM", "MTA"),
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, final.Status)
	assert.Equal(t, "search exhausted (5/50)", final.CompletionReason)
	assert.Equal(t, 5, final.ProcessedCount)
	assert.Len(t, articles, 5)
}

func TestRunMisdimensionedEmbeddingSkipsCandidateOnly(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(10)
	require.NoError(t, tasks.Create(context.Background(), task))

	embedder := &stubEmbedder{fn: func(_ int, text string) ([]float32, error) {
		switch {
		case text == task.Prompt:
			return intentVector, nil
		case strings.Contains(text, "坏"):
			return make([]float32, testDim*2), nil // wrong width
		default:
			return relevantVector, nil
		}
	}}

	search := &scriptedSearcher{respond: func(_ int, _, _ string) (*searchclient.Result, error) {
		return page("",
			cand("坏 强相关 0", "https://mp.weixin.qq.com/s/bad"),
			cand("强相关 1", "https://mp.weixin.qq.com/s/good-1"),
			cand("强相关 2", "https://mp.weixin.qq.com/s/good-2"),
		), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型"),
		Reasoning: defaultReasoner(),
		Embedding: embedder,
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, final.Status)
	assert.Equal(t, 2, final.ProcessedCount)
	for _, a := range articles {
		assert.NotEqual(t, "https://mp.weixin.qq.com/s/bad", a.URL)
	}
}

func TestRunDuplicateURLAcrossKeywordsPersistedOnce(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(10)
	require.NoError(t, tasks.Create(context.Background(), task))

	shared := "https://mp.weixin.qq.com/s/shared"
	search := &scriptedSearcher{respond: func(_ int, keyword, _ string) (*searchclient.Result, error) {
		if keyword == "归因模型" {
			return page("", cand("强相关 A", shared)), nil
		}
		return page("", cand("强相关 A", shared), cand("强相关 B", "https://mp.weixin.qq.com/s/other")), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型", "MMM"),
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, final.ProcessedCount)
	require.Len(t, articles, 2)
	sharedCount := 0
	for _, a := range articles {
		if a.URL == shared {
			sharedCount++
		}
	}
	assert.Equal(t, 1, sharedCount)
}

func TestRunProviderFailureIsContainedPerCandidate(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(10)
	require.NoError(t, tasks.Create(context.Background(), task))

	reasoner := stubLLM{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "被过滤") {
			return "", apperr.New(apperr.KindSafetyFiltered, "safety filtered", nil)
		}
		return `{"relevance_score": 0.9, "insight": "有价值。"}`, nil
	}}

	search := &scriptedSearcher{respond: func(_ int, _, _ string) (*searchclient.Result, error) {
		return page("",
			cand("被过滤 相关 X", "https://mp.weixin.qq.com/s/filtered"),
			cand("强相关 Y", "https://mp.weixin.qq.com/s/kept"),
		), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   keywordProvider("归因模型"),
		Reasoning: reasoner,
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, articles, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, final.Status)
	assert.Equal(t, 1, final.ProcessedCount)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://mp.weixin.qq.com/s/kept", articles[0].URL)
}

func TestRunKeywordGenerationFailureIsFatal(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(3)
	require.NoError(t, tasks.Create(context.Background(), task))

	search := &scriptedSearcher{respond: func(_ int, _, _ string) (*searchclient.Result, error) {
		t.Error("search must not run when keyword generation fails")
		return page(""), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   stubLLM{fn: func(string) (string, error) { return "definitely not json", nil }},
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, _, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusFailed, final.Status)
	assert.Equal(t, "keyword generation failed", final.CompletionReason)
	assert.Empty(t, final.Keywords)
}

func TestRunReusesPersistedKeywordsOnResume(t *testing.T) {
	tasks := newMemTaskRepo()
	embeddings := newMemEmbeddingRepo()
	task := newTestTask(1)
	task.Keywords = []string{"归因模型"}
	require.NoError(t, tasks.Create(context.Background(), task))

	search := &scriptedSearcher{respond: func(_ int, _, _ string) (*searchclient.Result, error) {
		return page("", cand("强相关 A", "https://mp.weixin.qq.com/s/a")), nil
	}}

	runner := newTestRunner(tasks, embeddings, search)
	runner.Run(context.Background(), task, Providers{
		Keyword:   stubLLM{fn: func(string) (string, error) { t.Fatal("keyword provider must not be called on resume"); return "", nil }},
		Reasoning: defaultReasoner(),
		Embedding: defaultEmbedder(task.Prompt),
	})

	final, _, err := tasks.GetWithArticles(context.Background(), task.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCompleted, final.Status)
	assert.Equal(t, "target reached", final.CompletionReason)
}
