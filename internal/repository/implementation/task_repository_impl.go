package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/mapper"
	"github.com/longlongyang/wechat-article-insight/internal/model"
	"github.com/longlongyang/wechat-article-insight/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// taskRepositoryImpl persists tasks and their articles. Status writes
// are genuine compare-and-sets so a cancel request and the pipeline's own
// terminal transition can race safely.
type taskRepositoryImpl struct {
	db            *gorm.DB
	taskMapper    *mapper.TaskMapper
	articleMapper *mapper.ArticleMapper
}

func NewTaskRepository(db *gorm.DB) contract.TaskRepository {
	return &taskRepositoryImpl{
		db:            db,
		taskMapper:    mapper.NewTaskMapper(),
		articleMapper: mapper.NewArticleMapper(),
	}
}

func (r *taskRepositoryImpl) Create(ctx context.Context, task *entity.Task) error {
	m := r.taskMapper.ToModel(task)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*task = *r.taskMapper.ToEntity(m)
	return nil
}

func (r *taskRepositoryImpl) List(ctx context.Context) ([]*entity.Task, error) {
	var models []*model.Task
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.taskMapper.ToEntities(models), nil
}

func (r *taskRepositoryImpl) ListByStatuses(ctx context.Context, statuses ...entity.TaskStatus) ([]*entity.Task, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}
	var models []*model.Task
	if err := r.db.WithContext(ctx).Where("status IN ?", strs).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.taskMapper.ToEntities(models), nil
}

func (r *taskRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var m model.Task
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.taskMapper.ToEntity(&m), nil
}

func (r *taskRepositoryImpl) GetWithArticles(ctx context.Context, id uuid.UUID) (*entity.Task, []*entity.Article, error) {
	task, err := r.Get(ctx, id)
	if err != nil || task == nil {
		return task, nil, err
	}
	var articleModels []*model.Article
	if err := r.db.WithContext(ctx).Where("task_id = ?", id).Order("created_at ASC").Find(&articleModels).Error; err != nil {
		return task, nil, err
	}
	return task, r.articleMapper.ToEntities(articleModels), nil
}

func (r *taskRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.TaskStatus, completionReason string) (bool, error) {
	if !entity.ValidTransition(from, to) {
		return false, fmt.Errorf("invalid task transition %s -> %s", from, to)
	}

	updates := map[string]interface{}{
		"status":     string(to),
		"updated_at": time.Now(),
	}
	if completionReason != "" {
		updates["completion_reason"] = completionReason
	}

	tx := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *taskRepositoryImpl) SetKeywords(ctx context.Context, id uuid.UUID, keywords []string) error {
	return r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"keywords":   keywords,
			"updated_at": time.Now(),
		}).Error
}

func (r *taskRepositoryImpl) RequestCancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, []string{string(entity.TaskStatusPending), string(entity.TaskStatusProcessing)}).
		Updates(map[string]interface{}{
			"status":     string(entity.TaskStatusCancelling),
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *taskRepositoryImpl) AppendArticle(ctx context.Context, article *entity.Article) (bool, error) {
	m := r.articleMapper.ToModel(article)
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "url"}},
		DoNothing: true,
	}).Create(m)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Duplicate (task_id, url): silently ignored.
		return false, nil
	}
	*article = *r.articleMapper.ToEntity(m)
	return true, nil
}

func (r *taskRepositoryImpl) IncrementProcessed(ctx context.Context, id uuid.UUID) (int, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, "id = ?", id).Error; err != nil {
			return err
		}
		task.ProcessedCount++
		task.UpdatedAt = time.Now()
		return tx.Model(&model.Task{}).Where("id = ?", id).
			Update("processed_count", task.ProcessedCount).Error
	})
	if err != nil {
		return 0, err
	}
	return task.ProcessedCount, nil
}

func (r *taskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Articles removed before the task row (foreign-key-safe
		// ordering).
		if err := tx.Where("task_id = ?", id).Delete(&model.Article{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, "id = ?", id).Error
	})
}
