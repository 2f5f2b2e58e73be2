package mapper

import (
	"github.com/longlongyang/wechat-article-insight/internal/entity"
	"github.com/longlongyang/wechat-article-insight/internal/model"
)

type ArticleMapper struct{}

func NewArticleMapper() *ArticleMapper {
	return &ArticleMapper{}
}

func (m *ArticleMapper) ToEntity(a *model.Article) *entity.Article {
	if a == nil {
		return nil
	}

	return &entity.Article{
		Id:             a.Id,
		TaskId:         a.TaskId,
		Title:          a.Title,
		URL:            a.URL,
		AccountName:    a.AccountName,
		AccountFakeID:  a.AccountFakeID,
		PublishTime:    a.PublishTime,
		Similarity:     a.Similarity,
		RelevanceScore: a.RelevanceScore,
		Insight:        a.Insight,
		CreatedAt:      a.CreatedAt,
	}
}

func (m *ArticleMapper) ToModel(a *entity.Article) *model.Article {
	if a == nil {
		return nil
	}

	return &model.Article{
		Id:             a.Id,
		TaskId:         a.TaskId,
		Title:          a.Title,
		URL:            a.URL,
		AccountName:    a.AccountName,
		AccountFakeID:  a.AccountFakeID,
		PublishTime:    a.PublishTime,
		Similarity:     a.Similarity,
		RelevanceScore: a.RelevanceScore,
		Insight:        a.Insight,
		CreatedAt:      a.CreatedAt,
	}
}

func (m *ArticleMapper) ToEntities(articles []*model.Article) []*entity.Article {
	entities := make([]*entity.Article, len(articles))
	for i, a := range articles {
		entities[i] = m.ToEntity(a)
	}
	return entities
}
