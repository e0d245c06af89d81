package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"portfolio/internal/database"
)

// ErrNotConfigured 表示内容库未配置，调用方应回退到静态数据。
var ErrNotConfigured = errors.New("content store not configured")

// Store 是内容库的只读视图。四个查询相互独立，可以并发调用。
type Store interface {
	ActiveProjects(ctx context.Context) ([]Project, error)
	ActiveExperience(ctx context.Context) ([]Experience, error)
	ActiveSkills(ctx context.Context) ([]Skill, error)
	Settings(ctx context.Context, keys ...string) (map[string]string, error)
}

// GormStore 基于 gorm 表实现 Store。db 为 nil 时所有查询返回 ErrNotConfigured。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 构造 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) ActiveProjects(ctx context.Context) ([]Project, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var rows []database.Project
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	projects := make([]Project, 0, len(rows))
	for _, r := range rows {
		var tags []string
		if len(r.Tags) > 0 {
			if err := json.Unmarshal(r.Tags, &tags); err != nil {
				// 单个项目的标签损坏不影响其他内容
				tags = nil
			}
		}
		projects = append(projects, Project{
			Title:        r.Title,
			Description:  r.Description,
			Platform:     r.Platform,
			Tags:         tags,
			LiveURL:      r.LiveURL,
			PlayStoreURL: r.PlayStoreURL,
			GitHubURL:    r.GitHubURL,
		})
	}
	return projects, nil
}

func (s *GormStore) ActiveExperience(ctx context.Context) ([]Experience, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var rows []database.Experience
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query experience: %w", err)
	}

	items := make([]Experience, 0, len(rows))
	for _, r := range rows {
		items = append(items, Experience{
			Role:        r.Role,
			Company:     r.Company,
			Period:      r.Period,
			Description: r.Description,
			Current:     r.Current,
		})
	}
	return items, nil
}

func (s *GormStore) ActiveSkills(ctx context.Context) ([]Skill, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var rows []database.Skill
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}

	skills := make([]Skill, 0, len(rows))
	for _, r := range rows {
		skills = append(skills, Skill{
			Name:     r.Name,
			Category: SkillCategory(r.Category),
			Level:    r.Level,
		})
	}
	return skills, nil
}

func (s *GormStore) Settings(ctx context.Context, keys ...string) (map[string]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var rows []database.Setting
	if err := s.db.WithContext(ctx).
		Where(map[string]any{"key": keys}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
