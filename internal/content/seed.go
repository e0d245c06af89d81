package content

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolio/internal/database"
)

// Seed 把打包的静态内容写入内容库，用于新环境初始化。
// 已有项目数据且 force 为 false 时不做任何修改，返回 false。
// force 为 true 时先清空内容表再写入。
func Seed(ctx context.Context, db *gorm.DB, force bool) (bool, error) {
	if db == nil {
		return false, ErrNotConfigured
	}
	snap, err := Fallback()
	if err != nil {
		return false, err
	}

	seeded := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !force {
			var count int64
			if err := tx.Model(&database.Project{}).Count(&count).Error; err != nil {
				return fmt.Errorf("count projects: %w", err)
			}
			if count > 0 {
				return nil
			}
		} else {
			for _, model := range database.ContentModels() {
				// 每个表都从新的 session 开始，Statement 不能跨模型复用
				wipe := tx.Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true})
				if err := wipe.Delete(model).Error; err != nil {
					return fmt.Errorf("wipe %T: %w", model, err)
				}
			}
		}

		if err := seedRows(tx, snap); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func seedRows(tx *gorm.DB, snap Snapshot) error {
	projects := make([]database.Project, 0, len(snap.Projects))
	for i, p := range snap.Projects {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		projects = append(projects, database.Project{
			Title:        p.Title,
			Description:  p.Description,
			Platform:     p.Platform,
			Tags:         datatypes.JSON(tags),
			LiveURL:      p.LiveURL,
			PlayStoreURL: p.PlayStoreURL,
			GitHubURL:    p.GitHubURL,
			SortOrder:    i,
			Active:       true,
		})
	}

	experience := make([]database.Experience, 0, len(snap.Experience))
	for i, e := range snap.Experience {
		experience = append(experience, database.Experience{
			Role:        e.Role,
			Company:     e.Company,
			Period:      e.Period,
			Description: e.Description,
			Current:     e.Current,
			SortOrder:   i,
			Active:      true,
		})
	}

	skills := make([]database.Skill, 0, len(snap.Skills))
	for i, s := range snap.Skills {
		skills = append(skills, database.Skill{
			Name:      s.Name,
			Category:  string(s.Category),
			Level:     s.Level,
			SortOrder: i,
			Active:    true,
		})
	}

	phones, err := json.Marshal(snap.Profile.Phones)
	if err != nil {
		return fmt.Errorf("encode phones: %w", err)
	}
	settings := []database.Setting{
		{Key: SettingContactEmail, Value: snap.Profile.Email},
		{Key: SettingContactPhones, Value: string(phones)},
	}
	for _, s := range socialSettings {
		if url := socialURL(snap.Profile.Socials, s.label); url != "" {
			settings = append(settings, database.Setting{Key: s.key, Value: url})
		}
	}

	if len(projects) > 0 {
		if err := tx.Create(&projects).Error; err != nil {
			return fmt.Errorf("insert projects: %w", err)
		}
	}
	if len(experience) > 0 {
		if err := tx.Create(&experience).Error; err != nil {
			return fmt.Errorf("insert experience: %w", err)
		}
	}
	if len(skills) > 0 {
		if err := tx.Create(&skills).Error; err != nil {
			return fmt.Errorf("insert skills: %w", err)
		}
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
