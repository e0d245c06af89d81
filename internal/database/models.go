package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project 表示作品集中的一个项目。Ar 后缀字段保存阿拉伯语内容。
type Project struct {
	gorm.Model
	Title         string         `gorm:"size:255"`
	TitleAr       string         `gorm:"size:255"`
	Description   string         `gorm:"type:text"`
	DescriptionAr string         `gorm:"type:text"`
	Platform      string         `gorm:"size:64"`
	Tags          datatypes.JSON `gorm:"type:jsonb"` // JSON 字符串数组，保持顺序
	LiveURL       string         `gorm:"size:512"`
	PlayStoreURL  string         `gorm:"size:512"`
	GitHubURL     string         `gorm:"size:512"`
	SortOrder     int            `gorm:"index"`
	Active        bool           `gorm:"index"`
}

// Experience 表示一段工作经历。
type Experience struct {
	gorm.Model
	Role          string `gorm:"size:255"`
	RoleAr        string `gorm:"size:255"`
	Company       string `gorm:"size:255"`
	Period        string `gorm:"size:128"`
	Description   string `gorm:"type:text"`
	DescriptionAr string `gorm:"type:text"`
	Current       bool
	SortOrder     int  `gorm:"index"`
	Active        bool `gorm:"index"`
}

// Skill 表示一项技能，Category 取值 frontend / backend。
type Skill struct {
	gorm.Model
	Name      string `gorm:"size:128"`
	Category  string `gorm:"size:32;index"`
	Level     int
	SortOrder int  `gorm:"index"`
	Active    bool `gorm:"index"`
}

// Setting 是简单的键值配置（联系邮箱、电话 JSON、社交链接）。
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// CVArchive 记录一次归档到对象存储的简历 PDF。
type CVArchive struct {
	gorm.Model
	ObjectKey     string `gorm:"size:512"`
	SizeBytes     int64
	Pages         int
	RequestedBy   string `gorm:"size:128;index"`
	CorrelationID string `gorm:"size:64"`
}

// ContentModels 返回内容表，用于 AutoMigrate。
func ContentModels() []any {
	return []any{&Project{}, &Experience{}, &Skill{}, &Setting{}}
}
