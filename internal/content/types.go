package content

// Snapshot 是一次简历生成所需的全部内容。
type Snapshot struct {
	Profile    Profile      `json:"profile" yaml:"profile"`
	Experience []Experience `json:"experience" yaml:"experience"`
	Skills     []Skill      `json:"skills" yaml:"skills"`
	Projects   []Project    `json:"projects" yaml:"projects"`
}

// Profile 描述页眉中的个人信息与联系方式。
type Profile struct {
	Name    string       `json:"name" yaml:"name"`
	Title   string       `json:"title" yaml:"title"`
	Email   string       `json:"email" yaml:"email"`
	Phones  []Phone      `json:"phones" yaml:"phones"`
	Socials []SocialLink `json:"socials" yaml:"socials"`
	Website string       `json:"website" yaml:"website"`
}

// Phone 是带标签的电话号码，例如 {"label":"Mobile","number":"+20 ..."}。
type Phone struct {
	Label  string `json:"label" yaml:"label"`
	Number string `json:"number" yaml:"number"`
}

// SocialLink 是社交平台链接。
type SocialLink struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Experience 是一段工作经历。
type Experience struct {
	Role        string `json:"role" yaml:"role"`
	Company     string `json:"company" yaml:"company"`
	Period      string `json:"period" yaml:"period"`
	Description string `json:"description" yaml:"description"`
	Current     bool   `json:"current" yaml:"current"`
}

// SkillCategory 决定技能出现在哪一列。
type SkillCategory string

const (
	CategoryFrontend SkillCategory = "frontend"
	CategoryBackend  SkillCategory = "backend"
)

// Skill 是一项技能。Level 仅供网站展示使用。
type Skill struct {
	Name     string        `json:"name" yaml:"name"`
	Category SkillCategory `json:"category" yaml:"category"`
	Level    int           `json:"level" yaml:"level"`
}

// Project 是一个作品。三个链接均为可选。
type Project struct {
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Platform     string   `json:"platform,omitempty" yaml:"platform"`
	Tags         []string `json:"tags" yaml:"tags"`
	LiveURL      string   `json:"live_url,omitempty" yaml:"live_url"`
	PlayStoreURL string   `json:"play_store_url,omitempty" yaml:"play_store_url"`
	GitHubURL    string   `json:"github_url,omitempty" yaml:"github_url"`
}

// Setting keys read from the settings table.
const (
	SettingContactEmail  = "contact_email"
	SettingContactPhones = "contact_phones"
	SettingGitHub        = "social_github"
	SettingLinkedIn      = "social_linkedin"
	SettingTwitter       = "social_twitter"
)

// SettingKeys lists every key the snapshot reads.
var SettingKeys = []string{
	SettingContactEmail,
	SettingContactPhones,
	SettingGitHub,
	SettingLinkedIn,
	SettingTwitter,
}
