package content

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

var (
	fallbackOnce sync.Once
	fallbackData Snapshot
	fallbackErr  error
)

// Fallback 返回随程序打包的静态内容，内容库不可用时使用。
// 每次调用都返回独立的副本，调用方可以随意修改。
func Fallback() (Snapshot, error) {
	fallbackOnce.Do(func() {
		fallbackData, fallbackErr = parseSnapshotYAML(fallbackYAML)
	})
	if fallbackErr != nil {
		return Snapshot{}, fallbackErr
	}
	return fallbackData.clone(), nil
}

// MustFallback wraps Fallback and panics on failure.
func MustFallback() Snapshot {
	snap, err := Fallback()
	if err != nil {
		panic(err)
	}
	return snap
}

func parseSnapshotYAML(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode fallback content: %w", err)
	}
	if snap.Profile.Name == "" {
		return Snapshot{}, fmt.Errorf("decode fallback content: profile name missing")
	}
	return snap, nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Profile.Phones = append([]Phone(nil), s.Profile.Phones...)
	out.Profile.Socials = append([]SocialLink(nil), s.Profile.Socials...)
	out.Experience = append([]Experience(nil), s.Experience...)
	out.Skills = append([]Skill(nil), s.Skills...)
	out.Projects = make([]Project, len(s.Projects))
	for i, p := range s.Projects {
		p.Tags = append([]string(nil), p.Tags...)
		out.Projects[i] = p
	}
	return out
}
