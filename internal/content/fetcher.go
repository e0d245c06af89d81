package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fallback sources reported to the fallback hook.
const (
	SourceProjects   = "projects"
	SourceExperience = "experience"
	SourceSkills     = "skills"
	SourceSettings   = "settings"
	SourcePhones     = "phones"
)

// Fetcher 组装 Snapshot：四个查询并发执行，任何一项不可用时透明地回退到静态数据。
type Fetcher struct {
	store      Store
	logger     *slog.Logger
	onFallback func(source string)
}

// NewFetcher 构造 Fetcher。store 可以为 nil，此时始终使用静态数据。
func NewFetcher(store Store, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{store: store, logger: logger}
}

// OnFallback registers a hook called once per substituted source.
func (f *Fetcher) OnFallback(fn func(source string)) {
	f.onFallback = fn
}

// Snapshot 返回完整的内容快照。只有请求上下文被取消时才返回错误。
func (f *Fetcher) Snapshot(ctx context.Context) (Snapshot, error) {
	fallback, err := Fallback()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Profile: fallback.Profile}
	var settings map[string]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := f.projects(gctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || len(items) == 0 {
			f.fallback(SourceProjects, err)
			items = fallback.Projects
		}
		snap.Projects = items
		return nil
	})
	g.Go(func() error {
		items, err := f.experience(gctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || len(items) == 0 {
			f.fallback(SourceExperience, err)
			items = fallback.Experience
		}
		snap.Experience = items
		return nil
	})
	g.Go(func() error {
		items, err := f.skills(gctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || len(items) == 0 {
			f.fallback(SourceSkills, err)
			items = fallback.Skills
		}
		snap.Skills = items
		return nil
	})
	g.Go(func() error {
		values, err := f.settings(gctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			f.fallback(SourceSettings, err)
			values = nil
		}
		settings = values
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("fetch content snapshot: %w", err)
	}

	snap.Profile = f.applySettings(fallback.Profile, settings)
	return snap, nil
}

func (f *Fetcher) projects(ctx context.Context) ([]Project, error) {
	if f.store == nil {
		return nil, ErrNotConfigured
	}
	return f.store.ActiveProjects(ctx)
}

func (f *Fetcher) experience(ctx context.Context) ([]Experience, error) {
	if f.store == nil {
		return nil, ErrNotConfigured
	}
	return f.store.ActiveExperience(ctx)
}

func (f *Fetcher) skills(ctx context.Context) ([]Skill, error) {
	if f.store == nil {
		return nil, ErrNotConfigured
	}
	return f.store.ActiveSkills(ctx)
}

func (f *Fetcher) settings(ctx context.Context) (map[string]string, error) {
	if f.store == nil {
		return nil, ErrNotConfigured
	}
	return f.store.Settings(ctx, SettingKeys...)
}

func (f *Fetcher) fallback(source string, err error) {
	switch {
	case err == nil:
		f.logger.Info("content source empty, using bundled data", slog.String("source", source))
	case errors.Is(err, ErrNotConfigured):
		f.logger.Debug("content store not configured, using bundled data", slog.String("source", source))
	default:
		f.logger.Warn("content lookup failed, using bundled data",
			slog.String("source", source),
			slog.Any("error", err),
		)
	}
	if f.onFallback != nil {
		f.onFallback(source)
	}
}

var socialSettings = []struct {
	key   string
	label string
}{
	{SettingGitHub, "GitHub"},
	{SettingLinkedIn, "LinkedIn"},
	{SettingTwitter, "Twitter"},
}

// applySettings 用设置表覆盖静态的联系方式。缺失或格式错误的值视为未设置。
func (f *Fetcher) applySettings(base Profile, settings map[string]string) Profile {
	profile := base

	if email := strings.TrimSpace(settings[SettingContactEmail]); email != "" {
		profile.Email = email
	}

	phones, err := ParsePhones(settings[SettingContactPhones])
	switch {
	case err != nil:
		f.logger.Warn("malformed contact phones setting, using defaults", slog.Any("error", err))
		f.fallback(SourcePhones, nil)
		profile.Phones = base.Phones
	case len(phones) == 0:
		profile.Phones = base.Phones
	default:
		profile.Phones = phones
	}

	socials := make([]SocialLink, 0, len(socialSettings))
	for _, s := range socialSettings {
		url := strings.TrimSpace(settings[s.key])
		if url == "" {
			url = socialURL(base.Socials, s.label)
		}
		if url != "" {
			socials = append(socials, SocialLink{Label: s.label, URL: url})
		}
	}
	profile.Socials = socials
	return profile
}

func socialURL(links []SocialLink, label string) string {
	for _, l := range links {
		if strings.EqualFold(l.Label, label) {
			return l.URL
		}
	}
	return ""
}

// ParsePhones decodes the contact_phones setting. It accepts a JSON array of
// {"label","number"} objects or of plain strings. Blank input yields no phones
// and no error.
func ParsePhones(raw string) ([]Phone, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var phones []Phone
	if err := json.Unmarshal([]byte(raw), &phones); err != nil {
		var plain []string
		if plainErr := json.Unmarshal([]byte(raw), &plain); plainErr != nil {
			return nil, fmt.Errorf("decode contact phones: %w", err)
		}
		phones = make([]Phone, 0, len(plain))
		for _, n := range plain {
			phones = append(phones, Phone{Number: n})
		}
	}

	out := phones[:0]
	for _, p := range phones {
		p.Label = strings.TrimSpace(p.Label)
		p.Number = strings.TrimSpace(p.Number)
		if p.Number != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
