package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio/internal/database"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStore struct {
	projects   []Project
	experience []Experience
	skills     []Skill
	settings   map[string]string
	err        error
}

func (s *stubStore) ActiveProjects(context.Context) ([]Project, error) {
	return s.projects, s.err
}

func (s *stubStore) ActiveExperience(context.Context) ([]Experience, error) {
	return s.experience, s.err
}

func (s *stubStore) ActiveSkills(context.Context) ([]Skill, error) {
	return s.skills, s.err
}

func (s *stubStore) Settings(context.Context, ...string) (map[string]string, error) {
	return s.settings, s.err
}

type fallbackRecorder struct {
	mu      sync.Mutex
	sources []string
}

func (r *fallbackRecorder) record(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func (r *fallbackRecorder) sorted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.sources...)
	sort.Strings(out)
	return out
}

func TestSnapshotWithoutStoreUsesFallback(t *testing.T) {
	want := MustFallback()
	rec := &fallbackRecorder{}

	f := NewFetcher(nil, discardLogger())
	f.OnFallback(rec.record)

	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Projects) != len(want.Projects) {
		t.Fatalf("projects = %d, want %d", len(snap.Projects), len(want.Projects))
	}
	if len(snap.Experience) != len(want.Experience) {
		t.Fatalf("experience = %d, want %d", len(snap.Experience), len(want.Experience))
	}
	if len(snap.Skills) != len(want.Skills) {
		t.Fatalf("skills = %d, want %d", len(snap.Skills), len(want.Skills))
	}
	if snap.Profile.Email != want.Profile.Email {
		t.Fatalf("email = %q, want %q", snap.Profile.Email, want.Profile.Email)
	}
	if len(snap.Profile.Phones) != len(want.Profile.Phones) {
		t.Fatalf("phones = %d, want %d", len(snap.Profile.Phones), len(want.Profile.Phones))
	}
	if len(snap.Profile.Socials) != 3 {
		t.Fatalf("socials = %d, want 3", len(snap.Profile.Socials))
	}

	got := rec.sorted()
	expected := []string{SourceExperience, SourceProjects, SourceSettings, SourceSkills}
	if len(got) != len(expected) {
		t.Fatalf("fallback sources = %v, want %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("fallback sources = %v, want %v", got, expected)
		}
	}
}

func TestSnapshotStoreErrorFallsBack(t *testing.T) {
	store := &stubStore{err: errors.New("connection refused")}
	snap, err := NewFetcher(store, discardLogger()).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	want := MustFallback()
	if len(snap.Projects) != len(want.Projects) || snap.Projects[0].Title != want.Projects[0].Title {
		t.Fatalf("expected fallback projects, got %+v", snap.Projects)
	}
}

func TestSnapshotPrefersStoreData(t *testing.T) {
	store := &stubStore{
		projects:   []Project{{Title: "Only Project", Description: "d"}},
		experience: []Experience{{Role: "CTO", Company: "Acme", Period: "2024"}},
		skills:     []Skill{{Name: "Go", Category: CategoryBackend}},
		settings: map[string]string{
			SettingContactEmail:  "me@example.com",
			SettingContactPhones: `[{"label":"Office","number":"+1 555 0100"}]`,
			SettingGitHub:        "https://github.com/acme",
		},
	}
	rec := &fallbackRecorder{}
	f := NewFetcher(store, discardLogger())
	f.OnFallback(rec.record)

	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(rec.sorted()) != 0 {
		t.Fatalf("unexpected fallbacks: %v", rec.sorted())
	}
	if len(snap.Projects) != 1 || snap.Projects[0].Title != "Only Project" {
		t.Fatalf("projects = %+v", snap.Projects)
	}
	if snap.Profile.Email != "me@example.com" {
		t.Fatalf("email = %q", snap.Profile.Email)
	}
	if len(snap.Profile.Phones) != 1 || snap.Profile.Phones[0].Number != "+1 555 0100" {
		t.Fatalf("phones = %+v", snap.Profile.Phones)
	}
	if snap.Profile.Socials[0].Label != "GitHub" || snap.Profile.Socials[0].URL != "https://github.com/acme" {
		t.Fatalf("socials = %+v", snap.Profile.Socials)
	}
	// 未设置的社交链接保留默认值
	if snap.Profile.Socials[1].URL != MustFallback().Profile.Socials[1].URL {
		t.Fatalf("linkedin = %+v", snap.Profile.Socials[1])
	}
}

func TestSnapshotEmptyListsFallBack(t *testing.T) {
	store := &stubStore{
		experience: []Experience{{Role: "CTO"}},
		settings:   map[string]string{},
	}
	rec := &fallbackRecorder{}
	f := NewFetcher(store, discardLogger())
	f.OnFallback(rec.record)

	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Experience) != 1 {
		t.Fatalf("experience = %+v", snap.Experience)
	}
	if len(snap.Projects) == 0 || len(snap.Skills) == 0 {
		t.Fatal("expected fallback projects and skills")
	}
	got := rec.sorted()
	if len(got) != 2 || got[0] != SourceProjects || got[1] != SourceSkills {
		t.Fatalf("fallback sources = %v", got)
	}
}

func TestSnapshotMalformedPhonesUseDefaults(t *testing.T) {
	store := &stubStore{
		projects:   []Project{{Title: "P"}},
		experience: []Experience{{Role: "R"}},
		skills:     []Skill{{Name: "S"}},
		settings:   map[string]string{SettingContactPhones: "{not json"},
	}
	rec := &fallbackRecorder{}
	f := NewFetcher(store, discardLogger())
	f.OnFallback(rec.record)

	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	want := MustFallback().Profile.Phones
	if len(snap.Profile.Phones) != len(want) || snap.Profile.Phones[0] != want[0] {
		t.Fatalf("phones = %+v, want %+v", snap.Profile.Phones, want)
	}
	if got := rec.sorted(); len(got) != 1 || got[0] != SourcePhones {
		t.Fatalf("fallback sources = %v", got)
	}
}

func TestSnapshotCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(&stubStore{}, discardLogger()).Snapshot(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Snapshot() error = %v, want context.Canceled", err)
	}
}

func TestParsePhones(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "blank", raw: "  ", want: 0},
		{name: "objects", raw: `[{"label":"Mobile","number":"+1"},{"label":"Fax","number":" "}]`, want: 1},
		{name: "strings", raw: `["+1 555", "+2 666"]`, want: 2},
		{name: "object not array", raw: `{"number":"+1"}`, wantErr: true},
		{name: "garbage", raw: `nope`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePhones(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePhones() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Fatalf("ParsePhones() = %+v, want %d entries", got, tt.want)
			}
		})
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGormStoreActiveFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	rows := []database.Project{
		{Title: "Second", SortOrder: 2, Active: true, Tags: datatypes.JSON(`["Go","Redis"]`)},
		{Title: "Hidden", SortOrder: 0, Active: false},
		{Title: "First", SortOrder: 1, Active: true, LiveURL: "https://first.example.com"},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed projects: %v", err)
	}
	if err := db.Create(&database.Setting{Key: SettingContactEmail, Value: "a@b.c"}).Error; err != nil {
		t.Fatalf("seed setting: %v", err)
	}
	if err := db.Create(&database.Setting{Key: "unrelated", Value: "x"}).Error; err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	store := NewGormStore(db)
	projects, err := store.ActiveProjects(context.Background())
	if err != nil {
		t.Fatalf("ActiveProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0].Title != "First" || projects[1].Title != "Second" {
		t.Fatalf("projects = %+v", projects)
	}
	if len(projects[1].Tags) != 2 || projects[1].Tags[0] != "Go" {
		t.Fatalf("tags = %v", projects[1].Tags)
	}

	settings, err := store.Settings(context.Background(), SettingKeys...)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if len(settings) != 1 || settings[SettingContactEmail] != "a@b.c" {
		t.Fatalf("settings = %v", settings)
	}
}

func TestGormStoreNilDB(t *testing.T) {
	_, err := NewGormStore(nil).ActiveSkills(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ActiveSkills() error = %v, want ErrNotConfigured", err)
	}
}

func TestFallbackReturnsIndependentCopies(t *testing.T) {
	a := MustFallback()
	a.Projects[0].Tags[0] = "mutated"
	a.Profile.Phones[0].Number = "0"

	b := MustFallback()
	if b.Projects[0].Tags[0] == "mutated" || b.Profile.Phones[0].Number == "0" {
		t.Fatal("Fallback() shares memory between calls")
	}
}
