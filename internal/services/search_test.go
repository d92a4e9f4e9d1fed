package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/mkarlsen/userdeck/internal/models"
	"gorm.io/gorm"
)

func boolPtr(b bool) *bool { return &b }

func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	users := []models.User{
		{Email: "alice@example.com", Nickname: "clever_panda", Role: models.RoleAdmin, CreatedAt: base},
		{Email: "bob@example.com", Nickname: "jolly_fox", Role: models.RoleAuthenticated, CreatedAt: base.AddDate(0, 0, 1)},
		{Email: "carol@corp.example", Nickname: "BraveTiger", Role: models.RoleAuthenticated, IsLocked: true, CreatedAt: base.AddDate(0, 0, 2)},
		{Email: "dave@example.com", Nickname: "gentle_whale", Role: models.RoleManager, CreatedAt: base.AddDate(0, 0, 3)},
		{Email: "erin@corp.example", Nickname: "flying_eagle", Role: models.RoleAnonymous, CreatedAt: base.AddDate(0, 0, 4)},
	}
	for i := range users {
		users[i].HashedPassword = "x"
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
	}
}

func newTestSearchService(t *testing.T) (*SearchService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewSearchService(db), db
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		skip, limit int
		wantSkip    int
		wantLimit   int
	}{
		{"defaults", 0, 0, 0, 10},
		{"negative skip clamped", -5, 20, 0, 20},
		{"negative limit defaulted", 10, -1, 10, 10},
		{"limit capped", 0, 500, 0, 100},
		{"in range untouched", 30, 25, 30, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, limit := NormalizePage(tt.skip, tt.limit)
			if skip != tt.wantSkip || limit != tt.wantLimit {
				t.Errorf("NormalizePage(%d, %d) = (%d, %d), expected (%d, %d)",
					tt.skip, tt.limit, skip, limit, tt.wantSkip, tt.wantLimit)
			}
		})
	}
}

func TestSearch_NoFilter(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, users, err := svc.Search(SearchFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, expected 5", total)
	}
	if len(users) != 5 {
		t.Errorf("page length = %d, expected 5", len(users))
	}
	// Oldest first
	if users[0].Nickname != "clever_panda" || users[4].Nickname != "flying_eagle" {
		t.Error("results should be ordered by creation time ascending")
	}
}

func TestSearch_UsernameSubstringCaseInsensitive(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, users, err := svc.Search(SearchFilter{Username: "TIGER"}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Fatalf("total = %d, page = %d, expected one match", total, len(users))
	}
	if users[0].Nickname != "BraveTiger" {
		t.Errorf("matched %q, expected BraveTiger", users[0].Nickname)
	}
}

func TestSearch_EmailSubstring(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, _, err := svc.Search(SearchFilter{Email: "corp.example"}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, expected 2 corp.example matches", total)
	}
}

func TestSearch_RoleExact(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, users, err := svc.Search(SearchFilter{Role: models.RoleAuthenticated}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, expected 2", total)
	}
	for _, u := range users {
		if u.Role != models.RoleAuthenticated {
			t.Errorf("user %s has role %q", u.Nickname, u.Role)
		}
	}
}

func TestSearch_IsLockedDistinguishesNilFromFalse(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	// nil: no constraint
	total, _, _ := svc.Search(SearchFilter{}, 0, 10)
	if total != 5 {
		t.Errorf("nil filter total = %d, expected 5", total)
	}

	// explicit false: only unlocked accounts
	total, _, _ = svc.Search(SearchFilter{IsLocked: boolPtr(false)}, 0, 10)
	if total != 4 {
		t.Errorf("is_locked=false total = %d, expected 4", total)
	}

	// explicit true: only the locked one
	total, users, _ := svc.Search(SearchFilter{IsLocked: boolPtr(true)}, 0, 10)
	if total != 1 {
		t.Fatalf("is_locked=true total = %d, expected 1", total)
	}
	if users[0].Nickname != "BraveTiger" {
		t.Errorf("locked match = %q, expected BraveTiger", users[0].Nickname)
	}
}

func TestSearch_CreatedRangeInclusive(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	from := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

	total, users, err := svc.Search(SearchFilter{CreatedFrom: &from, CreatedTo: &to}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, expected 3 (both bounds inclusive)", total)
	}
	if users[0].Nickname != "jolly_fox" || users[2].Nickname != "gentle_whale" {
		t.Error("range should cover the boundary rows")
	}
}

func TestSearch_ConjunctiveFilters(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, _, err := svc.Search(SearchFilter{
		Email:    "corp.example",
		IsLocked: boolPtr(false),
	}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, expected 1 (filters combine with AND)", total)
	}
}

func TestSearch_SkipBeyondTotal(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, users, err := svc.Search(SearchFilter{}, 100, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, expected the true total 5", total)
	}
	if len(users) != 0 {
		t.Errorf("page length = %d, expected empty page", len(users))
	}
}

func TestSearch_Pagination(t *testing.T) {
	svc, db := newTestSearchService(t)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		u := models.User{
			Email:          fmt.Sprintf("user%02d@example.com", i),
			Nickname:       fmt.Sprintf("user_%02d", i),
			HashedPassword: "x",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	total, page, err := svc.Search(SearchFilter{}, 20, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, expected 25", total)
	}
	if len(page) != 5 {
		t.Errorf("last page length = %d, expected 5", len(page))
	}
	if len(page) > 0 && page[0].Nickname != "user_20" {
		t.Errorf("last page starts at %q, expected user_20", page[0].Nickname)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	svc, db := newTestSearchService(t)
	seedDirectory(t, db)

	total, users, err := svc.Search(SearchFilter{Username: "zzz_nobody"}, 0, 10)
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if total != 0 || len(users) != 0 {
		t.Errorf("expected empty result, got total=%d len=%d", total, len(users))
	}
}
