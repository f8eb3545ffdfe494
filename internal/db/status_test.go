package db

import (
	"context"
	"testing"
	"time"

	"github.com/openfeeds/homefeed/internal/models"
)

func TestStatusRepository_IDsByAccounts(t *testing.T) {
	database := setupTestDB(t)
	repo := NewStatusRepository(database)
	ctx := context.Background()

	now := time.Now().UTC()
	statuses := []models.Status{
		{ID: 1, AccountID: 1, CreatedAt: now, UpdatedAt: now},
		{ID: 2, AccountID: 2, CreatedAt: now, UpdatedAt: now},
		{ID: 3, AccountID: 1, CreatedAt: now, UpdatedAt: now},
		{ID: 4, AccountID: 3, CreatedAt: now, UpdatedAt: now},
		{ID: 10, AccountID: 2, CreatedAt: now, UpdatedAt: now},
	}
	for i := range statuses {
		if err := database.Create(&statuses[i]).Error; err != nil {
			t.Fatalf("seed status: %v", err)
		}
	}

	id2 := int64(2)
	id0 := int64(0)
	id4 := int64(4)

	tests := []struct {
		name     string
		accounts []int64
		limit    int
		maxID    *int64
		sinceID  *int64
		minID    *int64
		want     []int64
	}{
		{"descending with limit", []int64{1, 2}, 2, nil, nil, nil, []int64{10, 3}},
		{"max_id excludes bound", []int64{1, 2}, 10, &id4, nil, nil, []int64{3, 2, 1}},
		{"since_id excludes bound", []int64{1, 2}, 10, nil, &id2, nil, []int64{10, 3}},
		{"min_id ascending then reversed", []int64{1, 2}, 3, nil, nil, &id0, []int64{3, 2, 1}},
		{"min_id and max_id window", []int64{1, 2}, 10, &id4, nil, &id0, []int64{3, 2, 1}},
		{"no accounts", nil, 10, nil, nil, nil, []int64{}},
		{"unknown account", []int64{42}, 10, nil, nil, nil, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.IDsByAccounts(ctx, tt.accounts, tt.limit, tt.maxID, tt.sinceID, tt.minID)
			if err != nil {
				t.Fatalf("IDsByAccounts() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("IDsByAccounts() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("IDsByAccounts()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStatusRepository_FetchProjections(t *testing.T) {
	database := setupTestDB(t)
	repo := NewStatusRepository(database)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for _, s := range []models.Status{
		{ID: 1, AccountID: 1, CreatedAt: now, UpdatedAt: now.Add(time.Minute)},
		{ID: 2, AccountID: 1, CreatedAt: now, UpdatedAt: now.Add(2 * time.Minute)},
		{ID: 3, AccountID: 1, CreatedAt: now, UpdatedAt: now.Add(3 * time.Minute)},
	} {
		status := s
		if err := database.Create(&status).Error; err != nil {
			t.Fatalf("seed status: %v", err)
		}
	}

	// Input order is preserved and unknown ids are skipped.
	got, err := repo.FetchProjections(ctx, []int64{3, 99, 1, 2})
	if err != nil {
		t.Fatalf("FetchProjections() error: %v", err)
	}
	wantIDs := []int64{3, 1, 2}
	if len(got) != len(wantIDs) {
		t.Fatalf("FetchProjections() returned %d rows, want %d", len(got), len(wantIDs))
	}
	for i, projection := range got {
		if projection.ID != wantIDs[i] {
			t.Errorf("FetchProjections()[%d].ID = %d, want %d", i, projection.ID, wantIDs[i])
		}
		if projection.UpdatedAt.IsZero() {
			t.Errorf("FetchProjections()[%d].UpdatedAt is zero", i)
		}
	}

	empty, err := repo.FetchProjections(ctx, nil)
	if err != nil {
		t.Fatalf("FetchProjections(nil) error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("FetchProjections(nil) = %v, want empty", empty)
	}
}
