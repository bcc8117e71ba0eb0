package user

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryRepository_UpsertProvisions(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	u, err := repo.Upsert(ctx, Profile{
		DingTalkID: "dt-001",
		Name:       "张三",
		Email:      "zhangsan@example.edu",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if u.ID == 0 {
		t.Error("expected assigned id")
	}
	if u.Name != "张三" {
		t.Errorf("Name = %q, want 张三", u.Name)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestInMemoryRepository_UpsertRefreshesExisting(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first, err := repo.Upsert(ctx, Profile{DingTalkID: "dt-001", Name: "张三"})
	if err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	second, err := repo.Upsert(ctx, Profile{
		DingTalkID: "dt-001",
		Name:       "张三丰",
		Avatar:     "https://example.edu/avatar.png",
	})
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected same id, got %d and %d", first.ID, second.ID)
	}
	if second.Name != "张三丰" {
		t.Errorf("Name = %q, want refreshed 张三丰", second.Name)
	}
	if second.Avatar != "https://example.edu/avatar.png" {
		t.Errorf("Avatar = %q, want refreshed value", second.Avatar)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt should survive refresh")
	}
}

func TestInMemoryRepository_GetByID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Upsert(ctx, Profile{DingTalkID: "dt-002", Name: "李四"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DingTalkID != "dt-002" {
		t.Errorf("DingTalkID = %q, want dt-002", got.DingTalkID)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestInMemoryRepository_GetByDingTalkID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, Profile{DingTalkID: "dt-003", Name: "王五"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByDingTalkID(ctx, "dt-003")
	if err != nil {
		t.Fatalf("GetByDingTalkID() error = %v", err)
	}
	if got.Name != "王五" {
		t.Errorf("Name = %q, want 王五", got.Name)
	}

	if _, err := repo.GetByDingTalkID(ctx, "dt-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByDingTalkID(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Upsert(ctx, Profile{DingTalkID: "dt-004", Name: "赵六"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	created.Name = "mutated"

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "赵六" {
		t.Errorf("stored name mutated through returned pointer: %q", got.Name)
	}
}
