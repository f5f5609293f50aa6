//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"image-review/internal/model"
	"image-review/internal/testsupport"
	"image-review/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"
)

// openMySQL 启动一个 MySQL 容器，需要本地可用的 Docker。
// 运行方式: go test -tags integration ./internal/repository/...
func openMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("image_review"),
		tcmysql.WithUsername("review"),
		tcmysql.WithPassword("review"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "charset=utf8mb4", "parseTime=True", "loc=Local")
	require.NoError(t, err)

	db, err := database.OpenMySQL(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestMySQLClaimSkipsLockedRows(t *testing.T) {
	ctx := context.Background()
	db := openMySQL(t)
	repo := NewCheckTaskRepository(db)

	const (
		pool      = 20
		reviewers = 8
		requested = 4
	)
	testsupport.NewImages(t, db, pool, "A", "B")
	users := make([]*model.User, reviewers)
	for i := range users {
		users[i] = testsupport.NewUser(t, db, string(rune('a'+i))+"@example.com", model.RoleUser)
	}

	var wg sync.WaitGroup
	tasks := make([]*model.CheckTask, reviewers)
	errs := make([]error, reviewers)
	for i, u := range users {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			tasks[i], errs[i] = repo.Claim(ctx, userID, TitleFilter{First: "A", Second: "B"}, requested)
		}(i, u.ID)
	}
	wg.Wait()

	total := 0
	seen := make(map[uint]bool)
	for i := range tasks {
		if errs[i] != nil {
			assert.True(t, errors.Is(errs[i], ErrNoCandidates), "unexpected error: %v", errs[i])
			continue
		}
		total += tasks[i].ImageCount
		for _, img := range imagesOfTask(t, db, tasks[i].ID) {
			assert.False(t, seen[img.ID], "image %d claimed twice", img.ID)
			seen[img.ID] = true
		}
	}
	assert.Equal(t, pool, total)
	assert.Len(t, seen, pool)

	var orphans int64
	require.NoError(t, db.Model(&model.CheckTask{}).Where("imageCount = 0").Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestMySQLReconcileAndAbandon(t *testing.T) {
	ctx := context.Background()
	db := openMySQL(t)
	repo := NewCheckTaskRepository(db)
	user := testsupport.NewUser(t, db, "r@example.com", model.RoleUser)
	testsupport.NewImages(t, db, 3, "A")

	task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 3)
	require.NoError(t, err)
	images := imagesOfTask(t, db, task.ID)
	for _, img := range images {
		testsupport.SetImageState(t, db, img.ID, model.ImageStateApproved)
	}
	require.NoError(t, repo.Reconcile(ctx, []uint{task.ID}))

	var reloaded model.CheckTask
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	assert.Equal(t, 3, reloaded.CheckedCount)
	assert.Equal(t, model.TaskStateCompleted, reloaded.State)

	released, err := repo.Abandon(ctx, task.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), released)
}
