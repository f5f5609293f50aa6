package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"image-review/internal/model"
	"image-review/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countTasks(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.CheckTask{}).Count(&n).Error)
	return n
}

func imagesOfTask(t *testing.T, db *gorm.DB, taskID uint) []model.Image {
	t.Helper()
	var images []model.Image
	require.NoError(t, db.Where("imageListID = ?", taskID).Find(&images).Error)
	return images
}

func TestClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("ClaimsExactlyRequestedCount", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 5, "A")

		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 3)
		require.NoError(t, err)

		assert.Equal(t, 3, task.ImageCount)
		assert.Equal(t, user.ID, task.UserID)
		assert.Equal(t, model.TaskStateOpen, task.State)
		assert.Equal(t, "A", task.Path)

		claimed := imagesOfTask(t, db, task.ID)
		require.Len(t, claimed, 3)
		for _, img := range claimed {
			assert.Equal(t, model.ImageStateInReview, img.State)
		}

		stored, err := repo.FindByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.ImageCount)
	})

	t.Run("AssignsFewerWhenPoolIsSmaller", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 2, "A", "B")

		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A", Second: "B"}, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, task.ImageCount)
		assert.Equal(t, "A/B", task.Path)
	})

	t.Run("OnlyMatchesAllSuppliedLevels", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 2, "A", "B")
		testsupport.NewImages(t, db, 2, "A", "C")
		testsupport.NewImages(t, db, 2, "Z", "B")

		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A", Second: "C"}, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, task.ImageCount)
		for _, img := range imagesOfTask(t, db, task.ID) {
			titles := img.Titles()
			assert.Equal(t, "A", titles[0])
			assert.Equal(t, "C", titles[1])
		}
	})

	t.Run("SkipsImagesAlreadyClaimed", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 3, "A")

		first, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 2)
		require.NoError(t, err)
		second, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 2)
		require.NoError(t, err)

		assert.Equal(t, 2, first.ImageCount)
		assert.Equal(t, 1, second.ImageCount)
	})

	t.Run("NoMatchLeavesNoTask", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 3, "A")

		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "missing"}, 2)
		require.ErrorIs(t, err, ErrNoCandidates)
		assert.Nil(t, task)
		assert.Zero(t, countTasks(t, db), "claim rollback must remove the task row")
	})

	t.Run("ExhaustedPoolLeavesNoTask", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 1, "A")

		_, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 1)
		require.NoError(t, err)
		_, err = repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 1)
		require.ErrorIs(t, err, ErrNoCandidates)
		assert.Equal(t, int64(1), countTasks(t, db))
	})
}

// TestClaimConcurrent runs two claims against a pool smaller than their combined
// request; together they must assign the whole pool with no image in both tasks.
func TestClaimConcurrent(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	repo := NewCheckTaskRepository(db)
	alice := testsupport.NewUser(t, db, "alice@example.com", model.RoleUser)
	bob := testsupport.NewUser(t, db, "bob@example.com", model.RoleUser)

	const pool = 6
	const requested = 4
	testsupport.NewImages(t, db, pool, "A")

	var wg sync.WaitGroup
	results := make([]*model.CheckTask, 2)
	errs := make([]error, 2)
	for i, user := range []*model.User{alice, bob} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			results[i], errs[i] = repo.Claim(ctx, userID, TitleFilter{First: "A"}, requested)
		}(i, user.ID)
	}
	wg.Wait()

	total := 0
	seen := make(map[uint]uint)
	for i := range results {
		require.NoError(t, errs[i])
		total += results[i].ImageCount
		for _, img := range imagesOfTask(t, db, results[i].ID) {
			owner, dup := seen[img.ID]
			assert.False(t, dup, "image %d claimed by tasks %d and %d", img.ID, owner, results[i].ID)
			seen[img.ID] = results[i].ID
		}
	}
	assert.Equal(t, pool, total)
	assert.Len(t, seen, pool)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	repo := NewCheckTaskRepository(db)
	user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
	testsupport.NewImages(t, db, 3, "A")

	task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 3)
	require.NoError(t, err)
	images := imagesOfTask(t, db, task.ID)
	require.Len(t, images, 3)

	require.NoError(t, repo.Reconcile(ctx, []uint{task.ID}))
	got, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CheckedCount)
	assert.Equal(t, model.TaskStateOpen, got.State)

	testsupport.SetImageState(t, db, images[0].ID, model.ImageStateApproved)
	testsupport.SetImageState(t, db, images[1].ID, model.ImageStateRejected)
	require.NoError(t, repo.Reconcile(ctx, []uint{task.ID}))
	got, err = repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CheckedCount)
	assert.Equal(t, model.TaskStateOpen, got.State)

	testsupport.SetImageState(t, db, images[2].ID, model.ImageStateFlagged)
	require.NoError(t, repo.Reconcile(ctx, []uint{task.ID}))
	// a second pass changes nothing
	require.NoError(t, repo.Reconcile(ctx, []uint{task.ID}))
	got, err = repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CheckedCount)
	assert.Equal(t, model.TaskStateCompleted, got.State)

	assert.NoError(t, repo.Reconcile(ctx, nil))
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()

	t.Run("ReleasesImagesAndDeletesTask", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 4, "A")

		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 3)
		require.NoError(t, err)
		claimed := imagesOfTask(t, db, task.ID)
		testsupport.SetImageState(t, db, claimed[0].ID, model.ImageStateApproved)

		released, err := repo.Abandon(ctx, task.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), released)
		assert.Zero(t, countTasks(t, db))
		assert.Empty(t, imagesOfTask(t, db, task.ID))

		for _, img := range claimed {
			var reloaded model.Image
			require.NoError(t, db.First(&reloaded, img.ID).Error)
			assert.Equal(t, model.ImageStateUnclaimed, reloaded.State)
			assert.Nil(t, reloaded.ImageListID)
		}
	})

	t.Run("RejectsNonOwner", func(t *testing.T) {
		db := testsupport.MustOpenDB(t)
		repo := NewCheckTaskRepository(db)
		owner := testsupport.NewUser(t, db, "owner@example.com", model.RoleUser)
		other := testsupport.NewUser(t, db, "other@example.com", model.RoleUser)
		testsupport.NewImages(t, db, 2, "A")

		task, err := repo.Claim(ctx, owner.ID, TitleFilter{First: "A"}, 2)
		require.NoError(t, err)

		_, err = repo.Abandon(ctx, task.ID, other.ID)
		require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
		assert.Equal(t, int64(1), countTasks(t, db))
		assert.Len(t, imagesOfTask(t, db, task.ID), 2)
	})
}

func TestUpdateState(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	repo := NewCheckTaskRepository(db)
	owner := testsupport.NewUser(t, db, "owner@example.com", model.RoleUser)
	other := testsupport.NewUser(t, db, "other@example.com", model.RoleUser)
	testsupport.NewImages(t, db, 1, "A")

	task, err := repo.Claim(ctx, owner.ID, TitleFilter{First: "A"}, 1)
	require.NoError(t, err)

	updated, err := repo.UpdateState(ctx, task.ID, owner.ID, model.TaskStateReserved)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateReserved, updated.State)

	// same value again is not an error
	_, err = repo.UpdateState(ctx, task.ID, owner.ID, model.TaskStateReserved)
	require.NoError(t, err)

	_, err = repo.UpdateState(ctx, task.ID, other.ID, model.TaskStateCompleted)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	images := imagesOfTask(t, db, task.ID)
	require.Len(t, images, 1)
	assert.Equal(t, model.ImageStateInReview, images[0].State, "task state writes never touch images")
}

func TestFindPageByUser(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	repo := NewCheckTaskRepository(db)
	user := testsupport.NewUser(t, db, "a@example.com", model.RoleUser)
	other := testsupport.NewUser(t, db, "b@example.com", model.RoleUser)
	testsupport.NewImages(t, db, 4, "A")

	var ids []uint
	for i := 0; i < 3; i++ {
		task, err := repo.Claim(ctx, user.ID, TitleFilter{First: "A"}, 1)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	_, err := repo.Claim(ctx, other.ID, TitleFilter{First: "A"}, 1)
	require.NoError(t, err)

	total, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	page, err := repo.FindPageByUser(ctx, user.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID, "newest task first")
	assert.Equal(t, ids[1], page[1].ID)

	page, err = repo.FindPageByUser(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)
}
