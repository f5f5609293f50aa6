package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/internal/testsupport"
	"image-review/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryStore is an in-memory object store.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) PutObject(_ context.Context, objectName string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = data
	return nil
}

func (s *memoryStore) PresignedURL(_ context.Context, objectName string, expiry time.Duration) (string, error) {
	return "https://store.local/" + objectName + "?expires=" + expiry.String(), nil
}

type recordingProducer struct {
	mu    sync.Mutex
	tasks []tasks.CaptionTask
	err   error
}

func (p *recordingProducer) ProduceCaptionTask(_ context.Context, task tasks.CaptionTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

type imageFixture struct {
	db       *gorm.DB
	svc      ImageService
	tasks    repository.CheckTaskRepository
	store    *memoryStore
	producer *recordingProducer
}

func newImageFixture(t *testing.T, withStore bool) imageFixture {
	t.Helper()
	db := testsupport.MustOpenDB(t)
	f := imageFixture{
		db:       db,
		tasks:    repository.NewCheckTaskRepository(db),
		producer: &recordingProducer{},
	}
	if withStore {
		f.store = newMemoryStore()
		f.svc = NewImageService(repository.NewImageRepository(db), f.tasks, f.store, f.producer, time.Hour, 50)
	} else {
		f.svc = NewImageService(repository.NewImageRepository(db), f.tasks, nil, f.producer, time.Hour, 50)
	}
	return f
}

func TestImageListAndStats(t *testing.T) {
	ctx := context.Background()
	f := newImageFixture(t, false)
	testsupport.NewImages(t, f.db, 3, "A", "B")
	testsupport.NewImages(t, f.db, 1, "A", "C")
	testsupport.NewImages(t, f.db, 2, "Z")

	page, err := f.svc.List(ctx, repository.ImageQuery{Titles: repository.TitleFilter{First: "A"}}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Images, 2)

	page, err = f.svc.List(ctx, repository.ImageQuery{}, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, page.Limit)

	page, err = f.svc.List(ctx, repository.ImageQuery{}, math.MaxInt, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Empty(t, page.Images)

	stats, err := f.svc.Stats(ctx, repository.TitleFilter{First: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, 2, stats.ChildrenLevel)
	assert.Equal(t, []repository.TitleCount{{Title: "B", Count: 3}, {Title: "C", Count: 1}}, stats.Children)

	stats, err = f.svc.Stats(ctx, repository.TitleFilter{Fifth: "deep"})
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.Children)
	assert.NotNil(t, stats.ByState)

	_, err = f.svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestImageUpdateStateOwnership(t *testing.T) {
	ctx := context.Background()
	f := newImageFixture(t, false)
	owner := testsupport.NewUser(t, f.db, "owner@example.com", model.RoleUser)
	other := testsupport.NewUser(t, f.db, "other@example.com", model.RoleUser)
	admin := testsupport.NewUser(t, f.db, "admin@example.com", model.RoleAdmin)
	images := testsupport.NewImages(t, f.db, 2, "A")

	_, err := f.svc.UpdateState(ctx, owner, images[0].ID, model.ImageStateApproved)
	assert.ErrorIs(t, err, ErrImageNotClaimed, "unclaimed images cannot be reviewed")

	task, err := f.tasks.Claim(ctx, owner.ID, repository.TitleFilter{First: "A"}, 2)
	require.NoError(t, err)
	claimed, err := f.svc.List(ctx, repository.ImageQuery{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, claimed.Images, 2)
	imageID := claimed.Images[0].ID

	for _, state := range []int{model.ImageStateUnclaimed, model.ImageStateInReview, 5, -1} {
		_, err = f.svc.UpdateState(ctx, owner, imageID, state)
		assert.ErrorIs(t, err, ErrInvalidImageState)
	}

	_, err = f.svc.UpdateState(ctx, other, imageID, model.ImageStateApproved)
	assert.ErrorIs(t, err, ErrImageNotClaimed)

	updated, err := f.svc.UpdateState(ctx, owner, imageID, model.ImageStateRejected)
	require.NoError(t, err)
	assert.Equal(t, model.ImageStateRejected, updated.State)
	require.NotNil(t, updated.ImageListID)
	assert.Equal(t, task.ID, *updated.ImageListID)

	_, err = f.svc.UpdateState(ctx, admin, imageID, model.ImageStateFlagged)
	require.NoError(t, err)

	captioned, err := f.svc.UpdateCaption(ctx, owner, imageID, "a red lantern", "灯笼")
	require.NoError(t, err)
	assert.Equal(t, "a red lantern", captioned.Caption)

	reloaded, err := f.svc.Get(ctx, imageID)
	require.NoError(t, err)
	assert.Equal(t, model.ImageStateFlagged, reloaded.State)
	assert.Equal(t, "灯笼", reloaded.ChinaElementName)
}

func TestImageUploadFile(t *testing.T) {
	ctx := context.Background()
	f := newImageFixture(t, true)
	admin := testsupport.NewUser(t, f.db, "admin@example.com", model.RoleAdmin)
	images := testsupport.NewImages(t, f.db, 1, "A", "B")

	content := []byte("fake image bytes")
	image, err := f.svc.UploadFile(ctx, admin, images[0].ID, UploadedFile{
		Name:        "Lantern.JPG",
		Size:        int64(len(content)),
		ContentType: "image/jpeg",
		Content:     bytes.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, "66241640793dd6a9acc0b275a5a2c807", image.MD5)
	assert.Equal(t, "images/"+image.MD5+".jpg", image.ImgPath)
	assert.Equal(t, content, f.store.objects[image.ImgPath])

	require.Len(t, f.producer.tasks, 1)
	assert.Equal(t, image.ID, f.producer.tasks[0].ImageID)
	assert.Equal(t, "A/B", f.producer.tasks[0].Path)
	assert.Equal(t, admin.ID, f.producer.tasks[0].UploadedBy)

	url, err := f.svc.FileURL(ctx, image.ID)
	require.NoError(t, err)
	assert.Contains(t, url, image.ImgPath)

	_, err = f.svc.UploadFile(ctx, admin, images[0].ID, UploadedFile{Name: "notes.txt", Content: bytes.NewReader(nil)})
	assert.Error(t, err)
}

func TestImageUploadSurvivesProducerFailure(t *testing.T) {
	ctx := context.Background()
	f := newImageFixture(t, true)
	f.producer.err = errors.New("broker down")
	admin := testsupport.NewUser(t, f.db, "admin@example.com", model.RoleAdmin)
	images := testsupport.NewImages(t, f.db, 1, "A")

	_, err := f.svc.UploadFile(ctx, admin, images[0].ID, UploadedFile{
		Name:    "x.png",
		Content: bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
}

func TestImageFileOpsWithoutStorage(t *testing.T) {
	ctx := context.Background()
	f := newImageFixture(t, false)
	admin := testsupport.NewUser(t, f.db, "admin@example.com", model.RoleAdmin)
	images := testsupport.NewImages(t, f.db, 1, "A")

	_, err := f.svc.FileURL(ctx, images[0].ID)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = f.svc.UploadFile(ctx, admin, images[0].ID, UploadedFile{Name: "x.jpg", Content: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.JPG"))
	assert.True(t, IsImageFile("dir/b.webp"))
	assert.False(t, IsImageFile("c.txt"))
	assert.False(t, IsImageFile("noext"))
}
