package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"image-review/internal/model"
	"image-review/internal/repository"
	"image-review/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root string, rel string, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func TestImportDir(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	imageRepo := repository.NewImageRepository(db)
	titleRepo := repository.NewImageTitleRepository(db)
	svc := NewImportService(imageRepo, titleRepo, nil)

	root := t.TempDir()
	writeTestFile(t, root, "Festival/Lantern/red.jpg", "red")
	writeTestFile(t, root, "Festival/Lantern/copy-of-red.jpg", "red")
	writeTestFile(t, root, "Festival/Dragon/boat.PNG", "boat")
	writeTestFile(t, root, "a/b/c/d/e/f/deep.jpg", "deep")
	writeTestFile(t, root, "top.gif", "top")
	writeTestFile(t, root, "Festival/readme.md", "skip me")

	report, err := svc.ImportDir(ctx, root, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 4, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
	assert.Zero(t, report.Failed)
	// Festival, Lantern, Dragon, a..f
	assert.Equal(t, 9, report.TitlesCreated)

	page, total, err := imageRepo.FindWithPagination(ctx, repository.ImageQuery{
		Titles: repository.TitleFilter{First: "Festival", Second: "Dragon"},
	}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "boat.PNG", page[0].ImgName)
	assert.Equal(t, "Festival/Dragon/boat.PNG", page[0].ImgPath)
	assert.Equal(t, model.ImageStateUnclaimed, page[0].State)

	page, _, err = imageRepo.FindWithPagination(ctx, repository.ImageQuery{
		Titles: repository.TitleFilter{First: "a"},
	}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, [model.TitleLevels]string{"a", "b", "c", "d", "e"}, page[0].Titles())

	titles, err := titleRepo.FindAll(ctx)
	require.NoError(t, err)
	levels := map[string]int{}
	for _, tt := range titles {
		levels[tt.Title] = tt.Level
	}
	assert.Equal(t, 1, levels["Festival"])
	assert.Equal(t, 2, levels["Lantern"])
	assert.Equal(t, 6, levels["f"])

	// a second run reuses every node and skips every file
	report, err = svc.ImportDir(ctx, root, ImportOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Zero(t, report.TitlesCreated)
	assert.Equal(t, 5, report.Duplicates)
}

func TestImportDirUpload(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	store := newMemoryStore()
	svc := NewImportService(repository.NewImageRepository(db), repository.NewImageTitleRepository(db), store)

	root := t.TempDir()
	writeTestFile(t, root, "A/one.jpg", "one")

	report, err := svc.ImportDir(ctx, root, ImportOptions{Upload: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	var image model.Image
	require.NoError(t, db.First(&image).Error)
	assert.Equal(t, "images/"+image.MD5+".jpg", image.ImgPath)
	assert.Equal(t, []byte("one"), store.objects[image.ImgPath])
}

func TestImportDirDryRun(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	svc := NewImportService(repository.NewImageRepository(db), repository.NewImageTitleRepository(db), nil)

	root := t.TempDir()
	writeTestFile(t, root, "A/one.jpg", "one")

	report, err := svc.ImportDir(ctx, root, ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	var n int64
	require.NoError(t, db.Model(&model.Image{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestImportDirErrors(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	svc := NewImportService(repository.NewImageRepository(db), repository.NewImageTitleRepository(db), nil)

	_, err := svc.ImportDir(ctx, t.TempDir(), ImportOptions{Upload: true})
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = svc.ImportDir(ctx, filepath.Join(t.TempDir(), "missing"), ImportOptions{})
	assert.Error(t, err)
}

func TestTitleTree(t *testing.T) {
	ctx := context.Background()
	db := testsupport.MustOpenDB(t)
	titleRepo := repository.NewImageTitleRepository(db)
	svc := NewTitleService(titleRepo)

	root := &model.ImageTitle{Title: "Festival", Level: 1}
	require.NoError(t, titleRepo.Create(ctx, root))
	child := &model.ImageTitle{Title: "Lantern", Level: 2, ParentID: &root.ID}
	require.NoError(t, titleRepo.Create(ctx, child))
	require.NoError(t, titleRepo.Create(ctx, &model.ImageTitle{Title: "Red", Level: 3, ParentID: &child.ID}))
	require.NoError(t, titleRepo.Create(ctx, &model.ImageTitle{Title: "Architecture", Level: 1}))

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Festival", tree[0].Title)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Lantern", tree[0].Children[0].Title)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "Red", tree[0].Children[0].Children[0].Title)
	assert.Empty(t, tree[1].Children)

	top, err := svc.Children(ctx, nil)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Architecture", top[0].Title)

	children, err := svc.Children(ctx, &root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Lantern", children[0].Title)
}
