// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"context"
	"fmt"
	"testing"

	"image-review/internal/model"
	"image-review/pkg/database"

	"gorm.io/gorm"
)

// MustOpenDB opens a migrated in-memory SQLite database and registers cleanup.
// The pool is limited to one connection, so concurrent transactions queue up
// the way row locks would serialize them on MySQL.
func MustOpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewUser inserts a user with the given role.
func NewUser(t testing.TB, db *gorm.DB, email string, role int) *model.User {
	t.Helper()

	user := &model.User{Name: email, Email: email, Password: "x", Role: role}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// NewImages inserts n unclaimed images under the given titles (First, Second, ...).
func NewImages(t testing.TB, db *gorm.DB, n int, titles ...string) []model.Image {
	t.Helper()

	images := make([]model.Image, 0, n)
	for i := 0; i < n; i++ {
		img := model.Image{
			MD5:     fmt.Sprintf("%032x", len(titles)*1000+i),
			ImgName: fmt.Sprintf("img-%d.jpg", i),
		}
		img.SetTitles(titles)
		if err := db.Create(&img).Error; err != nil {
			t.Fatalf("create image: %v", err)
		}
		images = append(images, img)
	}
	return images
}

// SetImageState overwrites an image's state, as a reviewer tool would.
func SetImageState(t testing.TB, db *gorm.DB, imageID uint, state int) {
	t.Helper()

	if err := db.Model(&model.Image{}).Where("imageID = ?", imageID).Update("state", state).Error; err != nil {
		t.Fatalf("update image state: %v", err)
	}
}
