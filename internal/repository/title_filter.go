package repository

import (
	"strings"

	"image-review/internal/model"

	"gorm.io/gorm"
)

// titleColumns 是标题层级对应的列名，所有动态条件只能引用这里的列。
var titleColumns = [model.TitleLevels]string{"First", "Second", "Third", "Fourth", "Fifth"}

// TitleFilter 是按标题层级过滤图片的条件，空字符串表示该层级不参与过滤。
type TitleFilter struct {
	First  string
	Second string
	Third  string
	Fourth string
	Fifth  string
}

func (f TitleFilter) values() [model.TitleLevels]string {
	return [model.TitleLevels]string{f.First, f.Second, f.Third, f.Fourth, f.Fifth}
}

// Empty 判断是否没有提供任何层级。
func (f TitleFilter) Empty() bool {
	for _, v := range f.values() {
		if v != "" {
			return false
		}
	}
	return true
}

// Path 按层级顺序用 "/" 拼接已提供的标题。
func (f TitleFilter) Path() string {
	parts := make([]string, 0, model.TitleLevels)
	for _, v := range f.values() {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "/")
}

// Depth 返回最深的已提供层级（1..5），没有提供时为 0。
func (f TitleFilter) Depth() int {
	depth := 0
	for i, v := range f.values() {
		if v != "" {
			depth = i + 1
		}
	}
	return depth
}

// Apply 为每个已提供的层级追加一个绑定参数的等值条件。
func (f TitleFilter) Apply(db *gorm.DB) *gorm.DB {
	for i, v := range f.values() {
		if v != "" {
			db = db.Where(titleColumns[i]+" = ?", v)
		}
	}
	return db
}

// TitleColumn 返回 1 起始层级对应的列名，越界时返回空字符串。
func TitleColumn(level int) string {
	if level < 1 || level > model.TitleLevels {
		return ""
	}
	return titleColumns[level-1]
}
