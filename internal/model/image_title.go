package model

// ImageTitle 对应 'image_title' 表，记录图片标题层级树的一个节点。
type ImageTitle struct {
	ID       uint   `gorm:"column:imageTitleID;primaryKey;autoIncrement" json:"imageTitleID"`
	Title    string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	ParentID *uint  `gorm:"column:parentID;index" json:"parentID"`
	Level    int    `gorm:"column:level;not null" json:"level"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ImageTitle) TableName() string {
	return "image_title"
}

// ImageTitleNode represents a node in the title tree.
type ImageTitleNode struct {
	ID       uint              `json:"imageTitleID"`
	Title    string            `json:"title"`
	Level    int               `json:"level"`
	ParentID *uint             `json:"parentID"`
	Children []*ImageTitleNode `json:"children"`
}
