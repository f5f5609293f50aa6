package model

// 检查任务状态。
const (
	TaskStateOpen      = 0
	TaskStateReserved  = 1
	TaskStateCompleted = 2
)

// CheckTask 对应 'checkImageList' 表：一个审核人员领取的一批图片。
// CheckedCount 由图片状态推导，ImageCount 为实际分配的图片数量。
type CheckTask struct {
	ID           uint   `gorm:"column:checkImageListID;primaryKey;autoIncrement" json:"checkImageListID"`
	UserID       uint   `gorm:"column:userID;not null;index" json:"userID"`
	State        int    `gorm:"column:state;not null;default:0" json:"state"`
	ImageCount   int    `gorm:"column:imageCount;not null;default:0" json:"imageCount"`
	CheckedCount int    `gorm:"column:checked_count;not null;default:0" json:"checked_count"`
	Path         string `gorm:"column:path;type:varchar(1024)" json:"path"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CheckTask) TableName() string {
	return "checkImageList"
}

// ValidTaskState 判断 state 是否是合法的任务状态。
func ValidTaskState(state int) bool {
	return state == TaskStateOpen || state == TaskStateReserved || state == TaskStateCompleted
}
