// Package model 定义了与数据库表对应的 Go 结构体。
package model

// 用户角色，按整数比较。
const (
	RoleUser  = 0
	RoleAdmin = 1
)

// 账号状态。
const (
	UserStateActive   = 0
	UserStateDisabled = 1
)

// User 对应数据库中的 'user' 表。
type User struct {
	ID       uint   `gorm:"column:userID;primaryKey;autoIncrement" json:"userID"`
	Name     string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email    string `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Password string `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Role     int    `gorm:"column:role;not null;default:0" json:"role"`
	State    int    `gorm:"column:state;not null;default:0" json:"state"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "user"
}

// IsAdmin 判断用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
