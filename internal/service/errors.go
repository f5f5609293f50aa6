package service

import "errors"

// 业务层的哨兵错误，handler 通过 errors.Is 将其映射为 HTTP 状态码。
var (
	ErrInvalidClaim     = errors.New("至少需要一个标题条件，且领取数量必须为正数")
	ErrNoMatchingImages = errors.New("没有符合条件的未领取图片")
	ErrTaskNotFound     = errors.New("检查任务不存在")
	ErrInvalidTaskState = errors.New("任务状态必须为 0、1 或 2")

	ErrImageNotFound     = errors.New("图片不存在")
	ErrInvalidImageState = errors.New("图片审核结果必须为 2 到 4")
	ErrImageNotClaimed   = errors.New("图片不属于当前用户的检查任务")
	ErrImageFileMissing  = errors.New("图片尚未上传文件")
	ErrStorageDisabled   = errors.New("对象存储未配置")

	ErrUserExists         = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserDisabled       = errors.New("用户已被禁用")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidRole        = errors.New("角色必须为 0 或 1")
	ErrInvalidUserState   = errors.New("用户状态必须为 0 或 1")
	ErrInvalidToken       = errors.New("无效或已过期的 token")
)
