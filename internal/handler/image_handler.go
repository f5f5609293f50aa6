package handler

import (
	"strconv"

	"image-review/internal/repository"
	"image-review/internal/service"
	"image-review/pkg/log"

	"github.com/gin-gonic/gin"
)

// ImageHandler 负责图片目录的查询、审核结果写入与文件上传。
type ImageHandler struct {
	imageService service.ImageService
}

// NewImageHandler 创建一个新的 ImageHandler 实例。
func NewImageHandler(imageService service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// titleFilterFromQuery 读取 First..Fifth 查询参数。
func titleFilterFromQuery(c *gin.Context) repository.TitleFilter {
	return repository.TitleFilter{
		First:  c.Query("First"),
		Second: c.Query("Second"),
		Third:  c.Query("Third"),
		Fourth: c.Query("Fourth"),
		Fifth:  c.Query("Fifth"),
	}
}

// List 分页查询图片，可按标题层级与状态过滤。
func (h *ImageHandler) List(c *gin.Context) {
	q := repository.ImageQuery{Titles: titleFilterFromQuery(c)}
	if raw := c.Query("state"); raw != "" {
		state, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "无效的 state", err)
			return
		}
		q.State = &state
	}

	result, err := h.imageService.List(c.Request.Context(), q, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		respondServiceError(c, "ListImages", err)
		return
	}
	respondOK(c, result)
}

// Stats 返回某个标题前缀下的图片统计。
func (h *ImageHandler) Stats(c *gin.Context) {
	stats, err := h.imageService.Stats(c.Request.Context(), titleFilterFromQuery(c))
	if err != nil {
		respondServiceError(c, "ImageStats", err)
		return
	}
	respondOK(c, stats)
}

func (h *ImageHandler) Get(c *gin.Context) {
	imageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, err := h.imageService.Get(c.Request.Context(), imageID)
	if err != nil {
		respondServiceError(c, "GetImage", err)
		return
	}
	respondOK(c, image)
}

// FileURL 返回图片文件的预签名下载链接。
func (h *ImageHandler) FileURL(c *gin.Context) {
	imageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	url, err := h.imageService.FileURL(c.Request.Context(), imageID)
	if err != nil {
		respondServiceError(c, "GetImageURL", err)
		return
	}
	respondOK(c, gin.H{"url": url})
}

// UpdateState 写入审核结果。
func (h *ImageHandler) UpdateState(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	imageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：state 不能为空", err)
		return
	}

	image, err := h.imageService.UpdateState(c.Request.Context(), user, imageID, *req.State)
	if err != nil {
		respondServiceError(c, "UpdateImageState", err)
		return
	}
	respondOK(c, image)
}

// UpdateCaptionRequest 定义了修改图片描述的请求体结构。
type UpdateCaptionRequest struct {
	Caption          string `json:"caption"`
	ChinaElementName string `json:"chinaElementName"`
}

func (h *ImageHandler) UpdateCaption(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	imageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateCaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载", err)
		return
	}

	image, err := h.imageService.UpdateCaption(c.Request.Context(), user, imageID, req.Caption, req.ChinaElementName)
	if err != nil {
		respondServiceError(c, "UpdateImageCaption", err)
		return
	}
	respondOK(c, image)
}

// UploadFile 接收 multipart 表单中的 file 字段，替换图片文件。
func (h *ImageHandler) UploadFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	imageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "缺少文件", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "无法读取上传的文件", err)
		return
	}
	defer file.Close()

	image, err := h.imageService.UploadFile(c.Request.Context(), user, imageID, service.UploadedFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		respondServiceError(c, "UploadImageFile", err)
		return
	}
	log.Infof("User %d uploaded file for image %d", user.ID, imageID)
	respondOK(c, image)
}
