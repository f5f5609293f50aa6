// Package tasks defines the messages this service publishes to Kafka.
package tasks

// CaptionTask asks the external caption generator to (re)describe an uploaded image.
type CaptionTask struct {
	ImageID    uint   `json:"image_id"`
	MD5        string `json:"md5"`
	ObjectName string `json:"object_name"`
	ImgName    string `json:"img_name"`
	Path       string `json:"path"` // First/Second/... of the image
	UploadedBy uint   `json:"uploaded_by"`
}
