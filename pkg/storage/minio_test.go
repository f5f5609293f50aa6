package storage

import (
	"testing"

	"image-review/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestInitMinIOWithoutEndpoint(t *testing.T) {
	assert.Nil(t, InitMinIO(config.MinIOConfig{BucketName: "images"}))
}
