package blob

import (
	"errors"
	"strings"
)

var (
	ErrNoBucket = errors.New("blob: bucket missing")
	ErrNoRegion = errors.New("blob: region missing")
)

type S3BlobConfig struct {
	BucketName string
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	// Prefix scopes the theme inside the bucket, e.g. "themes/dawn".
	Prefix       string
	MaxAssetSize int64
}

func (c *S3BlobConfig) Validate() error {
	if c.BucketName == "" {
		return ErrNoBucket
	}
	if c.Region == "" {
		return ErrNoRegion
	}
	return nil
}

func (c *S3BlobConfig) prefix() string {
	p := strings.Trim(c.Prefix, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
