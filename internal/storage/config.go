package storage

import "fmt"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every payload key, e.g. "diaries/".
	Prefix string
}

// Validate reports the first missing required field.
func (c *MinIOConfig) Validate() error {
	switch {
	case c == nil || c.Endpoint == "":
		return fmt.Errorf("minio config missing endpoint")
	case c.Bucket == "":
		return fmt.Errorf("minio config missing bucket")
	}
	return nil
}

// ObjectName maps a payload key to the object name in the bucket.
func (c *MinIOConfig) ObjectName(key string) string {
	return c.Prefix + key
}
