package entities

import (
	"errors"
	"path"
	"regexp"
	"time"
)

// ErrInvalidObjectURI is returned for locators that are not gs://bucket/path
var ErrInvalidObjectURI = errors.New("invalid GCS URI format")

var objectURIPattern = regexp.MustCompile(`^gs://([^/]+)/(.+)$`)

// ObjectURI locates an object in the object store
type ObjectURI struct {
	Bucket string
	Path   string
}

// ParseObjectURI parses a gs://bucket/path locator
func ParseObjectURI(uri string) (ObjectURI, error) {
	match := objectURIPattern.FindStringSubmatch(uri)
	if match == nil {
		return ObjectURI{}, ErrInvalidObjectURI
	}
	return ObjectURI{Bucket: match[1], Path: match[2]}, nil
}

// String returns the gs:// form of the locator
func (u ObjectURI) String() string {
	return "gs://" + u.Bucket + "/" + u.Path
}

// Filename returns the last path element of the object
func (u ObjectURI) Filename() string {
	return path.Base(u.Path)
}

// ObjectAttrs describes a stored object
type ObjectAttrs struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	MD5Hash     string    `json:"md5_hash"`
	PublicURL   string    `json:"public_url"`
}

// Object is an object's content together with its content type
type Object struct {
	URI         ObjectURI
	Content     []byte
	ContentType string
}
