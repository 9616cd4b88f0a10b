package storage

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
)

const defaultContentType = "application/octet-stream"

// well known document types, used when the system mime table has no entry
var contentTypeFallbacks = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".json": "application/json",
}

// ContentType picks the content type to serve: the stored type when it is
// meaningful, otherwise a guess from the object's extension.
func ContentType(objectPath, stored string) string {
	if stored != "" && stored != defaultContentType {
		return stored
	}

	ext := strings.ToLower(path.Ext(objectPath))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := contentTypeFallbacks[ext]; ok {
		return ct
	}
	return defaultContentType
}

// PublicURL returns the public https address of an object
func PublicURL(uri entities.ObjectURI) string {
	u := url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + uri.Bucket + "/" + uri.Path,
	}
	return u.String()
}
