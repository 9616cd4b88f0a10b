package repositories

import (
	"context"
	"errors"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
)

// ErrObjectNotFound is returned when the requested object does not exist
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore defines read access to stored documents
type ObjectStore interface {
	Get(ctx context.Context, uri entities.ObjectURI) (*entities.Object, error)
	Stat(ctx context.Context, uri entities.ObjectURI) (*entities.ObjectAttrs, error)
}
