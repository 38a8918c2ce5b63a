package sources

import (
	"context"
	"errors"

	"github.com/kerbaras/adxport/pkg/data"
)

var (
	ErrDuplicateID       = errors.New("source id already exists")
	ErrNotFound          = errors.New("source not found")
	ErrSourceUnreachable = errors.New("source unreachable")
	errInvalidSource     = errors.New("invalid source")
)

// Catalog fetches one page of a source's song list.
type Catalog interface {
	FetchPage(ctx context.Context, source data.Source, page int, search string) ([]data.Song, error)
}

// Lister returns the sources that take part in browsing.
type Lister interface {
	Enabled() ([]data.Source, error)
}

// Resolver finds a source by id.
type Resolver interface {
	Get(id string) (data.Source, bool, error)
}
