// store/errors.go

package store

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MaxDocumentSize is the largest BSON document the server accepts.
const MaxDocumentSize = 16 * 1024 * 1024

// ErrRejected marks a document the store cannot accept. Retrying it cannot succeed.
var ErrRejected = errors.New("document rejected by store")

// Server error codes that mean the document itself is unacceptable.
var rejectionCodes = map[int]bool{
	2:     true, // BadValue
	22:    true, // InvalidBSON
	52:    true, // DollarPrefixedFieldName
	10334: true, // BSONObjectTooLarge
}

// IsRejected reports whether err means the document was refused.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// classify wraps server-side document rejections in ErrRejected.
func classify(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if rejectionCodes[e.Code] {
				return fmt.Errorf("%w: %w", ErrRejected, err)
			}
		}
	}
	return err
}
