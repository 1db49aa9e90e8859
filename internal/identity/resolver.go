package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"rollcall/internal/directory"
	presence "rollcall/internal/presence/domain"
)

// ErrUnresolved reports a valid roster with no matching device.
// Benign: the device belongs to nobody registered in the group.
var ErrUnresolved = errors.New("identity: no matching student")

// Directory lists documents from the remote store.
type Directory interface {
	ListDocuments(ctx context.Context, path string) ([]directory.Document, error)
}

// Resolver maps a hardware address to a registered student within a
// group's roster.
type Resolver struct {
	dir      Directory
	basePath string
	logger   *log.Logger
}

// NewResolver constructs a resolver. basePath is the collection
// holding one subtree per group, e.g. "batches".
func NewResolver(dir Directory, basePath string, logger *log.Logger) *Resolver {
	return &Resolver{dir: dir, basePath: strings.Trim(basePath, "/"), logger: logger}
}

// Resolve returns the student id registered for mac in groupID.
// Hardware address comparison ignores hex case. A roster with no
// match returns ErrUnresolved; store failures pass through unchanged
// so callers can tell "nobody registered" from "lookup failed".
func (r *Resolver) Resolve(ctx context.Context, mac presence.MAC, groupID string) (string, error) {
	if groupID == "" {
		return "", errors.New("identity: empty group id")
	}
	docs, err := r.dir.ListDocuments(ctx, fmt.Sprintf("%s/%s/students", r.basePath, groupID))
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", ErrUnresolved
		}
		return "", err
	}
	for _, doc := range docs {
		registered, ok := doc.String("mac_address")
		if !ok {
			continue
		}
		if !mac.EqualString(registered) {
			continue
		}
		if enrollment, ok := doc.String("enrollment_number"); ok && enrollment != "" {
			return enrollment, nil
		}
		return doc.ID(), nil
	}
	return "", ErrUnresolved
}
