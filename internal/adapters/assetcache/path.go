package assetcache

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/okian/badgeboard/internal/domain/model"
)

const maxIdentifierLen = 128

// Path returns <root>/<KindDir>/<identifier>.png. Identifiers that could
// escape the kind directory are rejected.
func Path(root string, key model.ResourceKey) (string, error) {
	if !key.Kind.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownKind, key.Kind)
	}
	if err := ValidateIdentifier(key.Identifier); err != nil {
		return "", err
	}
	return filepath.Join(root, key.Kind.Dir(), key.Identifier+model.AssetExtension), nil
}

// ValidateIdentifier accepts badge codes and user names.
func ValidateIdentifier(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	case len(id) > maxIdentifierLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentifier, maxIdentifierLen)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	case strings.ContainsAny(id, "/\\:\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidIdentifier, id)
	}
	return nil
}
