// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// AssetKind identifies a family of remote images.
type AssetKind int

const (
	AssetBadge AssetKind = iota + 1
	AssetUserPicture
)

// String returns the lowercase name used in logs, metrics and URLs.
func (k AssetKind) String() string {
	switch k {
	case AssetBadge:
		return "badge"
	case AssetUserPicture:
		return "userpic"
	default:
		return "unknown"
	}
}

// Dir returns the cache and media directory for the kind.
func (k AssetKind) Dir() string {
	switch k {
	case AssetBadge:
		return "Badge"
	case AssetUserPicture:
		return "UserPic"
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k AssetKind) Valid() bool {
	return k == AssetBadge || k == AssetUserPicture
}

// Request returns the fetch request kind that downloads assets of this kind.
func (k AssetKind) Request() RequestKind {
	switch k {
	case AssetBadge:
		return RequestBadge
	case AssetUserPicture:
		return RequestUserPicture
	default:
		return RequestUnknown
	}
}

// ParseAssetKind accepts "badge" and "userpic" (case-insensitive).
func ParseAssetKind(s string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "badge":
		return AssetBadge, nil
	case "userpic", "user_picture", "userpicture":
		return AssetUserPicture, nil
	default:
		return 0, fmt.Errorf("unknown asset kind %q", s)
	}
}

// AssetExtension is the fixed extension of every cached image.
const AssetExtension = ".png"

// ResourceKey identifies a cacheable remote image. Equality is structural.
type ResourceKey struct {
	Kind       AssetKind
	Identifier string
}

func (k ResourceKey) String() string {
	return k.Kind.String() + "/" + k.Identifier
}

// RequestKey returns the ledger key of the download for this resource.
func (k ResourceKey) RequestKey() RequestKey {
	return RequestKey{Kind: k.Kind.Request(), ID: k.Identifier}
}

// Size is a target display box in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}
