package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	"github.com/okian/badgeboard/internal/adapters/imaging"
	"github.com/okian/badgeboard/internal/domain/model"
)

type assetResponse struct {
	Kind       string `json:"kind"`
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Stride     int    `json:"stride,omitempty"`
}

// AssetHandler resolves badges and user pictures through the cache.
type AssetHandler struct {
	deps   AssetDependencies
	maxDim int
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(deps AssetDependencies, maxDim int) *AssetHandler {
	return &AssetHandler{deps: deps, maxDim: maxDim}
}

// HandleGet handles GET /assets/{kind}/{id}?w=&h=. It answers 200 with the
// bitmap layout when the image is ready and 202 while it is being fetched.
func (h *AssetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_asset"
	kind, err := model.ParseAssetKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	size, err := h.parseSize(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	id := r.PathValue("id")

	res, err := h.deps.FetchOrLoad(r.Context(), kind, id, size)
	switch {
	case err == nil:
	case errors.Is(err, assetcache.ErrInvalidIdentifier), errors.Is(err, assetcache.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrScale), errors.Is(err, imaging.ErrConversion):
		writeError(w, http.StatusUnprocessableEntity, "undecodable", err)
		return
	case errors.Is(err, imaging.ErrAllocate):
		writeError(w, http.StatusServiceUnavailable, "allocation_failed", err)
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	out := assetResponse{Kind: kind.String(), Identifier: id, Status: res.Status.String()}
	if res.Status != assetcache.StatusReady {
		writeJSON(w, http.StatusAccepted, out)
		return
	}
	defer res.Bitmap.Release()
	out.Width, out.Height, out.Stride = res.Bitmap.Width, res.Bitmap.Height, res.Bitmap.Stride
	writeJSON(w, http.StatusOK, out)
}

func (h *AssetHandler) parseSize(r *http.Request) (model.Size, error) {
	q := r.URL.Query()
	width, err := strconv.Atoi(q.Get("w"))
	if err != nil {
		return model.Size{}, fmt.Errorf("w: %w", err)
	}
	height, err := strconv.Atoi(q.Get("h"))
	if err != nil {
		return model.Size{}, fmt.Errorf("h: %w", err)
	}
	size := model.Size{Width: width, Height: height}
	if size.Empty() || width > h.maxDim || height > h.maxDim {
		return model.Size{}, fmt.Errorf("size %s outside 1..%d", size, h.maxDim)
	}
	return size, nil
}
