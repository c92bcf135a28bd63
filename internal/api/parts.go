package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// partPath extracts the part path from the URL (everything after the
// parts/ or deps/ segment). Supports encoded slashes from OpenAPI clients
// (e.g. ppt%2Fslides%2Fslide1.xml).
func partPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ifMatch returns the If-Match header without ETag quoting.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req PartContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return "", false
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return "", false
	}
	return *req.Content, true
}

func writePart(w http.ResponseWriter, status int, d *PartDetail) {
	if d.Checksum != "" {
		w.Header().Set("ETag", `"`+d.Checksum+`"`)
	}
	writeJSON(w, status, d)
}

// ListParts handles GET /api/packages/{id}/parts.
//
//	@Summary		List the parts of a package
//	@Tags			parts
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	PartListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/parts [get]
func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Parts(packageID(r))
	if err != nil {
		writeError(w, "list parts", err)
		return
	}
	writeJSON(w, http.StatusOK, PartListResponse{Parts: items})
}

// GetPart handles GET /api/packages/{id}/parts/*.
//
//	@Summary		Get a single part
//	@Tags			parts
//	@Produce		json
//	@Param			id		path		string	true	"Package ID"
//	@Param			path	path		string	true	"Part path"
//	@Success		200		{object}	PartDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/parts/{path} [get]
func (h *Handler) GetPart(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Part(packageID(r), partPath(r))
	if err != nil {
		writeError(w, "get part", err)
		return
	}
	writePart(w, http.StatusOK, d)
}

// SelectPart handles GET /api/packages/{id}/select.
//
//	@Summary		Resolve a viewer location to a part
//	@Description	Falls back to the first part when the pathname names no part.
//	@Tags			parts
//	@Produce		json
//	@Param			id			path		string	true	"Package ID"
//	@Param			pathname	query		string	false	"Viewer location"
//	@Success		200			{object}	PartDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/select [get]
func (h *Handler) SelectPart(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Select(packageID(r), r.URL.Query().Get("pathname"))
	if err != nil {
		writeError(w, "select part", err)
		return
	}
	writePart(w, http.StatusOK, d)
}

// PutPart handles PUT /api/packages/{id}/parts/*.
//
//	@Summary		Update a part
//	@Description	JSON bodies edit text parts. Any other body replaces a binary part.
//	@Tags			parts
//	@Accept			json,octet-stream
//	@Produce		json
//	@Param			id			path		string				true	"Package ID"
//	@Param			path		path		string				true	"Part path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		PartContentRequest	false	"New text content"
//	@Success		200			{object}	PartDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		415			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/parts/{path} [put]
func (h *Handler) PutPart(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		content, ok := decodeContent(w, r)
		if !ok {
			return
		}
		d, err := h.svc.UpdatePart(r.Context(), packageID(r), partPath(r), content, ifMatch(r))
		if err != nil {
			writeError(w, "update part", err)
			return
		}
		writePart(w, http.StatusOK, d)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "read part body", err)
		return
	}
	d, err := h.svc.ReplaceBinary(r.Context(), packageID(r), partPath(r), data)
	if err != nil {
		writeError(w, "replace binary part", err)
		return
	}
	writePart(w, http.StatusOK, d)
}

// CreatePart handles POST /api/packages/{id}/parts/*.
//
//	@Summary		Create a text part
//	@Tags			parts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Package ID"
//	@Param			path	path		string				true	"Part path"
//	@Param			body	body		PartContentRequest	true	"Part content"
//	@Success		201		{object}	PartDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/parts/{path} [post]
func (h *Handler) CreatePart(w http.ResponseWriter, r *http.Request) {
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}
	d, err := h.svc.CreatePart(r.Context(), packageID(r), partPath(r), content)
	if err != nil {
		writeError(w, "create part", err)
		return
	}
	writePart(w, http.StatusCreated, d)
}

// DeletePart handles DELETE /api/packages/{id}/parts/*.
//
//	@Summary		Delete a part
//	@Tags			parts
//	@Param			id		path	string	true	"Package ID"
//	@Param			path	path	string	true	"Part path"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/parts/{path} [delete]
func (h *Handler) DeletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePart(r.Context(), packageID(r), partPath(r)); err != nil {
		writeError(w, "delete part", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDependencies handles GET /api/packages/{id}/deps/*.
//
//	@Summary		Get the dependencies and dependents of a part
//	@Tags			parts
//	@Produce		json
//	@Param			id		path		string	true	"Package ID"
//	@Param			path	path		string	true	"Part path"
//	@Success		200		{object}	packageservice.Dependencies
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/deps/{path} [get]
func (h *Handler) GetDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := h.svc.Dependencies(packageID(r), partPath(r))
	if err != nil {
		writeError(w, "get dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}
