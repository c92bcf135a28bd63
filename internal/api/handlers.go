package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/packageservice"
)

const (
	defaultMaxUpload   = 64 << 20
	maxJSONBody        = 10 << 20
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

// Handler holds API route handlers.
type Handler struct {
	svc       *packageservice.Service
	maxUpload int64
	viewer    ViewerSettings
}

// NewHandler creates a new Handler. A non-positive maxUpload selects the
// default upload limit.
func NewHandler(svc *packageservice.Service, maxUpload int64, viewer ViewerSettings) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	if viewer.AutoCollapseTagList == nil {
		viewer.AutoCollapseTagList = []string{}
	}
	return &Handler{svc: svc, maxUpload: maxUpload, viewer: viewer}
}

func packageID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// readUpload returns the package bytes and file name carried by r, either
// as the multipart field "file" or as a raw body named by the name query
// parameter.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return "", nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing file field: %w", apperr.ErrInvalidPath)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return path.Base(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return path.Base(r.URL.Query().Get("name")), data, nil
}

// Settings handles GET /api/settings.
//
//	@Summary		Get viewer settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	ViewerSettings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.viewer)
}

// Workspace handles GET /api/workspace.
//
//	@Summary		List package files in the workspace
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	WorkspaceResponse
//	@Security		BearerAuth
//	@Router			/workspace [get]
func (h *Handler) Workspace(w http.ResponseWriter, _ *http.Request) {
	files, err := h.svc.Workspace()
	if err != nil {
		writeError(w, "list workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, WorkspaceResponse{Files: files})
}

// ListPackages handles GET /api/packages.
//
//	@Summary		List open packages
//	@Tags			packages
//	@Produce		json
//	@Success		200	{object}	PackageListResponse
//	@Security		BearerAuth
//	@Router			/packages [get]
func (h *Handler) ListPackages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PackageListResponse{Packages: h.svc.List()})
}

// OpenPackage handles POST /api/packages.
//
//	@Summary		Open a package
//	@Description	Accepts a multipart upload (field "file"), a raw body with ?name=, or JSON naming a workspace file.
//	@Tags			packages
//	@Accept			json,mpfd,octet-stream
//	@Produce		json
//	@Param			body	body		OpenPackageRequest	false	"Workspace file"
//	@Param			file	formData	file				false	"Package upload"
//	@Success		201		{object}	Summary
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages [post]
func (h *Handler) OpenPackage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		var req OpenPackageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
			return
		}
		if strings.TrimSpace(req.Path) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
			return
		}
		sum, err := h.svc.OpenWorkspace(r.Context(), req.Path)
		if err != nil {
			writeError(w, "open workspace package", err)
			return
		}
		writeJSON(w, http.StatusCreated, sum)
		return
	}

	name, data, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, "read upload", err)
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("empty upload"))
		return
	}
	sum, err := h.svc.Open(r.Context(), name, data)
	if err != nil {
		writeError(w, "open package", err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

// GetPackage handles GET /api/packages/{id}.
//
//	@Summary		Get an open package
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	Summary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id} [get]
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Get(packageID(r))
	if err != nil {
		writeError(w, "get package", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ClosePackage handles DELETE /api/packages/{id}.
//
//	@Summary		Close a package
//	@Tags			packages
//	@Param			id	path	string	true	"Package ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id} [delete]
func (h *Handler) ClosePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), packageID(r)); err != nil {
		writeError(w, "close package", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadPackage handles POST /api/packages/{id}/reload.
//
//	@Summary		Reload a package
//	@Description	Replaces the package with the uploaded file, or re-reads its workspace file when the body is empty.
//	@Tags			packages
//	@Accept			mpfd,octet-stream
//	@Produce		json
//	@Param			id		path		string	true	"Package ID"
//	@Param			file	formData	file	false	"Replacement package"
//	@Success		200		{object}	Summary
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/reload [post]
func (h *Handler) ReloadPackage(w http.ResponseWriter, r *http.Request) {
	_, data, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, "read upload", err)
		return
	}
	if len(data) == 0 {
		data = nil
	}
	sum, err := h.svc.Reload(r.Context(), packageID(r), data)
	if err != nil {
		writeError(w, "reload package", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// SavePackage handles POST /api/packages/{id}/save.
//
//	@Summary		Save a package into the workspace
//	@Tags			packages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Package ID"
//	@Param			body	body		SavePackageRequest	false	"Target path"
//	@Success		200		{object}	SaveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/save [post]
func (h *Handler) SavePackage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req SavePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	target, err := h.svc.Save(r.Context(), packageID(r), req.Path)
	if err != nil {
		writeError(w, "save package", err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Path: target})
}

// DownloadPackage handles GET /api/packages/{id}/download.
//
//	@Summary		Download the repacked package
//	@Tags			packages
//	@Produce		octet-stream
//	@Param			id	path	string	true	"Package ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/download [get]
func (h *Handler) DownloadPackage(w http.ResponseWriter, r *http.Request) {
	dl, err := h.svc.Repack(r.Context(), packageID(r))
	if err != nil {
		writeError(w, "repack package", err)
		return
	}
	ct, ok := officeMIME[strings.ToLower(path.Ext(dl.Name))]
	if !ok {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.Header().Set("Content-Disposition", contentDisposition(dl.Name))
	_, _ = w.Write(dl.Data)
}

// GetTree handles GET /api/packages/{id}/tree.
//
//	@Summary		Get the folder tree of a package
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	TreeResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/tree [get]
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Tree(packageID(r))
	if err != nil {
		writeError(w, "build tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: nodes})
}

// GetGraph handles GET /api/packages/{id}/graph.
//
//	@Summary		Get the relationship graph of a package
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	packageservice.GraphView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/graph [get]
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(packageID(r))
	if err != nil {
		writeError(w, "build graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Search handles GET /api/packages/{id}/search.
//
//	@Summary		Search part content
//	@Tags			packages
//	@Produce		json
//	@Param			id		path		string	true	"Package ID"
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/packages/{id}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	results, err := h.svc.Search(r.Context(), packageID(r), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
