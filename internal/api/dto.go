package api

import (
	"github.com/starford/relscope/internal/index"
	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/storage"
	"github.com/starford/relscope/internal/tree"
)

// OpenPackageRequest opens a workspace file by path.
type OpenPackageRequest struct {
	Path string `json:"path" example:"decks/q1.pptx" validate:"required"`
}

// PartContentRequest is the request body for creating or updating a text part.
type PartContentRequest struct {
	Content *string `json:"content" example:"<w:document/>" validate:"required"`
}

// SavePackageRequest is the request body for saving a package into the workspace.
type SavePackageRequest struct {
	Path string `json:"path,omitempty" example:"decks/q1_edited.pptx"`
}

// Summary describes an open package (aliased from the domain layer).
type Summary = packageservice.Summary

// PartDetail is the full part response type (aliased from the domain layer).
type PartDetail = packageservice.PartDetail

// PackageListResponse wraps open packages.
type PackageListResponse struct {
	Packages []Summary `json:"packages" validate:"required"`
}

// PartListResponse wraps the parts of a package.
type PartListResponse struct {
	Parts []packageservice.PartInfo `json:"parts" validate:"required"`
}

// TreeResponse wraps the folder/file tree of a package.
type TreeResponse struct {
	Nodes []*tree.Node `json:"nodes" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// WorkspaceResponse wraps workspace package files.
type WorkspaceResponse struct {
	Files []storage.PackageFile `json:"files" validate:"required"`
}

// SaveResponse reports where a package was saved.
type SaveResponse struct {
	Path string `json:"path" example:"decks/q1.pptx" validate:"required"`
}

// ViewerSettings are handed to viewer clients as configured.
type ViewerSettings struct {
	BasePath            string   `json:"basePath" example:"/"`
	AutoCollapseTags    string   `json:"autoCollapseTags" example:"w:p, w:t"`
	AutoCollapseTagList []string `json:"autoCollapseTagList"`
}
