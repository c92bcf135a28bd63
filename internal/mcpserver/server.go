// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes relscope package tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/render"
)

const conventionsURI = "relscope://conventions"

// Server wraps the MCP server with relscope tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *packageservice.Service
	text    *render.Renderer
	fetcher *fetcher
}

// New creates a new MCP server with all relscope tools registered.
func New(svc *packageservice.Service) *Server {
	s := &Server{svc: svc, text: render.New(true), fetcher: newFetcher()}

	s.mcp = server.NewMCPServer(
		"relscope",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_workspace",
		mcp.WithDescription("List the Office package files (docx, xlsx, pptx, ...) available in the workspace."),
	), s.listWorkspace)

	s.mcp.AddTool(mcp.NewTool("list_packages",
		mcp.WithDescription("List the currently open packages with their IDs."),
	), s.listPackages)

	s.mcp.AddTool(mcp.NewTool("open_package",
		mcp.WithDescription("Open an Office package. Pass a workspace path, an http(s) URL, "+
			"or a base64 data URI. Returns the package summary including its ID."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Workspace path, URL, or data URI")),
		mcp.WithString("name", mcp.Description("File name for URL and data URI sources (e.g. report.docx)")),
	), s.openPackage)

	s.mcp.AddTool(mcp.NewTool("close_package",
		mcp.WithDescription("Close an open package and release its previews."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
	), s.closePackage)

	s.mcp.AddTool(mcp.NewTool("list_parts",
		mcp.WithDescription("List the parts of an open package as a folder tree."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
	), s.listParts)

	s.mcp.AddTool(mcp.NewTool("read_part",
		mcp.WithDescription("Read the XML or text content of a part. Binary parts return metadata only."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Part path inside the package (e.g. word/document.xml)")),
	), s.readPart)

	s.mcp.AddTool(mcp.NewTool("get_dependencies",
		mcp.WithDescription("List the parts a part references through its relationships, and the parts referencing it."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Part path, or [Package] for the package root")),
	), s.getDependencies)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Describe every relationship in the package, grouped by source part."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("update_part",
		mcp.WithDescription("Replace the content of a text part. Read the conventions first via "+
			"the get_conventions tool or the relscope://conventions resource."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Part path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Complete new part content")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_part; the update fails if the part changed since")),
	), s.updatePart)

	s.mcp.AddTool(mcp.NewTool("create_part",
		mcp.WithDescription("Add a new text part. Remember to reference it from a .rels part."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("New part path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Part content")),
	), s.createPart)

	s.mcp.AddTool(mcp.NewTool("delete_part",
		mcp.WithDescription("Remove a part from the package."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Part path")),
	), s.deletePart)

	s.mcp.AddTool(mcp.NewTool("search_parts",
		mcp.WithDescription("Full-text search through the text parts of a package."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchParts)

	s.mcp.AddTool(mcp.NewTool("save_package",
		mcp.WithDescription("Repack the package and write it into the workspace."),
		mcp.WithString("package_id", mcp.Required(), mcp.Description("Package ID")),
		mcp.WithString("path", mcp.Description("Target workspace path; defaults to the opened file or <name>_edited")),
	), s.savePackage)

	s.mcp.AddTool(mcp.NewTool("get_conventions",
		mcp.WithDescription("Returns the OOXML editing conventions. "+
			"Call this before changing parts to keep packages valid."),
	), s.getConventions)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "OOXML Editing Conventions",
			mcp.WithResourceDescription("Rules for editing parts and relationships so that packages stay valid."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// errorResult reports err to the model in words it can act on.
func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("part changed since it was read; read it again and retry")
	case errors.Is(err, apperr.ErrBinaryPart):
		return mcp.NewToolResultError("binary parts cannot be edited as text")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listWorkspace(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.svc.Workspace()
	if err != nil {
		return errorResult(err), nil
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no package files in workspace"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listPackages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.List()), nil
}

func (s *Server) openPackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !isRemoteSource(source) {
		sum, err := s.svc.OpenWorkspace(ctx, source)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(sum), nil
	}

	data, err := s.fetcher.fetch(ctx, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := sourceName(source, req.GetString("name", ""))
	sum, err := s.svc.Open(ctx, name, data)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) closePackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Close(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("closed: %s", id)), nil
}

func (s *Server) listParts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.Tree(id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(s.text.Tree(nodes)), nil
}

// partMeta is what read_part reports about a binary part.
type partMeta struct {
	Path       string `json:"path"`
	MIME       string `json:"mime"`
	Checksum   string `json:"checksum"`
	PreviewRef string `json:"previewRef,omitempty"`
}

func (s *Server) readPart(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, path, errResult := packagePart(req)
	if errResult != nil {
		return errResult, nil
	}
	d, err := s.svc.Part(id, path)
	if err != nil {
		return errorResult(err), nil
	}
	if d.IsBinary {
		return jsonResult(partMeta{Path: d.Path, MIME: d.MIME, Checksum: d.Checksum, PreviewRef: d.PreviewRef}), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("checksum: %s\n\n%s", d.Checksum, d.Content)), nil
}

func (s *Server) getDependencies(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, path, errResult := packagePart(req)
	if errResult != nil {
		return errResult, nil
	}
	deps, err := s.svc.Dependencies(id, path)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(s.text.Dependencies(deps)), nil
}

func (s *Server) getGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.svc.Graph(id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(s.text.Graph(*g)), nil
}

func (s *Server) updatePart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, path, errResult := packagePart(req)
	if errResult != nil {
		return errResult, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.UpdatePart(ctx, id, path, content, req.GetString("if_match", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", d.Path, d.Checksum)), nil
}

func (s *Server) createPart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, path, errResult := packagePart(req)
	if errResult != nil {
		return errResult, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.CreatePart(ctx, id, path, content)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.Path)), nil
}

func (s *Server) deletePart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, path, errResult := packagePart(req)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.svc.DeletePart(ctx, id, path); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) searchParts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	results, err := s.svc.Search(ctx, id, query, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) savePackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.svc.Save(ctx, id, req.GetString("path", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", target)), nil
}

func (s *Server) getConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EditingConventions), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     EditingConventions,
		},
	}, nil
}

func packagePart(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	id, err := req.RequireString("package_id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	path, err := req.RequireString("path")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return id, path, nil
}
