package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/preview"
	"github.com/starford/relscope/internal/storage"
	"github.com/starford/relscope/internal/testutil"
)

func testServer(t *testing.T) (*Server, *storage.FS) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := packageservice.New(preview.NewStore(), packageservice.WithWorkspace(store))
	srv := New(svc)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_workspace":   srv.listWorkspace,
		"list_packages":    srv.listPackages,
		"open_package":     srv.openPackage,
		"close_package":    srv.closePackage,
		"list_parts":       srv.listParts,
		"read_part":        srv.readPart,
		"get_dependencies": srv.getDependencies,
		"get_graph":        srv.getGraph,
		"update_part":      srv.updatePart,
		"create_part":      srv.createPart,
		"delete_part":      srv.deletePart,
		"search_parts":     srv.searchParts,
		"save_package":     srv.savePackage,
		"get_conventions":  srv.getConventions,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// openDeck writes the fixture into the workspace, opens it and returns its ID.
func openDeck(t *testing.T, srv *Server, store *storage.FS) string {
	t.Helper()
	if err := store.Write("deck.pptx", testutil.Presentation(t)); err != nil {
		t.Fatal(err)
	}
	r := callTool(t, srv, "open_package", map[string]any{"source": "deck.pptx"})
	if r.IsError {
		t.Fatalf("open_package: %s", resultText(r))
	}
	var sum packageservice.Summary
	if err := json.Unmarshal([]byte(resultText(r)), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return sum.ID
}

func TestOpenWorkspaceAndList(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	if text := resultText(callTool(t, srv, "list_workspace", map[string]any{})); text != "deck.pptx" {
		t.Errorf("list_workspace = %q", text)
	}
	text := resultText(callTool(t, srv, "list_packages", map[string]any{}))
	if !strings.Contains(text, id) {
		t.Errorf("list_packages missing %s: %s", id, text)
	}
}

func TestOpenDataURI(t *testing.T) {
	srv, _ := testServer(t)
	uri := "data:application/vnd.openxmlformats-officedocument.presentationml.presentation;base64," +
		base64.StdEncoding.EncodeToString(testutil.Presentation(t))

	r := callTool(t, srv, "open_package", map[string]any{"source": uri, "name": "upload.pptx"})
	if r.IsError {
		t.Fatalf("open data URI: %s", resultText(r))
	}
	var sum packageservice.Summary
	json.Unmarshal([]byte(resultText(r)), &sum)
	if sum.Name != "upload.pptx" || sum.Parts != 10 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestOpenDataURI_NotZip(t *testing.T) {
	srv, _ := testServer(t)
	uri := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))
	r := callTool(t, srv, "open_package", map[string]any{"source": uri})
	if !r.IsError || !strings.Contains(resultText(r), "not a ZIP") {
		t.Errorf("expected ZIP signature error, got %q", resultText(r))
	}
}

func TestOpenURL_BlockedHost(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "open_package", map[string]any{"source": "http://127.0.0.1/deck.pptx"})
	if !r.IsError || !strings.Contains(resultText(r), "blocked host") {
		t.Errorf("expected blocked host, got %q", resultText(r))
	}
}

func TestOpenMissingWorkspaceFile(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "open_package", map[string]any{"source": "nope.docx"})
	if !r.IsError {
		t.Error("expected error for missing workspace file")
	}
}

func TestListParts_Tree(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	text := resultText(callTool(t, srv, "list_parts", map[string]any{"package_id": id}))
	for _, want := range []string{"├── _rels/", "ppt/", "slide1.xml", "└── [Content_Types].xml"} {
		if !strings.Contains(text, want) {
			t.Errorf("tree missing %q:\n%s", want, text)
		}
	}
}

func TestReadAndUpdatePart(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	r := callTool(t, srv, "read_part", map[string]any{"package_id": id, "path": "ppt/slides/slide1.xml"})
	head, body, _ := strings.Cut(resultText(r), "\n\n")
	if body != `<p:sld xmlns:p="urn:p">one</p:sld>` {
		t.Fatalf("read_part body = %q", body)
	}
	sum := strings.TrimPrefix(head, "checksum: ")

	args := map[string]any{"package_id": id, "path": "ppt/slides/slide1.xml", "content": "<p:sld/>", "if_match": sum}
	if r := callTool(t, srv, "update_part", args); r.IsError {
		t.Fatalf("update_part: %s", resultText(r))
	}
	// The stale checksum no longer matches.
	r = callTool(t, srv, "update_part", args)
	if !r.IsError || !strings.Contains(resultText(r), "changed since") {
		t.Errorf("stale update = %q", resultText(r))
	}
}

func TestReadBinaryPart(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	r := callTool(t, srv, "read_part", map[string]any{"package_id": id, "path": "ppt/media/image1.png"})
	var meta partMeta
	if err := json.Unmarshal([]byte(resultText(r)), &meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.MIME != "image/png" || meta.PreviewRef == "" {
		t.Errorf("meta = %+v", meta)
	}

	r = callTool(t, srv, "update_part", map[string]any{"package_id": id, "path": "ppt/media/image1.png", "content": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "binary") {
		t.Errorf("binary update = %q", resultText(r))
	}
}

func TestGetDependencies(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	text := resultText(callTool(t, srv, "get_dependencies", map[string]any{"package_id": id, "path": "ppt/slides/slide1.xml"}))
	for _, want := range []string{"dependencies (2)", "ppt/media/image1.png", "dependents (1)", "ppt/presentation.xml"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q:\n%s", want, text)
		}
	}
}

func TestGetGraph(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	text := resultText(callTool(t, srv, "get_graph", map[string]any{"package_id": id}))
	if !strings.Contains(text, "--slideLayout-> ppt/slideLayouts/slideLayout1.xml") {
		t.Errorf("graph:\n%s", text)
	}
}

func TestCreateDeleteAndSearch(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	r := callTool(t, srv, "create_part", map[string]any{"package_id": id, "path": "ppt/notes/note1.xml", "content": "<n>needle</n>"})
	if text := resultText(r); text != "created: ppt/notes/note1.xml" {
		t.Errorf("create_part = %q", text)
	}

	text := resultText(callTool(t, srv, "search_parts", map[string]any{"package_id": id, "query": "needle"}))
	if !strings.Contains(text, "ppt/notes/note1.xml") {
		t.Errorf("search_parts = %s", text)
	}

	callTool(t, srv, "delete_part", map[string]any{"package_id": id, "path": "ppt/notes/note1.xml"})
	text = resultText(callTool(t, srv, "search_parts", map[string]any{"package_id": id, "query": "needle"}))
	if strings.Contains(text, "note1.xml") {
		t.Errorf("search after delete = %s", text)
	}
}

func TestSavePackage(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	r := callTool(t, srv, "save_package", map[string]any{"package_id": id, "path": "out/deck.pptx"})
	if text := resultText(r); text != "saved: out/deck.pptx" {
		t.Fatalf("save_package = %q", text)
	}
	if _, err := store.Read("out/deck.pptx"); err != nil {
		t.Errorf("saved file: %v", err)
	}
}

func TestClosePackage(t *testing.T) {
	srv, store := testServer(t)
	id := openDeck(t, srv, store)

	callTool(t, srv, "close_package", map[string]any{"package_id": id})
	r := callTool(t, srv, "list_parts", map[string]any{"package_id": id})
	if !r.IsError {
		t.Error("expected error for closed package")
	}
}

func TestMissingArguments(t *testing.T) {
	srv, _ := testServer(t)
	for _, tool := range []string{"read_part", "update_part", "search_parts", "open_package"} {
		if r := callTool(t, srv, tool, map[string]any{}); !r.IsError {
			t.Errorf("%s without arguments should fail", tool)
		}
	}
}

func TestConventions(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "get_conventions", nil)); text != EditingConventions {
		t.Error("get_conventions mismatch")
	}
	res, err := srv.readConventionsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.URI != conventionsURI {
		t.Errorf("resource = %+v", res[0])
	}
}

func TestFetcher_HTTP(t *testing.T) {
	f := newFetcher()
	f.checkHost = func(string) error { return nil }

	data := testutil.Presentation(t)
	ts := newTestServer(t, data)
	got, err := f.fetch(context.Background(), ts.URL+"/files/deck.pptx")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != len(data) {
		t.Errorf("fetched %d bytes, want %d", len(got), len(data))
	}

	_, err = f.fetch(context.Background(), ts.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("missing = %v", err)
	}
}

func TestSourceName(t *testing.T) {
	tests := map[string][2]string{
		"explicit":  {"data:x;base64,AA==", "my deck.pptx"},
		"from URL":  {"https://example.com/files/report.docx?x=1", ""},
		"generated": {"data:x;base64,AA==", ""},
	}
	want := map[string]string{
		"explicit": "my_deck.pptx",
		"from URL": "report.docx",
	}
	for name, tc := range tests {
		got := sourceName(tc[0], tc[1])
		if w, ok := want[name]; ok && got != w {
			t.Errorf("%s: sourceName = %q, want %q", name, got, w)
		}
		if name == "generated" && len(got) != 36 {
			t.Errorf("generated name = %q", got)
		}
	}
}

func TestErrorResult_PassesThrough(t *testing.T) {
	r := errorResult(errors.New("boom"))
	if !r.IsError || resultText(r) != "boom" {
		t.Errorf("errorResult = %+v", r)
	}
}

func newTestServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/deck.pptx" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(ts.Close)
	return ts
}
