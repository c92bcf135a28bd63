package ooxml

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/parts"
	"github.com/starford/relscope/internal/preview"
	"github.com/starford/relscope/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoad_SortedEntries(t *testing.T) {
	pkg, err := Load(context.Background(), testutil.Presentation(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pkg.Entries) != len(testutil.PresentationParts()) {
		t.Fatalf("entries = %d, want %d", len(pkg.Entries), len(testutil.PresentationParts()))
	}
	for i := 1; i < len(pkg.Entries); i++ {
		if pkg.Entries[i-1].Path >= pkg.Entries[i].Path {
			t.Errorf("entries not sorted: %q before %q", pkg.Entries[i-1].Path, pkg.Entries[i].Path)
		}
	}
	if pkg.Entries[0].Path != "[Content_Types].xml" {
		t.Errorf("first entry = %q", pkg.Entries[0].Path)
	}
}

func TestLoad_TextAndBinary(t *testing.T) {
	pkg, err := Load(context.Background(), testutil.Presentation(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	slide := pkg.Entry("ppt/slides/slide1.xml")
	if slide == nil || slide.IsBinary || !strings.Contains(slide.Content, "one") {
		t.Errorf("slide entry = %+v", slide)
	}
	img := pkg.Entry("ppt/media/image1.png")
	if img == nil || !img.IsBinary || img.Content != parts.BinaryMarker {
		t.Errorf("image entry = %+v", img)
	}
	if img.PreviewRef != "" {
		t.Error("no preview store configured, PreviewRef should be empty")
	}
	if pkg.Entry("missing.xml") != nil {
		t.Error("Entry(missing) should be nil")
	}
}

func TestLoad_SkipsDirectories(t *testing.T) {
	data := testutil.Zip(t,
		testutil.Part{Path: "word/"},
		testutil.Part{Path: "word/document.xml", Data: "<w:document/>"},
	)
	pkg, err := Load(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkg.Entries) != 1 {
		t.Errorf("entries = %d, want 1", len(pkg.Entries))
	}
}

func TestLoad_UndecodableTextPart(t *testing.T) {
	data := testutil.Zip(t,
		testutil.Part{Path: "bad.xml", Data: "<a>\xff\xfe</a>"},
		testutil.Part{Path: "good.xml", Data: "<a/>"},
	)
	pkg, err := Load(context.Background(), data, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("one bad part must not fail the load: %v", err)
	}
	bad := pkg.Entry("bad.xml")
	if bad.Content != parts.UndecodableMarker || !bad.Undecodable || bad.IsBinary {
		t.Errorf("bad entry = %+v", bad)
	}
	if len(pkg.Issues) != 1 {
		t.Fatalf("issues = %v", pkg.Issues)
	}
	var de *PartDecodeError
	if !errors.As(pkg.Issues[0], &de) || de.Path != "bad.xml" {
		t.Errorf("issue = %v", pkg.Issues[0])
	}
	if pkg.Entry("good.xml").Content != "<a/>" {
		t.Error("good part should decode")
	}
}

func TestLoad_Previews(t *testing.T) {
	store := preview.NewStore()
	data := testutil.Zip(t,
		testutil.Part{Path: "ppt/media/image1.png", Data: testutil.PNG},
		testutil.Part{Path: "ppt/media/oleObject1", Data: "\x00\x01"},
		testutil.Part{Path: "ppt/embeddings/data.bin", Data: "\x00\x01"},
		testutil.Part{Path: "ppt/media/empty.gif"},
	)
	pkg, err := Load(context.Background(), data, WithPreviews(store), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}

	img := pkg.Entry("ppt/media/image1.png")
	p, err := store.Get(img.PreviewRef)
	if err != nil {
		t.Fatalf("image preview: %v", err)
	}
	if p.MIME != "image/png" || string(p.Data) != testutil.PNG {
		t.Errorf("image preview = %q %q", p.MIME, p.Data)
	}

	ole := pkg.Entry("ppt/media/oleObject1")
	p, err = store.Get(ole.PreviewRef)
	if err != nil {
		t.Fatalf("media preview: %v", err)
	}
	if p.MIME != parts.OctetStream {
		t.Errorf("media preview MIME = %q", p.MIME)
	}

	if pkg.Entry("ppt/embeddings/data.bin").PreviewRef != "" {
		t.Error("non-media binary should not get a preview")
	}

	empty := pkg.Entry("ppt/media/empty.gif")
	if empty.PreviewRef != "" {
		t.Error("failed preview should be omitted")
	}
	var pu *PreviewUnavailableError
	if len(pkg.Issues) != 1 || !errors.As(pkg.Issues[0], &pu) {
		t.Errorf("issues = %v", pkg.Issues)
	}

	if got := len(pkg.PreviewRefs()); got != 2 || store.Len() != 2 {
		t.Errorf("preview refs = %d, store = %d, want 2", got, store.Len())
	}
}

func TestLoad_CorruptArchive(t *testing.T) {
	_, err := Load(context.Background(), []byte("not a zip"))
	if !errors.Is(err, apperr.ErrCorruptArchive) {
		t.Errorf("Load = %v, want ErrCorruptArchive", err)
	}
}

func TestLoad_CancelledContextReleasesPreviews(t *testing.T) {
	store := preview.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, testutil.Presentation(t), WithPreviews(store))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d handles after failed load", store.Len())
	}
}

func TestLoad_MaxSize(t *testing.T) {
	data := testutil.Zip(t, testutil.Part{Path: "word/document.xml", Data: strings.Repeat("x", 8<<10)})
	if _, err := Load(context.Background(), data, WithMaxSize(1<<10)); !errors.Is(err, apperr.ErrCorruptArchive) {
		t.Errorf("err = %v, want ErrCorruptArchive", err)
	}
	if _, err := Load(context.Background(), data, WithMaxSize(16<<10)); err != nil {
		t.Errorf("Load within limit: %v", err)
	}
}
