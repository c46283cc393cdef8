package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "a_original.png", MIME: "image/png", Data: []byte("png-bytes")},
		{Filename: "notes.txt", MIME: "text/plain", Data: []byte("hello hello hello")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets returned error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader returned error: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d files, want 2", len(zr.File))
	}
	if zr.File[0].Method != zip.Store {
		t.Fatalf("png entry method = %d, want Store", zr.File[0].Method)
	}
	if zr.File[1].Method != zip.Deflate {
		t.Fatalf("text entry method = %d, want Deflate", zr.File[1].Method)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello hello hello" {
		t.Fatalf("entry content = %q", got)
	}
}
