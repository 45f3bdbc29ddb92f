package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrRender, "render", "blender", "tail output", cause)

	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected render marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	want := "render failure: render: blender: tail output: exit status 1"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrAudioMux, "mux", "", "", nil)
	if !errors.Is(err, ErrAudioMux) {
		t.Fatalf("expected mux marker, got %v", err)
	}
	if err.Error() != "audio mux failure: mux" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("nil marker should default to storage, got %v", err)
	}
	if err.Error() != "storage error: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := FileIDFromContext(ctx); ok {
		t.Fatal("empty context should carry no file id")
	}

	ctx = WithFileID(ctx, 7)
	ctx = WithJobID(ctx, 11)
	ctx = WithStage(ctx, "rendering")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := FileIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("file id = %d, %v", id, ok)
	}
	if id, ok := JobIDFromContext(ctx); !ok || id != 11 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "rendering" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if req, ok := RequestIDFromContext(ctx); !ok || req != "req-1" {
		t.Fatalf("request id = %q, %v", req, ok)
	}

	// Blank values are not stored.
	if _, ok := StageFromContext(WithStage(context.Background(), "")); ok {
		t.Fatal("blank stage should not be stored")
	}
}
