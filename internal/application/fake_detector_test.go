package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"damage-detect/internal/domain/entity"
)

// fakeDetector отвечает заранее заданными результатами; release задерживает ответ.
type fakeDetector struct {
	imageResult *entity.DetectionResult
	videoResult *entity.UploadResponse
	err         error
	release     chan struct{}

	calls   int32
	started chan struct{}
	once    sync.Once
	healthy bool
	stopErr error
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{started: make(chan struct{})}
}

func (f *fakeDetector) enter(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	f.once.Do(func() { close(f.started) })
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeDetector) DetectImage(ctx context.Context, file *entity.SelectedFile) (*entity.DetectionResult, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.imageResult, nil
}

func (f *fakeDetector) DetectVideo(ctx context.Context, file *entity.SelectedFile) (*entity.UploadResponse, error) {
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.videoResult, nil
}

func (f *fakeDetector) CheckHealth(ctx context.Context) bool { return f.healthy }

func (f *fakeDetector) StopLiveFeed(ctx context.Context) error { return f.stopErr }

func (f *fakeDetector) LiveFeedURL() string { return "http://localhost:5000/video_feed" }

func (f *fakeDetector) ResolveURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "http://localhost:5000/" + strings.TrimLeft(rel, "/")
}

func (f *fakeDetector) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

type apiError string

func (e apiError) Error() string { return string(e) }

func floatPtr(v float64) *float64 { return &v }
