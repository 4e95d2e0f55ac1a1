package detectapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"damage-detect/internal/domain/entity"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func jpegFile() *entity.SelectedFile {
	return &entity.SelectedFile{Name: "car.jpg", MIMEType: "image/jpeg", Size: 4, Data: []byte("jpeg")}
}

func TestClient_DetectImage_SendsMultipartFile(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		require.Equal(t, "jpeg", string(data))
		require.Equal(t, "car.jpg", header.Filename)
		require.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image":"aGk=","predictions":[{"class":"scratch","confidence":0.93,"bbox":[1,2,3,4]}],"confidence":0.93,"processingTime":1.8}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	res, err := c.DetectImage(context.Background(), jpegFile())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, "aGk=", res.Image)
	require.Len(t, res.Predictions, 1)
	require.Equal(t, entity.BoundingBox{1, 2, 3, 4}, res.Predictions[0].BBox)
	require.InDelta(t, 0.93, *res.Confidence, 1e-9)
	require.InDelta(t, 1.8, *res.ProcessingTime, 1e-9)
}

func TestClient_DetectImage_OptionalFieldsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"image":"aGk="}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, testLogger()).DetectImage(context.Background(), jpegFile())
	require.NoError(t, err)
	require.Nil(t, res.Confidence)
	require.Nil(t, res.ProcessingTime)
	require.Empty(t, res.Predictions)
}

func TestClient_ErrorMessagePreference(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field wins", `{"message":"model is warming up","error":"ignored"}`, "model is warming up"},
		{"error field", `{"error":"Only MP4 files are supported for video processing"}`, "Only MP4 files are supported for video processing"},
		{"not json", `<html>oops</html>`, FallbackVideoMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, testLogger()).DetectVideo(context.Background(), &entity.SelectedFile{Name: "a.mp4", MIMEType: "video/mp4"})
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, http.StatusInternalServerError, apiErr.Status)
			require.Equal(t, tc.want, err.Error())
		})
	}
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"image":`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testLogger()).DetectImage(context.Background(), jpegFile())
	require.EqualError(t, err, FallbackImageMessage)
}

func TestClient_TimeoutIsFailureWithoutRetry(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, testLogger(), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.DetectImage(context.Background(), jpegFile())
	require.EqualError(t, err, FallbackImageMessage)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CheckHealth(t *testing.T) {
	var status int32 = http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/", r.URL.Path)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))

	c := NewClient(srv.URL, testLogger())
	require.True(t, c.CheckHealth(context.Background()))

	atomic.StoreInt32(&status, http.StatusServiceUnavailable)
	require.False(t, c.CheckHealth(context.Background()))

	srv.Close()
	require.False(t, c.CheckHealth(context.Background()))
}

func TestClient_StopLiveFeedPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stop", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, testLogger()).StopLiveFeed(context.Background())
	require.Error(t, err)
}

func TestClient_ResolveURL(t *testing.T) {
	c := NewClient("http://localhost:5000", testLogger())
	require.Equal(t, "http://localhost:5000/static/out.mp4", c.ResolveURL("/static/out.mp4"))
	require.Equal(t, "http://localhost:5000/static/out.mp4", c.ResolveURL("static/out.mp4"))
	require.Equal(t, "", c.ResolveURL(""))
	require.Equal(t, "http://localhost:5000/video_feed", c.LiveFeedURL())

	trailing := NewClient("http://localhost:5000/", testLogger())
	require.Equal(t, "http://localhost:5000/data/processed/output.mp4", trailing.ResolveURL("/data/processed/output.mp4"))
}
