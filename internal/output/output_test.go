package output

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/config"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapField(name string, values ...float64) domain.Field {
	f := domain.NewField(name, "kg m-2 yr-1", []string{domain.DimLatitude, domain.DimLongitude}, []int{2, 3})
	copy(f.Data.Elements, values)
	f.Lat = []float64{-30, 30}
	f.Lon = []float64{0, 120, 240}
	f.Attributes = map[string]string{"Run ID": "run-1"}
	return f
}

type recordingNotifier struct {
	events []domain.ArtifactEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e domain.ArtifactEvent) error {
	n.events = append(n.events, e)
	return n.err
}

func newTestSink(t *testing.T, notifier Notifier) (*Sink, string, *observability.Metrics) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()
	return NewSink(store, notifier, slog.Default(), metrics), dir, metrics
}

// --- LocalStore ---

func TestLocalStore_PublishNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "out"))
	require.NoError(t, err)

	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("first"), 0o644))
	require.NoError(t, store.Publish(context.Background(), "a.nc", src, ""))

	ok, err := store.Exists(context.Background(), "a.nc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(src, []byte("second"), 0o644))
	err = store.Publish(context.Background(), "a.nc", src, "")
	assert.ErrorIs(t, err, ErrArtifactExists)

	got, err := os.ReadFile(store.Location("a.nc"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging files are cleaned up")
}

// --- Sink ---

func TestSink_SerializeAndRender(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	notifier := &recordingNotifier{}
	sink, dir, metrics := newTestSink(t, notifier)
	f := mapField("NPP_(1990-2000)_ajnjg_ann", 1, 2, 3, 4, 5, 6)

	require.NoError(t, sink.Serialize(context.Background(), f.Name, f))
	require.NoError(t, sink.RenderImage(context.Background(), f.Name, f))

	back, err := netcdf.ReadFile(filepath.Join(dir, f.Name+".nc"))
	require.NoError(t, err)
	assert.Equal(t, f.Name, back.Name)
	assert.Equal(t, f.Values(), back.Values())

	raw, err := os.Open(filepath.Join(dir, f.Name+".png"))
	require.NoError(t, err)
	defer raw.Close()
	img, err := png.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 3*cellPixels, img.Bounds().Dx())
	assert.Equal(t, 2*cellPixels+barGap+barHeight, img.Bounds().Dy())

	require.Len(t, notifier.events, 2)
	assert.Equal(t, domain.ArtifactEvent{
		Name:      f.Name,
		Kind:      domain.ArtifactMapData,
		Location:  filepath.Join(dir, f.Name+".nc"),
		Units:     "kg m-2 yr-1",
		Shape:     []int{2, 3},
		RunID:     "run-1",
		CreatedAt: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
	}, notifier.events[0])
	assert.Equal(t, domain.ArtifactMap, notifier.events[1].Kind)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(domain.ArtifactMapData, "written")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(domain.ArtifactMap, "written")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Notifications.WithLabelValues("success")), 0)
}

func TestSink_SkipsExisting(t *testing.T) {
	notifier := &recordingNotifier{}
	sink, dir, metrics := newTestSink(t, notifier)
	f := mapField("NPP_Ensemble_Mean_Historical_ann", 1, 1, 1, 1, 1, 1)

	require.NoError(t, sink.Serialize(context.Background(), f.Name, f))
	info, err := os.Stat(filepath.Join(dir, f.Name+".nc"))
	require.NoError(t, err)

	changed := mapField(f.Name, 9, 9, 9, 9, 9, 9)
	require.NoError(t, sink.Serialize(context.Background(), f.Name, changed))

	again, err := os.Stat(filepath.Join(dir, f.Name+".nc"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
	back, err := netcdf.ReadFile(filepath.Join(dir, f.Name+".nc"))
	require.NoError(t, err)
	assert.Equal(t, f.Values(), back.Values(), "existing artifact is kept")

	assert.Len(t, notifier.events, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(domain.ArtifactMapData, "skipped")), 0)
}

func TestSink_NotifierFailureIsNotFatal(t *testing.T) {
	sink, _, metrics := newTestSink(t, &recordingNotifier{err: errors.New("broker down")})
	f := mapField("NPP_x_ann", 1, 2, 3, 4, 5, 6)

	require.NoError(t, sink.Serialize(context.Background(), f.Name, f))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Notifications.WithLabelValues("error")), 0)
}

func TestSink_WriteError(t *testing.T) {
	sink, dir, metrics := newTestSink(t, nil)
	series := domain.NewField("series", "K", []string{domain.DimTime}, []int{3})

	err := sink.RenderImage(context.Background(), "series", series)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "series.png"))
	assert.True(t, os.IsNotExist(statErr))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(domain.ArtifactMap, "error")), 0)
}

// --- rendering ---

func TestRasterize_NorthUpAndNaN(t *testing.T) {
	f := mapField("m", 0, 0, math.NaN(), 10, 10, 10)
	img, err := rasterize(f)
	require.NoError(t, err)

	top := img.NRGBAAt(0, 0)             // northern row, value 10
	bottom := img.NRGBAAt(0, cellPixels) // southern row, value 0
	assert.NotEqual(t, top, bottom)
	assert.Equal(t, uint8(0), img.NRGBAAt(2*cellPixels, cellPixels).A, "NaN cell is transparent")
	assert.Equal(t, uint8(255), top.A)
}

func TestColourScale(t *testing.T) {
	r, scale := colourScale(-2, 4)
	assert.Equal(t, len(divergingRamp), len(r))
	assert.InDelta(t, 0.5, scale(0), 1e-12, "zero sits at the ramp centre")
	assert.InDelta(t, 1, scale(4), 1e-12)

	_, scale = colourScale(1, 3)
	assert.InDelta(t, 0, scale(1), 1e-12)
	assert.InDelta(t, 0.5, scale(2), 1e-12)

	_, scale = colourScale(5, 5)
	assert.InDelta(t, 0.5, scale(5), 1e-12)
}

func TestRenderPNG_RejectsTimeSeries(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPNG(&buf, domain.NewField("s", "", []string{domain.DimTime}, []int{2}))
	assert.Error(t, err)
}

// --- S3Store ---

// fakeS3 serves HEAD and PUT object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, _ := url.PathUnescape(r.URL.Path)
	switch r.Method {
	case http.MethodHead:
		body, ok := s.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[key] = body
		w.Header().Set("ETag", `"0123456789abcdef0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestS3Store_PublishNeverOverwrites(t *testing.T) {
	backend := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	client, err := NewS3Client(config.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	store := &S3Store{client: client, bucket: "metrics", prefix: "run-1"}

	src := filepath.Join(t.TempDir(), "a.nc")
	require.NoError(t, os.WriteFile(src, []byte("netcdf"), 0o644))

	ok, err := store.Exists(context.Background(), "a.nc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Publish(context.Background(), "a.nc", src, "application/x-netcdf"))
	assert.Contains(t, backend.objects, "/metrics/run-1/a.nc")
	assert.Equal(t, "s3://metrics/run-1/a.nc", store.Location("a.nc"))

	err = store.Publish(context.Background(), "a.nc", src, "application/x-netcdf")
	assert.ErrorIs(t, err, ErrArtifactExists)
}
