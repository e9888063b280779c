// Package output persists selected Fields as PNG maps and NetCDF files and
// announces each new artifact.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/climate-impact-metrics/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-impact-metrics/internal/domain"
	"github.com/couchcryptid/climate-impact-metrics/internal/observability"
)

// Notifier announces newly written artifacts.
type Notifier interface {
	Notify(ctx context.Context, event domain.ArtifactEvent) error
}

// Sink writes artifacts to a Store. Existing artifacts are skipped with a
// warning and never overwritten.
type Sink struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSink creates a Sink. A nil notifier disables announcements.
func NewSink(store Store, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Sink {
	return &Sink{store: store, notifier: notifier, logger: logger, metrics: metrics}
}

// RenderImage writes f as {name}.png.
func (s *Sink) RenderImage(ctx context.Context, name string, f domain.Field) error {
	return s.publish(ctx, domain.ArtifactMap, name+".png", "image/png", f, func(path string) error {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := RenderPNG(file, f); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	})
}

// Serialize writes f as {name}.nc.
func (s *Sink) Serialize(ctx context.Context, name string, f domain.Field) error {
	return s.publish(ctx, domain.ArtifactMapData, name+".nc", "application/x-netcdf", f, func(path string) error {
		return netcdf.WriteFile(path, f)
	})
}

func (s *Sink) publish(ctx context.Context, kind, key, contentType string, f domain.Field, write func(path string) error) error {
	log := s.logger.With("artifact", key, "kind", kind)

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		s.metrics.ArtifactsWritten.WithLabelValues(kind, "error").Inc()
		return err
	}
	if exists {
		s.skip(log, kind)
		return nil
	}

	dir, err := os.MkdirTemp("", "cimt-artifact-")
	if err != nil {
		return fmt.Errorf("stage %s: %w", key, err)
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, "artifact")
	if err := write(local); err != nil {
		s.metrics.ArtifactsWritten.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.store.Publish(ctx, key, local, contentType); err != nil {
		if errors.Is(err, ErrArtifactExists) {
			s.skip(log, kind)
			return nil
		}
		s.metrics.ArtifactsWritten.WithLabelValues(kind, "error").Inc()
		return err
	}

	s.metrics.ArtifactsWritten.WithLabelValues(kind, "written").Inc()
	log.Info("artifact written", "location", s.store.Location(key))
	s.notify(ctx, log, domain.ArtifactEvent{
		Name:      f.Name,
		Kind:      kind,
		Location:  s.store.Location(key),
		Units:     f.Units,
		Shape:     f.Shape(),
		RunID:     f.Attributes["Run ID"],
		CreatedAt: domain.Clock().Now().UTC(),
	})
	return nil
}

func (s *Sink) skip(log *slog.Logger, kind string) {
	s.metrics.ArtifactsWritten.WithLabelValues(kind, "skipped").Inc()
	log.Warn("artifact already exists, not overwriting")
}

// notify failures are logged; the artifact itself is already published.
func (s *Sink) notify(ctx context.Context, log *slog.Logger, event domain.ArtifactEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.metrics.Notifications.WithLabelValues("error").Inc()
		log.Error("artifact notification failed", "error", err)
		return
	}
	s.metrics.Notifications.WithLabelValues("success").Inc()
}
