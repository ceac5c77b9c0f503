package serieshttp

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/eventtypes"
	"github.com/c360/datamall/series"
)

// handleWrite ingests one flatJSON matrix into an event's series.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	eventID := r.PathValue("eventID")

	cred, err := credential(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta, err := s.meta.Lookup(ctx, user, eventID, cred)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !meta.CanWrite {
		s.writeError(w, r, errors.NewForbidden("credential cannot write this series"))
		return
	}

	typ, err := s.meta.SeriesType(meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "serieshttp", "handleWrite", "read body"))
		return
	}
	matrix, err := series.ParseFlatJSON(body, typ)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	points, err := matrix.ToPoints(meta.Measurement)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.backend.WriteMeasurement(ctx, meta.Namespace, meta.Measurement, points); err != nil {
		s.writeError(w, r, errors.Wrap(err, "serieshttp", "handleWrite", "write points"))
		return
	}

	if s.metrics != nil {
		s.metrics.SeriesPointsWritten.Add(float64(len(points)))
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"status":        "ok",
		"pointsWritten": len(points),
	})
}

// handleRead returns an event's points within the requested range as a
// flatJSON envelope.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")
	eventID := r.PathValue("eventID")

	cred, err := credential(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta, err := s.meta.Lookup(ctx, user, eventID, cred)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !meta.CanRead {
		s.writeError(w, r, errors.NewForbidden("credential cannot read this series"))
		return
	}

	q := series.Query{}
	if q.From, err = timeParam(r, "fromDeltaTime"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.To, err = timeParam(r, "toDeltaTime"); err != nil {
		s.writeError(w, r, err)
		return
	}

	matrix, err := s.backend.Query(ctx, meta.Namespace, meta.Measurement, q)
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "serieshttp", "handleRead", "query points"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"format": series.FormatFlatJSON,
		"fields": matrix.Columns,
		"points": matrix.Data,
	})
}

// handleBatch ingests a multi-event seriesBatch envelope. Permission and
// type resolution run per event through the metadata cache; any element
// failing aborts the whole batch before the first write.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := r.PathValue("user")

	cred, err := credential(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resolveType := func(ctx context.Context, eventID string) (*eventtypes.SeriesType, error) {
		meta, err := s.meta.Lookup(ctx, user, eventID, cred)
		if err != nil {
			return nil, err
		}
		if !meta.CanWrite {
			return nil, errors.NewForbidden("credential cannot write this series").
				WithData(map[string]any{"eventId": eventID})
		}
		return s.meta.SeriesType(meta)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "serieshttp", "handleBatch", "read body"))
		return
	}
	req, err := series.ParseBatch(ctx, body, resolveType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resolveNamespace := func(ctx context.Context, eventID string) (string, string, error) {
		meta, err := s.meta.Lookup(ctx, user, eventID, cred)
		if err != nil {
			return "", "", err
		}
		return meta.Namespace, meta.Measurement, nil
	}
	batches, err := series.GroupByNamespace(ctx, req, resolveNamespace)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	written := 0
	for _, batch := range batches {
		if err := batch.Store(ctx, s.backend); err != nil {
			s.writeError(w, r, errors.Wrap(err, "serieshttp", "handleBatch", "write batch"))
			return
		}
		written += len(batch.Points)
	}

	if s.metrics != nil {
		s.metrics.SeriesPointsWritten.Add(float64(written))
		s.metrics.SeriesBatchesTotal.Inc()
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"status":        "ok",
		"pointsWritten": written,
	})
}

// timeParam parses an optional float query parameter.
func timeParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(errors.IDInvalidParametersFormat,
			"parameter "+name+" must be a number").
			WithData(map[string]any{name: raw})
	}
	return &v, nil
}
