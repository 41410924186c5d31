// Package server exposes the report catalogue over a read-only HTTP API.
// All handlers share one frozen dataset.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"carestats/analysis"
	"carestats/metrics"
	"carestats/records"
	"carestats/report"
)

// Handler provides HTTP handlers for the report API.
type Handler struct {
	env *report.Env
	log zerolog.Logger
}

// NewHandler creates a new report handler.
func NewHandler(env *report.Env, log zerolog.Logger) *Handler {
	return &Handler{env: env, log: log}
}

// New builds the echo instance with every route registered.
func New(env *report.Env, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestMetrics(log))

	h := NewHandler(env, log)
	h.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

// RegisterRoutes registers the report API routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/reports", h.ListReports)
	e.GET("/reports/:name", h.GetReport)
	e.GET("/groups", h.GroupStats)
	e.GET("/quality", h.Quality)
}

type reportInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"records": h.env.Dataset.Len(),
	})
}

// ListReports returns the catalogue.
func (h *Handler) ListReports(c echo.Context) error {
	out := make([]reportInfo, len(report.Catalog))
	for i, r := range report.Catalog {
		out[i] = reportInfo{Name: r.Name, Title: r.Title, Description: r.Description}
	}
	return c.JSON(http.StatusOK, out)
}

// GetReport builds one report. ?format= selects json (default), csv or text.
func (h *Handler) GetReport(c echo.Context) error {
	r, err := report.Lookup(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	format := report.FormatJSON
	if v := c.QueryParam("format"); v != "" {
		if format, err = report.ParseFormat(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	start := time.Now()
	t := r.Build(h.env)
	metrics.RecordReport(r.Name, nil, time.Since(start))

	if format == report.FormatJSON {
		return c.JSON(http.StatusOK, t)
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, t, format); err != nil {
		h.log.Error().Err(err).Str("report", r.Name).Msg("render failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	contentType := echo.MIMETextPlainCharsetUTF8
	if format == report.FormatCSV {
		contentType = "text/csv; charset=UTF-8"
	}
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

type groupRow struct {
	Key       []string `json:"key"`
	Count     int      `json:"count"`
	Undefined int      `json:"undefined"`
	Mean      float64  `json:"mean"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	StdDev    float64  `json:"stddev"`
	CV        *float64 `json:"cv_pct"`
}

// GroupStats runs an ad-hoc grouped summary:
// ?by=dim1,dim2&measure=billing_amount&sort=mean&desc=true&min_support=5
func (h *Handler) GroupStats(c echo.Context) error {
	by := c.QueryParam("by")
	if by == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "by is required")
	}
	dims, err := analysis.LookupDimensions(strings.Split(by, ",")...)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	measureName := c.QueryParam("measure")
	if measureName == "" {
		measureName = analysis.Billing.Name
	}
	m, err := analysis.LookupMeasure(measureName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	opts := analysis.GroupOptions{Sort: analysis.SortByMean, Descending: true}
	if v := c.QueryParam("sort"); v != "" {
		if opts.Sort, err = analysis.ParseSortKey(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if v := c.QueryParam("desc"); v != "" {
		if opts.Descending, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "desc must be a boolean")
		}
	}
	if v := c.QueryParam("min_support"); v != "" {
		if opts.MinSupport, err = strconv.Atoi(v); err != nil || opts.MinSupport < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "min_support must be a non-negative integer")
		}
	}

	stats := analysis.GroupStats(h.env.Dataset.All(), dims, m, opts)
	out := make([]groupRow, len(stats))
	for i, s := range stats {
		out[i] = groupRow{
			Key: s.Key, Count: s.Count, Undefined: s.Undefined, Mean: s.Mean,
			Min: s.Min, Max: s.Max, StdDev: s.StdDev, CV: s.CV,
		}
	}
	return c.JSON(http.StatusOK, out)
}

type qualitySummary struct {
	TotalRows   int64                      `json:"total_rows"`
	Accepted    int64                      `json:"accepted"`
	Rejected    map[string]int64           `json:"rejected"`
	Anomalies   map[string]int64           `json:"anomalies"`
	EmptyFields map[string]int64           `json:"empty_fields"`
	Samples     map[string][]qualitySample `json:"samples"`
}

type qualitySample struct {
	Row    int64  `json:"row,omitempty"`
	Record int64  `json:"record,omitempty"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Quality returns the load-time data-quality summary.
func (h *Handler) Quality(c echo.Context) error {
	q := h.env.Quality
	if q == nil {
		q = records.NewQuality()
	}
	out := qualitySummary{
		TotalRows:   q.TotalRows,
		Accepted:    q.Accepted,
		Rejected:    make(map[string]int64, len(q.Rejected)),
		Anomalies:   make(map[string]int64, len(q.Anomalies)),
		EmptyFields: q.EmptyFields,
		Samples:     make(map[string][]qualitySample, len(q.Samples)),
	}
	for r, n := range q.Rejected {
		out.Rejected[string(r)] = n
	}
	for r, n := range q.Anomalies {
		out.Anomalies[string(r)] = n
	}
	for r, errs := range q.Samples {
		for _, e := range errs {
			out.Samples[string(r)] = append(out.Samples[string(r)], qualitySample{Row: e.Row, Record: e.Record, Column: e.Column, Value: e.Value})
		}
	}
	return c.JSON(http.StatusOK, out)
}

// requestMetrics records every request against its route template.
func requestMetrics(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			metrics.RecordHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start))
			log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("elapsed", time.Since(start)).
				Msg("request")
			return err
		}
	}
}

// Serve runs e on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}
