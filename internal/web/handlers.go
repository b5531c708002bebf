package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/report"
	"github.com/JonMunkholm/geobuild/internal/service"
	"github.com/JonMunkholm/geobuild/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string                  `json:"status"`
	Store       string                  `json:"store"`
	ObjectTypes int                     `json:"object_types"`
	Builds      core.BuildLimiterStatus `json:"builds"`
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	Path string `json:"path"`
	Role string `json:"role,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

var contentTypes = map[report.Format]string{
	report.FormatXLSX:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	report.FormatPDF:     "application/pdf",
	report.FormatGeoJSON: "application/geo+json",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Store:       s.service.StoreStatus(r.Context()),
		ObjectTypes: core.TypeCount(),
		Builds:      s.service.LimiterStatus(),
	}
	status := http.StatusOK
	if resp.Store == "unavailable" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

func (s *Server) handleObjectTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ObjectTypes())
}

// handleBuild runs one build request. Validation failures are a normal
// 200 response with status "failed"; only fatal errors map to 4xx/5xx.
//
// ?format=xlsx|pdf|geojson returns the report export instead of JSON.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = parsed
	}

	var req core.BuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := withBuildMetadata(r.Context(), r)
	r = r.WithContext(ctx)

	res, err := s.service.Build(ctx, req)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if format == report.FormatJSON {
		writeJSON(w, res.Response())
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, res); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrNoGeometry) {
			status = http.StatusUnprocessableEntity
		}
		respondError(w, r, err, status)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(res, format)))
	w.Header().Set("X-Build-ID", res.BuildID)
	w.Header().Set("X-Build-Status", string(res.Report.Status))
	w.Write(buf.Bytes())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	p, err := s.service.Preview(req.Path, req.Role, req.Rows)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.service.ListBuilds(r.Context(), store.BuildLogFilter{
		ObjectType: q.Get("object_type"),
		Outcome:    q.Get("outcome"),
		Limit:      parseIntParam(r, "limit", store.DefaultListLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	if err != nil {
		respondError(w, r, err, listStatus(err))
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	objects, err := s.service.ListObjects(r.Context(),
		parseIntParam(r, "limit", store.DefaultListLimit),
		parseIntParam(r, "offset", 0),
	)
	if err != nil {
		respondError(w, r, err, listStatus(err))
		return
	}
	writeJSON(w, objects)
}

// handleGetObject serves GET /api/objects/<object path>.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	path := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	obj, err := s.service.GetObject(r.Context(), path)
	if err != nil {
		respondError(w, r, err, listStatus(err))
		return
	}
	if obj == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no object at %s", path))
		return
	}
	writeJSON(w, obj)
}

func listStatus(err error) int {
	if errors.Is(err, service.ErrNoStore) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// parseIntParam parses a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func exportName(res *core.BuildResult, f report.Format) string {
	name := "build"
	if res.Draft != nil && res.Draft.Name != "" {
		name = res.Draft.Name
	}
	return name + "." + string(f)
}
