package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/export"
	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.log.Error("store", "err", err)
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) getStates(w http.ResponseWriter, r *http.Request) {
	meta, res, err := s.store.LoadResult(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export.NewData(*meta, res))
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	meta, res, err := s.store.LoadResult(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", meta.ID))
	if err := export.WriteReport(w, export.ReportInput{Meta: *meta, Result: res}); err != nil {
		s.log.Error("report", "run", meta.ID, "err", err)
	}
}

func (s *Server) getXLSX(w http.ResponseWriter, r *http.Request) {
	meta, res, err := s.store.LoadResult(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", meta.ID))
	if err := export.WriteXLSX(w, *meta, res); err != nil {
		s.log.Error("xlsx", "run", meta.ID, "err", err)
	}
}

// SimulateRequest overrides parts of the server's base configuration.
// Zero-valued fields keep the base value. Drive and Geometry are partial
// objects: keys they leave out keep the base (or preset) value.
type SimulateRequest struct {
	Preset     string          `json:"preset,omitempty"`
	Integrator string          `json:"integrator,omitempty"`
	Dt         float64         `json:"dt,omitempty"`
	Duration   float64         `json:"duration,omitempty"`
	Drive      json.RawMessage `json:"drive,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Save       bool            `json:"save,omitempty"`
}

func (s *Server) configFor(req SimulateRequest) (*config.Config, error) {
	cfg := *s.base
	if req.Preset != "" {
		p := config.GetPreset(req.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s", req.Preset)
		}
		cfg = *p
		cfg.DataDir = s.base.DataDir
		cfg.Geometry = s.base.Geometry
	}
	if req.Integrator != "" {
		cfg.Integrator = req.Integrator
	}
	if req.Dt != 0 {
		cfg.Dt = req.Dt
	}
	if req.Duration != 0 {
		cfg.Duration = req.Duration
	}
	if len(req.Drive) > 0 {
		if err := json.Unmarshal(req.Drive, &cfg.Drive); err != nil {
			return nil, fmt.Errorf("invalid drive: %w", err)
		}
	}
	if len(req.Geometry) > 0 {
		if err := json.Unmarshal(req.Geometry, &cfg.Geometry); err != nil {
			return nil, fmt.Errorf("invalid geometry: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Duration > MaxDuration {
		return nil, fmt.Errorf("%w: duration %g exceeds %g", config.ErrInvalid, cfg.Duration, MaxDuration)
	}
	if steps := cfg.Duration / cfg.Dt; steps > MaxSteps {
		return nil, fmt.Errorf("%w: %.3g steps exceeds %d", config.ErrInvalid, steps, MaxSteps)
	}
	return &cfg, nil
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err))
		return
	}

	cfg, err := s.configFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	e := experiment.New(cfg, s.registry)
	if err := e.Setup(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := e.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	meta := storage.MetadataFor(cfg, res)
	if req.Save {
		id, err := s.store.Save(cfg, res)
		if err != nil {
			s.storeError(w, err)
			return
		}
		meta.ID = id
	}
	writeJSON(w, http.StatusOK, export.NewData(meta, res))
}

func (s *Server) poseQuery(r *http.Request) (linkage.Geometry, linkage.Pose, error) {
	g := s.base.Geometry
	q := r.URL.Query()
	for name, dst := range map[string]*float64{
		"input":   &g.Input,
		"coupler": &g.Coupler,
		"output":  &g.Output,
		"ground":  &g.Ground,
	} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return g, linkage.Pose{}, fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = f
		}
	}
	g = g.WithDefaults()
	if err := g.Validate(); err != nil {
		return g, linkage.Pose{}, err
	}

	theta, err := strconv.ParseFloat(q.Get("theta"), 64)
	if err != nil {
		return g, linkage.Pose{}, fmt.Errorf("invalid theta: %w", err)
	}
	pose, err := g.Solve(theta)
	return g, pose, err
}

func (s *Server) pose(w http.ResponseWriter, r *http.Request) {
	_, pose, err := s.poseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, pose)
}

func (s *Server) poseSVG(w http.ResponseWriter, r *http.Request) {
	g, pose, err := s.poseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	fmt.Fprint(w, export.PoseToSVG(g, pose, 640, 360))
}

func (s *Server) presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.ListPresets())
}
