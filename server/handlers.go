package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/RyanBlaney/melodraw/algorithms/tonal"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/RyanBlaney/melodraw/store"
	"github.com/RyanBlaney/melodraw/transcode"
)

type healthResponse struct {
	Status string `json:"status"`
	Scales int    `json:"scales"`
}

type scaleListResponse struct {
	Major []string `json:"major"`
	Minor []string `json:"minor"`
}

type scaleResponse struct {
	Name     string   `json:"name"`
	Labels   []string `json:"labels"`
	Template []string `json:"template,omitempty"`
}

type keyResponse struct {
	tonal.Result
	SampleRate int     `json:"sample_rate"`
	Seconds    float64 `json:"seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n := len(s.catalog.Names(scales.Major)) + len(s.catalog.Names(scales.Minor))
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Scales: n})
}

// handleDetectKey decodes the request body as an audio file and estimates
// its key.
func (s *Server) handleDetectKey(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithContext(r.Context()).WithFields(logging.Fields{"function": "handleDetectKey"})

	if s.decoder == nil {
		writeError(w, http.StatusServiceUnavailable, "no_decoder", ErrNoDecoder)
		return
	}

	data, err := s.decoder.DecodeReader(r.Context(), http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		if errors.Is(err, transcode.ErrNoAudio) {
			writeError(w, http.StatusUnprocessableEntity, "no_audio", err)
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
			return
		}
		logger.Error(err, "Decode failed")
		writeError(w, http.StatusBadRequest, "decode_failed", err)
		return
	}

	res, err := s.detector.Detect(r.Context(), data.Buffer())
	if err != nil {
		logger.Error(err, "Key detection failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, keyResponse{
		Result:     res,
		SampleRate: data.SampleRate,
		Seconds:    data.Duration.Seconds(),
	})
}

func (s *Server) handleListScales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scaleListResponse{
		Major: s.catalog.Names(scales.Major),
		Minor: s.catalog.Names(scales.Minor),
	})
}

func (s *Server) handleGetScale(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	labels, ok := s.catalog.Labels(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("unknown scale %q", name))
		return
	}
	template, _ := s.catalog.Template(name)
	writeJSON(w, http.StatusOK, scaleResponse{Name: name, Labels: labels, Template: template})
}

func (s *Server) handleListMelodies(w http.ResponseWriter, r *http.Request) {
	records, err := s.library.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleSaveMelody stores the posted record. ?overwrite=true replaces a
// record with the same title.
func (s *Server) handleSaveMelody(w http.ResponseWriter, r *http.Request) {
	var rec melody.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxUploadBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if rec.Scale != "" && !s.catalog.Has(rec.Scale) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown scale %q", ErrBadRequest, rec.Scale))
		return
	}
	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))

	saved, err := s.library.Save(r.Context(), rec, overwrite)
	switch {
	case errors.Is(err, store.ErrTitleTooShort):
		writeError(w, http.StatusBadRequest, "title_too_short", err)
	case errors.Is(err, store.ErrTitleExists):
		writeError(w, http.StatusConflict, "title_exists", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	default:
		writeJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) handleGetMelody(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteMelody(w http.ResponseWriter, r *http.Request) {
	err := s.library.Delete(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleExportMelody renders a saved melody as a Standard MIDI File.
// ?bpm= overrides the default tempo.
func (s *Server) handleExportMelody(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadRecord(w, r)
	if !ok {
		return
	}

	bpm := s.bpm
	if v := r.URL.Query().Get("bpm"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: bpm %q", ErrBadRequest, v))
			return
		}
		bpm = parsed
	}

	var buf bytes.Buffer
	if err := melody.ExportMIDI(&buf, rec.Notes, bpm); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "export_failed", err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.ID+".mid"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (melody.Record, bool) {
	rec, err := s.library.Load(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
		return rec, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return rec, false
	}
	return rec, true
}
