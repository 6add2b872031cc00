package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/assetflow/backend/internal/domain"
)

func (s *Server) recordReading(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.ingest") {
		return
	}
	var reading domain.SensorReading
	if err := decode(r, &reading); err != nil {
		writeError(w, err)
		return
	}
	reading.AssetID = pathVar(r, "id")
	alerts, err := s.Sensors.RecordReading(r.Context(), &reading)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"reading": reading,
		"alerts":  alerts,
	})
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.read") {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	readings, err := s.Sensors.Readings(r.Context(), pathVar(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) listReadingsRange(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.read") {
		return
	}
	q := r.URL.Query()
	sensorID := q.Get("sensor_id")
	if sensorID == "" {
		writeError(w, domain.ErrValidation("sensor_id", "sensor_id is required"))
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, domain.ErrValidation("start", "must be RFC3339"))
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, domain.ErrValidation("end", "must be RFC3339"))
		return
	}
	readings, err := s.Sensors.ReadingsRange(r.Context(), pathVar(r, "id"), sensorID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.configure") {
		return
	}
	var threshold domain.SensorThreshold
	if err := decode(r, &threshold); err != nil {
		writeError(w, err)
		return
	}
	threshold.AssetID = pathVar(r, "id")
	if err := s.Sensors.SetThreshold(r.Context(), &threshold); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threshold)
}

func (s *Server) listThresholds(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.read") {
		return
	}
	thresholds, err := s.Sensors.Thresholds(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thresholds)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.read") {
		return
	}
	status := domain.AlertStatus(r.URL.Query().Get("status"))
	alerts, err := s.Sensors.Alerts(r.Context(), status, queryPage(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.alert.manage") {
		return
	}
	alert, err := s.Sensors.Acknowledge(r.Context(), pathVar(r, "id"), claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

type resolveAlertPayload struct {
	Notes string `json:"notes"`
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	if !s.requirePermission(w, r, "sensor.alert.manage") {
		return
	}
	var payload resolveAlertPayload
	if r.ContentLength > 0 {
		if err := decode(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	alert, err := s.Sensors.Resolve(r.Context(), pathVar(r, "id"), payload.Notes, claims(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
