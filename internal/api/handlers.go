package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/siliconsteed/rva-api/internal/batch"
	"github.com/siliconsteed/rva-api/internal/vedic"
	"github.com/siliconsteed/rva-api/internal/version"
)

// maxBodyBytes caps request bodies. A full batch of 100 items is well under this.
const maxBodyBytes = 1 << 20

const genericErrorMessage = "Something went wrong!"

var validate = validator.New(validator.WithRequiredStructEnabled())

// requiredFields lists the request fields in documentation order.
var requiredFields = []string{"date", "time", "lat", "lon", "timezone"}

// calculateRequest is the body of POST /calculate-planets. Numeric fields
// are pointers so that an explicit 0 is distinguishable from absent.
type calculateRequest struct {
	Date     string   `json:"date" validate:"required"`
	Time     string   `json:"time" validate:"required"`
	Lat      *float64 `json:"lat" validate:"required"`
	Lon      *float64 `json:"lon" validate:"required"`
	Timezone *float64 `json:"timezone" validate:"required"`
}

func (r calculateRequest) input() vedic.Input {
	return vedic.Input{
		Date:           r.Date,
		Time:           r.Time,
		Latitude:       *r.Lat,
		Longitude:      *r.Lon,
		TimezoneOffset: *r.Timezone,
	}
}

type batchRequest struct {
	Requests []calculateRequest `json:"requests"`
}

type missingFieldsResponse struct {
	Error    string         `json:"error"`
	Required []string       `json:"required"`
	Example  map[string]any `json:"example"`
	Missing  []string       `json:"missing,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type calculateResponse struct {
	Success bool             `json:"success"`
	Data    *vedic.ResultSet `json:"data"`
	Input   calculateRequest `json:"input"`
}

// batchItem is one entry of the batch response. Status mirrors the HTTP
// status the single endpoint would have returned for the same body.
type batchItem struct {
	Index    int               `json:"index"`
	Status   int               `json:"status"`
	Success  bool              `json:"success"`
	Data     *vedic.ResultSet  `json:"data,omitempty"`
	Input    *calculateRequest `json:"input,omitempty"`
	Error    string            `json:"error,omitempty"`
	Required []string          `json:"required,omitempty"`
	Missing  []string          `json:"missing,omitempty"`
}

type batchResponse struct {
	Success bool        `json:"success"`
	Results []batchItem `json:"results"`
}

func exampleRequest() map[string]any {
	return map[string]any{
		"date":     "1990-01-15",
		"time":     "14:30",
		"lat":      28.6139,
		"lon":      77.2090,
		"timezone": 5.5,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeGenericError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: genericErrorMessage})
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// missingFields returns the JSON names of required fields absent from req.
func missingFields(req calculateRequest) []string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return requiredFields
	}
	byField := map[string]string{
		"Date": "date", "Time": "time", "Lat": "lat", "Lon": "lon", "Timezone": "timezone",
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, byField[fe.StructField()])
	}
	return missing
}

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "RVA API - Vedic Astrology Calculator is running",
			"version": version.Version,
			"endpoints": map[string]string{
				"calculate": "POST /calculate-planets",
				"batch":     "POST /calculate-planets/batch",
				"health":    "GET /",
			},
		})
	}
}

func calculateHandler(logger *slog.Logger, calc Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calculateRequest
		if err := decodeBody(w, r, &req); err != nil {
			logger.Warn("invalid request body",
				"component", "api",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			writeGenericError(w)
			return
		}

		if missing := missingFields(req); len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, missingFieldsResponse{
				Error:    "Missing required fields",
				Required: requiredFields,
				Example:  exampleRequest(),
				Missing:  missing,
			})
			return
		}

		rs, err := calc.Calculate(r.Context(), req.input())
		if err != nil {
			logger.Error("calculation error",
				"component", "api",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, calculateResponse{Success: true, Data: rs, Input: req})
	}
}

func batchHandler(logger *slog.Logger, batches BatchCalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := decodeBody(w, r, &req); err != nil {
			logger.Warn("invalid batch body",
				"component", "api",
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			writeGenericError(w)
			return
		}

		switch n := len(req.Requests); {
		case n == 0:
			writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: batch.ErrEmptyBatch.Error()})
			return
		case n > batches.MaxItems():
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":   false,
				"error":     batch.ErrBatchTooLarge.Error(),
				"max_items": batches.MaxItems(),
			})
			return
		}

		items := make([]batchItem, len(req.Requests))
		var inputs []vedic.Input
		var slots []int
		for i, cr := range req.Requests {
			if missing := missingFields(cr); len(missing) > 0 {
				items[i] = batchItem{
					Index:    i,
					Status:   http.StatusBadRequest,
					Error:    "Missing required fields",
					Required: requiredFields,
					Missing:  missing,
				}
				continue
			}
			inputs = append(inputs, cr.input())
			slots = append(slots, i)
		}

		if len(inputs) > 0 {
			outcomes, err := batches.CalculateBatch(r.Context(), inputs)
			if err != nil {
				logger.Error("batch rejected", "component", "api", "request_id", RequestID(r.Context()), "error", err)
				writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: err.Error()})
				return
			}
			for k, o := range outcomes {
				i := slots[k]
				cr := req.Requests[i]
				items[i] = batchOutcomeItem(i, cr, o)
				if o.Err != nil {
					logger.Warn("batch item failed",
						"component", "api",
						"request_id", RequestID(r.Context()),
						"index", i,
						"error", o.Err,
					)
				}
			}
		}

		writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: items})
	}
}

func batchOutcomeItem(index int, cr calculateRequest, o batch.Outcome) batchItem {
	switch {
	case o.Err == nil:
		return batchItem{Index: index, Status: http.StatusOK, Success: true, Data: o.Result, Input: &cr}
	case errors.Is(o.Err, batch.ErrPanicked):
		return batchItem{Index: index, Status: http.StatusInternalServerError, Error: genericErrorMessage}
	default:
		return batchItem{Index: index, Status: http.StatusInternalServerError, Error: o.Err.Error()}
	}
}
