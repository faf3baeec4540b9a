package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

const resetPath = "reset"

// setRequest mirrors the OpenAPI schema for POST /weights/{kind}.
type setRequest struct {
	EditID string   `json:"edit_id"`
	Key    string   `json:"key"`
	Value  *float64 `json:"value"`
}

func (r setRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Key) == "":
		return errors.New("missing key")
	case r.Value == nil:
		return errors.New("missing value")
	}
	return nil
}

// resetRequest mirrors the OpenAPI schema for POST /weights/reset.
type resetRequest struct {
	EditID string `json:"edit_id"`
	Kind   string `json:"kind"`
}

type editResponse struct {
	Status    string       `json:"status"`
	EditID    string       `json:"edit_id"`
	Duplicate bool         `json:"duplicate"`
	Result    model.Result `json:"result"`
}

type weightsResponse struct {
	Ranking    model.WeightState `json:"ranking"`
	Prediction model.WeightState `json:"prediction"`
}

// WeightsHandler handles reads and edits of the weight vectors.
type WeightsHandler struct {
	deps Dependencies
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps Dependencies) *WeightsHandler {
	return &WeightsHandler{deps: deps}
}

// HandleGetWeights handles GET /weights requests.
func (h *WeightsHandler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_weights"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rank, pred, err := h.deps.Weights(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsResponse{Ranking: rank, Prediction: pred})
}

// HandlePostWeights handles POST /weights/{ranking|prediction} and
// POST /weights/reset requests.
func (h *WeightsHandler) HandlePostWeights(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_weights"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/weights/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, codeBadRequest, NewKind(op, ErrBadRequest))
		return
	}

	var (
		edit model.Edit
		err  error
	)
	if path == resetPath {
		edit, err = decodeReset(r)
	} else {
		edit, err = decodeSet(r, path)
	}
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	receipt, err := h.deps.Submit(r.Context(), edit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	status := "applied"
	if receipt.Duplicate {
		status = "duplicate"
	}
	writeJSON(w, http.StatusOK, editResponse{
		Status:    status,
		EditID:    receipt.EditID,
		Duplicate: receipt.Duplicate,
		Result:    receipt.Result,
	})
}

func decodeSet(r *http.Request, kindName string) (model.Edit, error) {
	kind, err := weights.ParseKind(kindName)
	if err != nil {
		return model.Edit{}, err
	}
	var req setRequest
	if err := decodeBody(r, &req); err != nil {
		return model.Edit{}, err
	}
	if err := req.validate(); err != nil {
		return model.Edit{}, WrapKind("decode", ErrBadRequest, err)
	}
	return model.Edit{
		ID:    strings.TrimSpace(req.EditID),
		Op:    model.EditSet,
		Kind:  kind,
		Key:   strings.TrimSpace(req.Key),
		Value: *req.Value,
	}, nil
}

func decodeReset(r *http.Request) (model.Edit, error) {
	var req resetRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return model.Edit{}, err
	}
	edit := model.Edit{ID: strings.TrimSpace(req.EditID), Op: model.EditReset}
	if strings.TrimSpace(req.Kind) != "" {
		kind, err := weights.ParseKind(req.Kind)
		if err != nil {
			return model.Edit{}, err
		}
		edit.Kind = kind
	}
	return edit, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind("decode", ErrBadRequest, err)
	}
	return nil
}
