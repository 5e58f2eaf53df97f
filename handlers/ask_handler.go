package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/saclay-assistant/backend/models"
	"github.com/saclay-assistant/backend/services/ask"
	"github.com/saclay-assistant/backend/utils"
	"go.uber.org/zap"
)

// AskService defines the ask operations the handler depends on
type AskService interface {
	Ask(ctx context.Context, question string, k int, lang *string) (*ask.Result, error)
}

// AskRequest represents a question request. The language filter is
// tri-state: absent means "apply the default", an explicit JSON null means
// "no filter", and a string means "filter on that language". Standard
// unmarshalling cannot tell absent from null, hence the custom decoder.
type AskRequest struct {
	Question string  `json:"question" validate:"required"`
	K        int     `json:"k" validate:"omitempty,gte=1,lte=100"`
	Lang     *string `json:"-"`
	LangSet  bool    `json:"-"`
}

// UnmarshalJSON decodes the request while recording whether the lang key was
// present at all.
func (r *AskRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question string          `json:"question"`
		K        int             `json:"k"`
		Lang     json.RawMessage `json:"lang"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Question = raw.Question
	r.K = raw.K
	r.LangSet = raw.Lang != nil
	if r.LangSet {
		if err := json.Unmarshal(raw.Lang, &r.Lang); err != nil {
			return err
		}
	}
	return nil
}

// AskResponse represents the answer payload
type AskResponse struct {
	Answer   string           `json:"answer"`
	Contexts []models.Context `json:"contexts"`
}

// AskHandler handles question-answering HTTP requests
type AskHandler struct {
	service     AskService
	defaultK    int
	defaultLang string
	logger      *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(service AskService, defaultK int, defaultLang string, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service:     service,
		defaultK:    defaultK,
		defaultLang: defaultLang,
		logger:      logger,
	}
}

// HandleAsk handles POST /api/v1/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	k := req.K
	if k == 0 {
		k = h.defaultK
	}

	lang := req.Lang
	if !req.LangSet {
		lang = &h.defaultLang
	}

	result, err := h.service.Ask(r.Context(), req.Question, k, lang)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, AskResponse{
		Answer:   result.Answer,
		Contexts: result.Contexts,
	})
}
