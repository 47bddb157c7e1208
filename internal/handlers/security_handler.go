package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/services"
)

// SecurityHandlers serves account-recovery question management.
type SecurityHandlers struct {
	security *services.SecurityService
	logger   *zap.Logger
}

func NewSecurityHandlers(security *services.SecurityService, logger *zap.Logger) *SecurityHandlers {
	return &SecurityHandlers{security: security, logger: logger}
}

type questionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type setQuestionsRequest struct {
	Questions [3]questionAnswer `json:"questions"`
}

func (h *SecurityHandlers) Set(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req setQuestionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var qas [3]services.QuestionAnswer
	for i, qa := range req.Questions {
		qas[i] = services.QuestionAnswer{Question: qa.Question, Answer: qa.Answer}
	}
	if err := h.security.Set(r.Context(), userID, qas); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *SecurityHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	questions, err := h.security.Questions(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

type verifyAnswersRequest struct {
	Answers [3]string `json:"answers"`
}

func (h *SecurityHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req verifyAnswersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.security.Verify(r.Context(), userID, req.Answers); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
