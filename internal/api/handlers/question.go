package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sam/code-clash/internal/domain"
	"github.com/sam/code-clash/internal/repository"
	"gorm.io/gorm"
)

type QuestionHandler struct {
	questionRepo repository.QuestionRepository
}

func NewQuestionHandler(questionRepo repository.QuestionRepository) *QuestionHandler {
	return &QuestionHandler{questionRepo: questionRepo}
}

func (h *QuestionHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questionRepo.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid question id", http.StatusBadRequest)
		return
	}

	question, err := h.questionRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, domain.ErrQuestionNotFound)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}
