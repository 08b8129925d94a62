package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// AdminHandler exposes the grading, regrade, division, and competition
// control surface. Authorization happened upstream in the router middleware.
type AdminHandler struct {
	services Services
	log      zerolog.Logger
}

type gradeRequest struct {
	IsCorrect *bool `json:"isCorrect"`
}

func (h *AdminHandler) gradeAnswer(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.IsCorrect == nil {
		writeError(w, h.log, domain.Validationf("isCorrect is required"))
		return
	}
	result, err := h.services.Grading.Grade(r.Context(), chi.URLParam(r, "answerID"), *req.IsCorrect)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		domain.GradeResult
	}{true, result})
}

func (h *AdminHandler) regradeQuestion(w http.ResponseWriter, r *http.Request) {
	var key domain.AnswerKey
	if err := readJSON(r, &key); err != nil {
		writeError(w, h.log, err)
		return
	}
	report, err := h.services.Grading.Regrade(r.Context(), chi.URLParam(r, "questionID"), key)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		domain.RegradeReport
	}{len(report.Errors) == 0, report})
}

type addQuestionRequest struct {
	domain.Question
	Position int `json:"position"`
}

func (h *AdminHandler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	q, err := h.services.Questions.Add(r.Context(), req.Question, req.Position)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Success  bool            `json:"success"`
		Question domain.Question `json:"question"`
	}{true, q})
}

func (h *AdminHandler) moveQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position int `json:"position"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.services.Questions.Move(r.Context(), chi.URLParam(r, "questionID"), req.Position); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Questions.Delete(r.Context(), chi.URLParam(r, "questionID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) runElimination(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Round int `json:"round"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	eliminated, err := h.services.Divisions.Eliminate(r.Context(), req.Round)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "totalEliminated": eliminated})
}

func (h *AdminHandler) checkTies(w http.ResponseWriter, r *http.Request) {
	ties, err := h.services.Divisions.CheckTies(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hasTies": len(ties) > 0, "ties": ties})
}

func (h *AdminHandler) rearrangeDivisions(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Divisions.Rearrange(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "divisions rearranged"})
}

func (h *AdminHandler) initGame(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Admin.InitGame(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) resetScores(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Admin.ResetScoresForTurn3(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) shuffleTeams(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Admin.ShuffleTeams(r.Context()); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) activateRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CountdownSeconds int `json:"countdownSeconds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	countdown := time.Duration(req.CountdownSeconds) * time.Second
	if err := h.services.Rounds.Activate(r.Context(), chi.URLParam(r, "roundID"), countdown); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) advanceRound(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Rounds.Advance(r.Context(), chi.URLParam(r, "roundID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) revealRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Show bool `json:"show"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.services.Rounds.SetShowResults(r.Context(), chi.URLParam(r, "roundID"), req.Show); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) endRound(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Rounds.End(r.Context(), chi.URLParam(r, "roundID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) pauseRound(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Rounds.PauseForGrading(r.Context(), chi.URLParam(r, "roundID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) resumeRound(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Rounds.ResumeFromGrading(r.Context(), chi.URLParam(r, "roundID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.services.Store.Challenges().List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "challenges": challenges})
}

type fileChallengeRequest struct {
	TeamID   string `json:"teamId"`
	AnswerID string `json:"answerId"`
	Reason   string `json:"reason"`
}

func (h *AdminHandler) fileChallenge(w http.ResponseWriter, r *http.Request) {
	var req fileChallengeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	challenge, err := h.services.Admin.FileChallenge(r.Context(), req.TeamID, req.AnswerID, req.Reason)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "challenge": challenge})
}
