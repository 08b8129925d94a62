package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/clocksync"
)

// Services bundles the engine's use cases for the transport layer.
type Services struct {
	Submissions *app.SubmissionService
	Grading     *app.GradingService
	Divisions   *app.DivisionService
	Rounds      *app.RoundService
	Questions   *app.QuestionService
	Admin       *app.AdminService
	Store       app.Store
}

// NewRouter wires the full request surface: health, the clock-sync time
// endpoint, the team websocket, the challenge intake, and the token-gated
// admin API.
func NewRouter(services Services, clock clockwork.Clock, adminToken string, log zerolog.Logger) http.Handler {
	admin := &AdminHandler{services: services, log: log}
	ws := NewWSHandler(services.Submissions, log)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/time", clocksync.Handler(clock))
	r.Get("/ws", ws.ServeWS)
	r.Post("/challenges", admin.fileChallenge)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin(adminToken, log))

		r.Post("/answers/{answerID}/grade", admin.gradeAnswer)
		r.Post("/questions", admin.addQuestion)
		r.Post("/questions/{questionID}/regrade", admin.regradeQuestion)
		r.Post("/questions/{questionID}/move", admin.moveQuestion)
		r.Delete("/questions/{questionID}", admin.deleteQuestion)

		r.Post("/elimination", admin.runElimination)
		r.Get("/ties", admin.checkTies)
		r.Post("/divisions/rearrange", admin.rearrangeDivisions)

		r.Post("/game/init", admin.initGame)
		r.Post("/game/reset-scores", admin.resetScores)
		r.Post("/game/shuffle", admin.shuffleTeams)

		r.Post("/rounds/{roundID}/activate", admin.activateRound)
		r.Post("/rounds/{roundID}/advance", admin.advanceRound)
		r.Post("/rounds/{roundID}/reveal", admin.revealRound)
		r.Post("/rounds/{roundID}/end", admin.endRound)
		r.Post("/rounds/{roundID}/pause", admin.pauseRound)
		r.Post("/rounds/{roundID}/resume", admin.resumeRound)

		r.Get("/challenges", admin.listChallenges)
	})

	return r
}
