package api

import (
	"log/slog"
	"net/http"

	"github.com/NextMind/NextCoach/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"service": "nextcoach"}))
}

func (s *Server) registerUserHandler(w http.ResponseWriter, r *http.Request, userID string) {
	slog.Debug("Server.registerUserHandler: processing request", "user_id", userID)
	var req models.UserRegistrationRequest
	if !decodeJSONBody(w, r, "registerUserHandler", &req, false) {
		return
	}
	req.ID = userID
	u, err := s.svc.RegisterUser(req)
	if err != nil {
		writeServiceError(w, "registerUserHandler", err)
		return
	}
	slog.Info("Server.registerUserHandler: user registered", "user_id", u.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("User registered", u))
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request, userID string) {
	u, err := s.svc.GetUser(userID)
	if err != nil {
		writeServiceError(w, "getUserHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(u))
}

func (s *Server) recordAssessmentHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.AssessmentRequest
	if !decodeJSONBody(w, r, "recordAssessmentHandler", &req, false) {
		return
	}
	a, err := s.svc.RecordAssessment(userID, req)
	if err != nil {
		writeServiceError(w, "recordAssessmentHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Recorded(a))
}

func (s *Server) latestAssessmentHandler(w http.ResponseWriter, r *http.Request, userID string) {
	a, err := s.svc.LatestAssessment(userID)
	if err != nil {
		writeServiceError(w, "latestAssessmentHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(a))
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	sessions, err := s.svc.ListSessions(userID)
	if err != nil {
		writeServiceError(w, "listSessionsHandler", err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessions))
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.CreateSessionRequest
	if !decodeJSONBody(w, r, "createSessionHandler", &req, true) {
		return
	}
	sess, err := s.svc.CreateSession(userID, req)
	if err != nil {
		writeServiceError(w, "createSessionHandler", err)
		return
	}
	slog.Info("Server.createSessionHandler: session created", "user_id", userID, "session_id", sess.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(sess))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, userID string) {
	sess, err := s.svc.GetSession(userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "getSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

func (s *Server) completeSessionHandler(w http.ResponseWriter, r *http.Request, userID string) {
	sess, err := s.svc.CompleteSession(userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "completeSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session completed", sess))
}

func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request, userID string) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	msgs, err := s.svc.Messages(userID, r.PathValue("id"), limit)
	if err != nil {
		writeServiceError(w, "listMessagesHandler", err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request, userID string) {
	sessionID := r.PathValue("id")
	slog.Debug("Server.sendMessageHandler: processing message", "user_id", userID, "session_id", sessionID)
	var req models.SendMessageRequest
	if !decodeJSONBody(w, r, "sendMessageHandler", &req, false) {
		return
	}
	turn, err := s.svc.SendMessage(userID, sessionID, req)
	if err != nil {
		writeServiceError(w, "sendMessageHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turn))
}

func (s *Server) sessionProgressHandler(w http.ResponseWriter, r *http.Request, userID string) {
	p, err := s.svc.Progress(userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "sessionProgressHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(p))
}

func (s *Server) listExercisesHandler(w http.ResponseWriter, r *http.Request, userID string) {
	exs, err := s.svc.ListExercises()
	if err != nil {
		writeServiceError(w, "listExercisesHandler", err)
		return
	}
	if exs == nil {
		exs = []models.Exercise{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(exs))
}

func (s *Server) recommendedExercisesHandler(w http.ResponseWriter, r *http.Request, userID string) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	exs, err := s.svc.RecommendedExercises(userID, r.URL.Query().Get("theme"), limit)
	if err != nil {
		writeServiceError(w, "recommendedExercisesHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(exs))
}

func (s *Server) assignExerciseHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.AssignExerciseRequest
	if !decodeJSONBody(w, r, "assignExerciseHandler", &req, false) {
		return
	}
	comp, created, err := s.svc.AssignExercise(userID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, "assignExerciseHandler", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, models.Success(comp))
}

func (s *Server) listCompletionsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	comps, err := s.svc.ListCompletions(userID, q.Get("session_id"), models.CompletionStatus(q.Get("status")))
	if err != nil {
		writeServiceError(w, "listCompletionsHandler", err)
		return
	}
	if comps == nil {
		comps = []models.ExerciseCompletion{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(comps))
}

func (s *Server) startCompletionHandler(w http.ResponseWriter, r *http.Request, userID string) {
	c, err := s.svc.StartCompletion(userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "startCompletionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(c))
}

func (s *Server) completeCompletionHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.CompleteExerciseRequest
	if !decodeJSONBody(w, r, "completeCompletionHandler", &req, true) {
		return
	}
	c, err := s.svc.CompleteCompletion(userID, r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, "completeCompletionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Exercise completed", c))
}

func (s *Server) listCheckInsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	checkins, err := s.svc.ListCheckIns(userID)
	if err != nil {
		writeServiceError(w, "listCheckInsHandler", err)
		return
	}
	if checkins == nil {
		checkins = []models.CheckIn{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(checkins))
}

func (s *Server) recordCheckInHandler(w http.ResponseWriter, r *http.Request, userID string) {
	var req models.CheckInRequest
	if !decodeJSONBody(w, r, "recordCheckInHandler", &req, false) {
		return
	}
	c, created, err := s.svc.RecordCheckIn(userID, req)
	if err != nil {
		writeServiceError(w, "recordCheckInHandler", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, models.Recorded(c))
}

func (s *Server) checkInTrendsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	trends, err := s.svc.Trends(userID, days)
	if err != nil {
		writeServiceError(w, "checkInTrendsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(trends))
}

func (s *Server) listRecommendationsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	recs, err := s.svc.PendingRecommendations(userID)
	if err != nil {
		writeServiceError(w, "listRecommendationsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(recs))
}

func (s *Server) actUponRecommendationHandler(w http.ResponseWriter, r *http.Request, userID string) {
	rec, err := s.svc.ActUpon(userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "actUponRecommendationHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) overviewHandler(w http.ResponseWriter, r *http.Request, userID string) {
	o, err := s.svc.Overview(userID)
	if err != nil {
		writeServiceError(w, "overviewHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(o))
}

func (s *Server) dashboardRecommendationsHandler(w http.ResponseWriter, r *http.Request, userID string) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	rec, err := s.svc.DashboardRecommendations(userID, limit)
	if err != nil {
		writeServiceError(w, "dashboardRecommendationsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) coachReportHandler(w http.ResponseWriter, r *http.Request, userID string) {
	report, err := s.svc.CoachReport(userID)
	if err != nil {
		writeServiceError(w, "coachReportHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(report))
}

func (s *Server) sendReportHandler(w http.ResponseWriter, r *http.Request, userID string) {
	delivery, err := s.svc.SendReportToCoach(userID)
	if err != nil {
		writeServiceError(w, "sendReportHandler", err)
		return
	}
	slog.Info("Server.sendReportHandler: report queued", "user_id", userID, "outbox_id", delivery.OutboxID)
	writeJSONResponse(w, http.StatusAccepted, models.Queued("Report queued for the coach", delivery))
}
