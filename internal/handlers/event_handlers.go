package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"odotList/internal/handlers/dto"
	"odotList/internal/logger"
	"odotList/internal/scheduler"

	"go.uber.org/zap"
)

// сюда оболочка приложения доставляет события уведомлений и переходы
// foreground/background

func (s *TaskHandler) NotificationEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {

		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.NotificationEventRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	// payload без task_id пропускаем в сервис как есть - он сам решает,
	// что событие битое (логирует и игнорирует, никогда не падает)
	payload := scheduler.Payload{}
	if request.Payload != nil && request.Payload.TaskID != nil {
		payload.TaskID = *request.Payload.TaskID
	}

	if err := s.TaskService.HandleNotificationEvent(r.Context(), request.ActionID, payload); err != nil {

		logger.Error("HTTP: ошибка в Service", err,
			zap.String("operation", "notification_event"),
			zap.String("client_addr", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Событие уведомления принято",
		zap.String("action_id", request.ActionID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusAccepted))

	responseWithJSON(w, http.StatusAccepted, toPayload("accepted", request.ActionID))
}

func (s *TaskHandler) AppForeground(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if err := s.TaskService.OnAppForeground(r.Context()); err != nil {

		logger.Error("HTTP: ошибка в Service", err,
			zap.String("operation", "app_foreground"),
			zap.String("client_addr", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Переход в foreground обработан",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusAccepted))

	responseWithJSON(w, http.StatusAccepted, toPayload("state", "foreground"))
}

func (s *TaskHandler) AppBackground(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	s.TaskService.OnAppBackground()

	responseWithJSON(w, http.StatusAccepted, toPayload("state", "background"))
}
