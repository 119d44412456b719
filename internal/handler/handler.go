// Package handler содержит HTTP-обработчики API сервиса гольф-лиги.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/birdieway/golf-league/internal/mailer"
	"github.com/birdieway/golf-league/internal/middleware"
	"github.com/birdieway/golf-league/internal/model"
	"github.com/birdieway/golf-league/internal/payments"
	"github.com/birdieway/golf-league/internal/repository"
	"github.com/birdieway/golf-league/internal/service"
	"github.com/birdieway/golf-league/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateCheckout(ctx context.Context, league model.LeagueType, priceCents int64, formData json.RawMessage) (*model.CheckoutSession, error)
	ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error
	VerifyPayment(ctx context.Context, sessionID string) (*service.VerificationResult, error)
	ListRegistrations(ctx context.Context) ([]model.Registration, error)
	DashboardSummary(ctx context.Context) (*model.DashboardSummary, error)
	CancelRegistration(ctx context.Context, sessionID string) error
	SendContactMessage(ctx context.Context, m mailer.ContactMessage) error
	CreateTournament(ctx context.Context, t model.Tournament) (*model.Tournament, error)
	GetTournaments(ctx context.Context, league model.LeagueType, includeHidden bool) ([]model.Tournament, error)
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	UpdateTournament(ctx context.Context, t model.Tournament) error
	DeleteTournament(ctx context.Context, id string) error
	ListStandings(ctx context.Context, league model.LeagueType) ([]model.StandingsEntry, error)
	CreateStandingsEntry(ctx context.Context, e model.StandingsEntry) (*model.StandingsEntry, error)
	UpdateStandingsEntry(ctx context.Context, e model.StandingsEntry) error
	DeleteStandingsEntry(ctx context.Context, id string) error
	GetLeaguePrices(ctx context.Context) ([]model.LeaguePrice, error)
	SetLeaguePrice(ctx context.Context, league model.LeagueType, amountCents int64) error
}

// Handler реализует HTTP-обработчики API сервиса гольф-лиги.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	adminPassword  string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, adminPassword string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		adminPassword:  adminPassword,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

type createCheckoutRequest struct {
	LeagueType model.LeagueType `json:"leagueType"`
	Price      int64            `json:"price"`
	FormData   json.RawMessage  `json:"formData"`
}

type createCheckoutResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckout создаёт checkout-сессию для регистрации в лиге.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.service.CreateCheckout(r.Context(), req.LeagueType, req.Price, req.FormData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLeague):
			h.writeError(w, http.StatusBadRequest, "invalid league type")
		case errors.Is(err, service.ErrInvalidPrice):
			h.writeError(w, http.StatusBadRequest, "price must be a positive amount in cents")
		default:
			h.logger.Error("create checkout error", zap.Error(err), zap.String("league", string(req.LeagueType)))
			h.writeError(w, http.StatusInternalServerError, "failed to create checkout session")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, createCheckoutResponse{
		Success:   true,
		SessionID: sess.ID,
		URL:       sess.URL,
	})
}

// VerifyWebhook принимает события платёжного провайдера. Тело читается до
// каких-либо преобразований: подпись считается от байтов как они пришли.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = h.service.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			h.logger.Warn("webhook signature verification failed", zap.Error(err))
			h.writeError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.logger.Error("process webhook error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

type verifyPaymentResponse struct {
	Success       bool                     `json:"success"`
	Status        model.RegistrationStatus `json:"status"`
	PaymentStatus model.PaymentStatus      `json:"paymentStatus"`
	Amount        int64                    `json:"amount"`
	LeagueType    model.LeagueType         `json:"leagueType"`
	CustomerEmail string                   `json:"customerEmail,omitempty"`
}

// VerifyPayment запрашивает актуальный статус оплаты напрямую у провайдера.
// Идентификатор сессии принимается из тела запроса либо из query-параметра
// session_id: в таком виде его подставляет redirect-URL страницы успеха.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		req.SessionID = r.URL.Query().Get("session_id")
	}

	res, err := h.service.VerifyPayment(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionID):
			h.writeError(w, http.StatusBadRequest, "session id is required")
		case errors.Is(err, payments.ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "session not found")
		default:
			h.logger.Error("verify payment error", zap.Error(err), zap.String("session", req.SessionID))
			h.writeError(w, http.StatusInternalServerError, "failed to verify payment")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, verifyPaymentResponse{
		Success:       true,
		Status:        res.Status,
		PaymentStatus: res.PaymentStatus,
		Amount:        res.AmountCents,
		LeagueType:    res.League,
		CustomerEmail: res.Email,
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Contact пересылает сообщение формы обратной связи.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if !validation.IsValidEmail(req.Email) {
		h.writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !validation.IsValidPhone(req.Phone) {
		h.writeError(w, http.StatusBadRequest, "invalid phone number format")
		return
	}

	err := h.service.SendContactMessage(r.Context(), mailer.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		h.logger.Error("send contact message error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Message sent successfully"})
}

// GetRegistrations возвращает список регистраций для панели администратора.
func (h *Handler) GetRegistrations(w http.ResponseWriter, r *http.Request) {
	registrations, err := h.service.ListRegistrations(r.Context())
	if err != nil {
		h.logger.Error("list registrations error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch registrations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "registrations": registrations})
}

// GetRegistrationsSummary возвращает сводку регистраций и ожидаемой выручки.
func (h *Handler) GetRegistrationsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DashboardSummary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": summary})
}

// CancelRegistration помечает регистрацию отменённой.
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	err := h.service.CancelRegistration(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSessionID):
			h.writeError(w, http.StatusBadRequest, "session id is required")
		case errors.Is(err, payments.ErrSessionNotFound):
			h.writeError(w, http.StatusNotFound, "registration not found")
		default:
			h.logger.Error("cancel registration error", zap.Error(err), zap.String("session", sessionID))
			h.writeError(w, http.StatusInternalServerError, "failed to cancel registration")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Registration cancelled",
		"sessionId":     sessionID,
		"status":        model.RegistrationCancelled,
		"paymentStatus": model.PaymentCancelled,
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

// AdminLogin проверяет пароль администратора и открывает сессию.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		h.writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	h.authMiddleware.SetAuthCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// AdminLogout завершает сессию администратора.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type tournamentRequest struct {
	Name        string           `json:"name"`
	Date        string           `json:"date"`
	Location    string           `json:"location"`
	Description string           `json:"description"`
	CourseType  string           `json:"courseType"`
	CoursePar   int              `json:"coursePar"`
	League      model.LeagueType `json:"league"`
	IsVisible   *bool            `json:"isVisible"`
}

func (req *tournamentRequest) toModel() (model.Tournament, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			return model.Tournament{}, err
		}
	}

	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}

	return model.Tournament{
		Name:        req.Name,
		Date:        date,
		Location:    req.Location,
		Description: req.Description,
		CourseType:  req.CourseType,
		CoursePar:   req.CoursePar,
		League:      req.League,
		IsVisible:   visible,
	}, nil
}

// CreateTournament сохраняет новый турнир.
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Date == "" {
		h.writeError(w, http.StatusBadRequest, "name and date are required")
		return
	}

	t, err := req.toModel()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}

	created, err := h.service.CreateTournament(r.Context(), t)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLeague) {
			h.writeError(w, http.StatusBadRequest, "invalid league type")
			return
		}
		h.logger.Error("create tournament error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to create tournament")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "tournament": created})
}

// GetTournaments возвращает турниры, опционально отфильтрованные по лиге.
// Администратор видит и скрытые турниры.
func (h *Handler) GetTournaments(w http.ResponseWriter, r *http.Request) {
	league := model.LeagueType(r.URL.Query().Get("league"))

	includeHidden := r.URL.Query().Get("includeHidden") == "true" &&
		h.authMiddleware.Authenticated(r)

	tournaments, err := h.service.GetTournaments(r.Context(), league, includeHidden)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLeague) {
			h.writeError(w, http.StatusBadRequest, "invalid league type")
			return
		}
		h.logger.Error("get tournaments error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch tournaments")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "tournaments": tournaments})
}

// GetTournament возвращает турнир по идентификатору.
func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := h.service.GetTournament(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTournamentNotFound) {
			h.writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		h.logger.Error("get tournament error", zap.Error(err), zap.String("id", id))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch tournament")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "tournament": t})
}

// UpdateTournament обновляет турнир.
func (h *Handler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toModel()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}
	t.ID = id

	if err := h.service.UpdateTournament(r.Context(), t); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLeague):
			h.writeError(w, http.StatusBadRequest, "invalid league type")
		case errors.Is(err, repository.ErrTournamentNotFound):
			h.writeError(w, http.StatusNotFound, "tournament not found")
		default:
			h.logger.Error("update tournament error", zap.Error(err), zap.String("id", id))
			h.writeError(w, http.StatusInternalServerError, "failed to update tournament")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteTournament удаляет турнир.
func (h *Handler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteTournament(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTournamentNotFound) {
			h.writeError(w, http.StatusNotFound, "tournament not found")
			return
		}
		h.logger.Error("delete tournament error", zap.Error(err), zap.String("id", id))
		h.writeError(w, http.StatusInternalServerError, "failed to delete tournament")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type standingsRequest struct {
	League         model.LeagueType `json:"leagueType"`
	TeamName       string           `json:"teamName"`
	PlayerNames    string           `json:"playerNames"`
	TotalPoints    int              `json:"totalPoints"`
	ScoringAverage float64          `json:"scoringAverage"`
}

// GetStandings возвращает турнирную таблицу лиги.
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	league := model.LeagueType(r.URL.Query().Get("league"))

	standings, err := h.service.ListStandings(r.Context(), league)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLeague) {
			h.writeError(w, http.StatusBadRequest, "invalid league type")
			return
		}
		h.logger.Error("get standings error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch standings")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "standings": standings})
}

// CreateStandingsEntry сохраняет строку турнирной таблицы.
func (h *Handler) CreateStandingsEntry(w http.ResponseWriter, r *http.Request) {
	var req standingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TeamName == "" {
		h.writeError(w, http.StatusBadRequest, "team name is required")
		return
	}

	created, err := h.service.CreateStandingsEntry(r.Context(), model.StandingsEntry{
		League:         req.League,
		TeamName:       req.TeamName,
		PlayerNames:    req.PlayerNames,
		TotalPoints:    req.TotalPoints,
		ScoringAverage: req.ScoringAverage,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLeague):
			h.writeError(w, http.StatusBadRequest, "invalid league type")
		case errors.Is(err, repository.ErrStandingsExists):
			h.writeError(w, http.StatusConflict, "team already has a standings entry in this league")
		default:
			h.logger.Error("create standings entry error", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to create standings entry")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "entry": created})
}

// UpdateStandingsEntry обновляет строку турнирной таблицы.
func (h *Handler) UpdateStandingsEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req standingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.UpdateStandingsEntry(r.Context(), model.StandingsEntry{
		ID:             id,
		League:         req.League,
		TeamName:       req.TeamName,
		PlayerNames:    req.PlayerNames,
		TotalPoints:    req.TotalPoints,
		ScoringAverage: req.ScoringAverage,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStandingsNotFound) {
			h.writeError(w, http.StatusNotFound, "standings entry not found")
			return
		}
		h.logger.Error("update standings entry error", zap.Error(err), zap.String("id", id))
		h.writeError(w, http.StatusInternalServerError, "failed to update standings entry")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteStandingsEntry удаляет строку турнирной таблицы.
func (h *Handler) DeleteStandingsEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteStandingsEntry(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrStandingsNotFound) {
			h.writeError(w, http.StatusNotFound, "standings entry not found")
			return
		}
		h.logger.Error("delete standings entry error", zap.Error(err), zap.String("id", id))
		h.writeError(w, http.StatusInternalServerError, "failed to delete standings entry")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetPricing возвращает стоимость регистрации по лигам.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.GetLeaguePrices(r.Context())
	if err != nil {
		h.logger.Error("get pricing error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch pricing")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "pricing": prices})
}

type pricingRequest struct {
	AmountCents int64 `json:"amountCents"`
}

// SetPricing записывает стоимость регистрации в лиге.
func (h *Handler) SetPricing(w http.ResponseWriter, r *http.Request) {
	league := model.LeagueType(chi.URLParam(r, "league"))

	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.SetLeaguePrice(r.Context(), league, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLeague):
			h.writeError(w, http.StatusBadRequest, "invalid league type")
		case errors.Is(err, service.ErrInvalidPrice):
			h.writeError(w, http.StatusBadRequest, "price must be a positive amount in cents")
		default:
			h.logger.Error("set pricing error", zap.Error(err), zap.String("league", string(league)))
			h.writeError(w, http.StatusInternalServerError, "failed to update pricing")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Health сообщает о готовности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
