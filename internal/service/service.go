// Package service реализует бизнес-логику сервиса гольф-лиги.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/birdieway/golf-league/internal/mailer"
	"github.com/birdieway/golf-league/internal/model"
	"github.com/birdieway/golf-league/internal/payments"
	"github.com/birdieway/golf-league/internal/status"
)

// listLimit ограничивает страницу сессий, запрашиваемых у провайдера.
const listLimit = 100

// ErrInvalidLeague возвращается при неизвестном типе лиги.
var (
	ErrInvalidLeague = errors.New("invalid league type")
	// ErrInvalidPrice возвращается при отсутствующей или неположительной цене.
	ErrInvalidPrice = errors.New("price must be a positive amount in cents")
	// ErrMissingSessionID возвращается, если идентификатор сессии не передан.
	ErrMissingSessionID = errors.New("session id is required")
	// ErrMailerNotConfigured возвращается, когда операция требует почтового
	// релея, а он не настроен.
	ErrMailerNotConfigured = errors.New("mailer is not configured")
)

// PaymentGateway описывает контракт платёжного провайдера, используемый сервисом.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*model.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*model.CheckoutSession, error)
	ListCheckoutSessions(ctx context.Context, limit int) ([]model.CheckoutSession, error)
	MarkSessionCancelled(ctx context.Context, id string, at time.Time) error
	ExpireSession(ctx context.Context, id string) error
	VerifyWebhook(payload []byte, sigHeader string) (*model.WebhookEvent, error)
}

// Mailer описывает контракт почтового релея. Ошибки отправки сервис поглощает
// всюду, где уведомление вторично по отношению к основной операции.
type Mailer interface {
	Send(ctx context.Context, m mailer.Message) error
	InternalAddress() string
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
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

// Service содержит бизнес-логику сервиса гольф-лиги.
type Service struct {
	payments PaymentGateway
	mailer   Mailer
	repo     Repository
	logger   *zap.Logger
	baseURL  string
}

// NewService создаёт сервис с указанными зависимостями. mailer может быть nil:
// тогда все уведомления превращаются в логируемые no-op. repo может быть nil:
// тогда недоступны контентные операции и запись обработанных событий.
func NewService(gw PaymentGateway, m Mailer, repo Repository, logger *zap.Logger, baseURL string) *Service {
	return &Service{
		payments: gw,
		mailer:   m,
		repo:     repo,
		logger:   logger,
		baseURL:  baseURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// notify отправляет письмо и поглощает любую ошибку отправки: уведомление
// никогда не меняет исход основной операции.
func (s *Service) notify(ctx context.Context, m mailer.Message) {
	if s.mailer == nil {
		s.logger.Debug("mailer not configured, skipping notification", zap.String("subject", m.Subject))
		return
	}
	if err := s.mailer.Send(ctx, m); err != nil {
		s.logger.Error("send notification error", zap.Error(err), zap.String("subject", m.Subject))
	}
}

// CreateCheckout создаёт checkout-сессию для регистрации в лиге. Анкета
// сохраняется в метаданных сессии — это единственная долговременная запись
// её содержимого. Внутреннее уведомление отправляется по возможности и не
// влияет на результат.
func (s *Service) CreateCheckout(ctx context.Context, league model.LeagueType, priceCents int64, formData json.RawMessage) (*model.CheckoutSession, error) {
	if !league.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeague, league)
	}
	if priceCents <= 0 {
		return nil, ErrInvalidPrice
	}

	if len(formData) == 0 {
		formData = json.RawMessage("{}")
	}

	// Анкета непрозрачна: нераспознанная форма не мешает созданию сессии,
	// просто не даёт контактного адреса.
	form, err := model.ParseRegistrationForm(league, formData)
	if err != nil {
		s.logger.Warn("parse registration form error", zap.Error(err), zap.String("league", string(league)))
		form = nil
	}

	var contactEmail string
	if form != nil {
		contactEmail = form.ContactEmail()
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutParams{
		League:        league,
		AmountCents:   priceCents,
		FormJSON:      formData,
		CustomerEmail: contactEmail,
		SuccessURL:    s.baseURL + "/registration/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/registration/cancel",
	})
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		s.notify(ctx, mailer.Message{
			To:      s.mailer.InternalAddress(),
			Subject: fmt.Sprintf("New %s League Registration", league),
			HTML:    mailer.NewRegistrationBody(form, priceCents),
		})
	}

	return sess, nil
}

// ProcessWebhook проверяет подпись события и выполняет его обработку.
// Доставка у провайдера at-least-once: повторные события отсеиваются по
// записи в БД, а при недоступности БД обрабатываются повторно (возможное
// дублирование письма предпочтительнее потерянного события).
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := s.payments.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return err
	}

	if s.repo != nil {
		first, derr := s.repo.MarkEventProcessed(ctx, ev.ID, ev.Type)
		if derr != nil {
			s.logger.Error("record webhook event error", zap.Error(derr), zap.String("event", ev.ID))
		} else if !first {
			s.logger.Info("duplicate webhook event, skipping", zap.String("event", ev.ID), zap.String("type", ev.Type))
			return nil
		}
	}

	switch ev.Type {
	case "checkout.session.completed":
		s.handleSessionCompleted(ctx, ev.Session)

	case "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
		s.logger.Info("checkout session event", zap.String("type", ev.Type), zap.String("session", sessionID(ev.Session)))

	case "payment_intent.succeeded", "payment_intent.payment_failed":
		s.logger.Info("payment intent event", zap.String("type", ev.Type))

	default:
		s.logger.Info("unhandled webhook event type", zap.String("type", ev.Type))
	}

	return nil
}

func sessionID(sess *model.CheckoutSession) string {
	if sess == nil {
		return ""
	}
	return sess.ID
}

func (s *Service) handleSessionCompleted(ctx context.Context, sess *model.CheckoutSession) {
	if sess == nil {
		s.logger.Warn("completed event without session payload")
		return
	}
	if sess.CustomerEmail == "" {
		s.logger.Info("completed session has no customer email", zap.String("session", sess.ID))
		return
	}
	if s.mailer == nil {
		s.logger.Debug("mailer not configured, skipping confirmation", zap.String("session", sess.ID))
		return
	}

	form := s.formFromMetadata(sess)
	s.notify(ctx, mailer.Message{
		To:      sess.CustomerEmail,
		CC:      s.mailer.InternalAddress(),
		Subject: "BirdieWay Golf - Registration Confirmed",
		HTML:    mailer.ConfirmationBody(form, sess.AmountTotal),
	})
}

// formFromMetadata восстанавливает анкету из метаданных сессии. Повреждённые
// данные логируются и не считаются ошибкой: письмо уходит с заглушкой.
func (s *Service) formFromMetadata(sess *model.CheckoutSession) *model.RegistrationForm {
	league := model.LeagueType(sess.Metadata[model.MetaLeagueType])
	raw := sess.Metadata[model.MetaRegistrationData]
	if raw == "" {
		raw = "{}"
	}

	form, err := model.ParseRegistrationForm(league, []byte(raw))
	if err != nil {
		s.logger.Warn("parse registration metadata error", zap.Error(err), zap.String("session", sess.ID))
		return nil
	}
	return form
}

// VerificationResult — результат прямой проверки платежа у провайдера.
type VerificationResult struct {
	Status        model.RegistrationStatus
	PaymentStatus model.PaymentStatus
	AmountCents   int64
	League        model.LeagueType
	Email         string
}

// VerifyPayment запрашивает актуальный статус сессии напрямую у провайдера.
// Для оплаченной сессии повторяется то же подтверждающее письмо, что и в
// webhook-обработчике: эта избыточность намеренная и закрывает гонку, когда
// страница успеха открывается раньше доставки события.
func (s *Service) VerifyPayment(ctx context.Context, sessionID string) (*VerificationResult, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	sess, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.PaymentStatus == "paid" && sess.CustomerEmail != "" && s.mailer != nil {
		form := s.formFromMetadata(sess)
		s.notify(ctx, mailer.Message{
			To:      sess.CustomerEmail,
			CC:      s.mailer.InternalAddress(),
			Subject: "BirdieWay Golf - Registration Confirmed",
			HTML:    mailer.ConfirmationBody(form, sess.AmountTotal),
		})
	}

	// Метаданные об административной отмене здесь намеренно игнорируются:
	// прямая проверка всегда отражает фактический статус у провайдера.
	st, ps := status.Map(sess.RawStatus())

	return &VerificationResult{
		Status:        st,
		PaymentStatus: ps,
		AmountCents:   sess.AmountTotal,
		League:        model.LeagueType(sess.Metadata[model.MetaLeagueType]),
		Email:         sess.CustomerEmail,
	}, nil
}

// ListRegistrations возвращает проекцию регистраций из checkout-сессий
// провайдера. Сессии, помеченные отменёнными администратором либо истёкшие
// или отменённые на стороне провайдера, в список не попадают.
func (s *Service) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	sessions, err := s.payments.ListCheckoutSessions(ctx, listLimit)
	if err != nil {
		return nil, err
	}

	registrations := make([]model.Registration, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]

		if sess.CancelledByAdmin() {
			continue
		}
		if sess.Status == "expired" || sess.Status == "canceled" {
			continue
		}

		st, ps := status.Map(sess.RawStatus())

		raw := sess.Metadata[model.MetaRegistrationData]
		if raw == "" || !json.Valid([]byte(raw)) {
			if raw != "" {
				s.logger.Warn("malformed registration metadata", zap.String("session", sess.ID))
			}
			raw = "{}"
		}

		registrations = append(registrations, model.Registration{
			ID:               sess.ID,
			CustomerEmail:    sess.CustomerEmail,
			Amount:           sess.AmountTotal,
			Status:           st,
			PaymentStatus:    ps,
			LeagueType:       model.LeagueType(sess.Metadata[model.MetaLeagueType]),
			RegistrationData: json.RawMessage(raw),
			CreatedAt:        sess.CreatedAt.Unix(),
		})
	}

	return registrations, nil
}

// dashboardRecent задаёт число последних регистраций в сводке.
const dashboardRecent = 3

// DashboardSummary строит сводку для панели администратора. Ожидаемая выручка
// включает и оплаченные, и ожидающие оплаты регистрации; неуспешные и
// отменённые платежи исключаются.
func (s *Service) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	registrations, err := s.ListRegistrations(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.DashboardSummary{}

	for _, reg := range registrations {
		switch reg.PaymentStatus {
		case model.PaymentPaid, model.PaymentPending:
			summary.RevenueCents += reg.Amount
		}

		switch reg.Status {
		case model.RegistrationConfirmed:
			summary.Confirmed++
		case model.RegistrationPending:
			summary.Pending++
		}
	}

	recent := make([]model.Registration, len(registrations))
	copy(recent, registrations)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt > recent[j].CreatedAt
	})
	if len(recent) > dashboardRecent {
		recent = recent[:dashboardRecent]
	}
	summary.Recent = recent

	return summary, nil
}

// CancelRegistration помечает сессию отменённой. Провайдер не удаляет сессии,
// за которыми может стоять реальный платёж, поэтому отмена — это тег в
// метаданных плюс попытка завершить ещё открытую сессию. Для оплаченной
// регистрации клиенту по возможности отправляется уведомление об отмене.
func (s *Service) CancelRegistration(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}

	sess, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.payments.MarkSessionCancelled(ctx, sessionID, time.Now()); err != nil {
		// Терминальная сессия может не принять обновление метаданных — отмена
		// всё равно считается состоявшейся.
		s.logger.Warn("mark session cancelled error", zap.Error(err), zap.String("session", sessionID))
	}

	if sess.Status == "open" {
		if err := s.payments.ExpireSession(ctx, sessionID); err != nil {
			if errors.Is(err, payments.ErrSessionNotFound) {
				s.logger.Info("session already gone on expire", zap.String("session", sessionID))
			} else {
				return err
			}
		}
	}

	if sess.PaymentStatus == "paid" && sess.CustomerEmail != "" && s.mailer != nil {
		form := s.formFromMetadata(sess)
		s.notify(ctx, mailer.Message{
			To:      sess.CustomerEmail,
			CC:      s.mailer.InternalAddress(),
			Subject: "BirdieWay Golf - Registration Cancelled",
			HTML:    mailer.CancellationBody(form, sess.AmountTotal),
		})
	}

	return nil
}

// SendContactMessage пересылает сообщение формы обратной связи на внутренний
// адрес. Здесь письмо — основная операция, и его ошибка поднимается наверх.
func (s *Service) SendContactMessage(ctx context.Context, m mailer.ContactMessage) error {
	if s.mailer == nil {
		return ErrMailerNotConfigured
	}

	msg := mailer.Message{
		To:      s.mailer.InternalAddress(),
		Subject: fmt.Sprintf("New Contact Form Submission from %s", m.Name),
		HTML:    mailer.ContactBody(m),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send contact message: %w", err)
	}

	return nil
}

// CreateTournament сохраняет новый турнир.
func (s *Service) CreateTournament(ctx context.Context, t model.Tournament) (*model.Tournament, error) {
	if !t.League.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeague, t.League)
	}
	return s.repo.CreateTournament(ctx, t)
}

// GetTournaments возвращает турниры лиги; includeHidden открывает скрытые
// турниры администраторам.
func (s *Service) GetTournaments(ctx context.Context, league model.LeagueType, includeHidden bool) ([]model.Tournament, error) {
	if league != "" && !league.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeague, league)
	}
	return s.repo.GetTournaments(ctx, league, includeHidden)
}

// GetTournament возвращает турнир по идентификатору.
func (s *Service) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	return s.repo.GetTournament(ctx, id)
}

// UpdateTournament обновляет турнир.
func (s *Service) UpdateTournament(ctx context.Context, t model.Tournament) error {
	if !t.League.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeague, t.League)
	}
	return s.repo.UpdateTournament(ctx, t)
}

// DeleteTournament удаляет турнир.
func (s *Service) DeleteTournament(ctx context.Context, id string) error {
	return s.repo.DeleteTournament(ctx, id)
}

// ListStandings возвращает таблицу лиги.
func (s *Service) ListStandings(ctx context.Context, league model.LeagueType) ([]model.StandingsEntry, error) {
	if league != "" && !league.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeague, league)
	}
	return s.repo.ListStandings(ctx, league)
}

// CreateStandingsEntry сохраняет строку таблицы.
func (s *Service) CreateStandingsEntry(ctx context.Context, e model.StandingsEntry) (*model.StandingsEntry, error) {
	if !e.League.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeague, e.League)
	}
	return s.repo.CreateStandingsEntry(ctx, e)
}

// UpdateStandingsEntry обновляет строку таблицы.
func (s *Service) UpdateStandingsEntry(ctx context.Context, e model.StandingsEntry) error {
	return s.repo.UpdateStandingsEntry(ctx, e)
}

// DeleteStandingsEntry удаляет строку таблицы.
func (s *Service) DeleteStandingsEntry(ctx context.Context, id string) error {
	return s.repo.DeleteStandingsEntry(ctx, id)
}

// GetLeaguePrices возвращает стоимость регистрации по лигам.
func (s *Service) GetLeaguePrices(ctx context.Context) ([]model.LeaguePrice, error) {
	return s.repo.GetLeaguePrices(ctx)
}

// SetLeaguePrice записывает стоимость регистрации в лиге.
func (s *Service) SetLeaguePrice(ctx context.Context, league model.LeagueType, amountCents int64) error {
	if !league.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeague, league)
	}
	if amountCents <= 0 {
		return ErrInvalidPrice
	}
	return s.repo.SetLeaguePrice(ctx, league, amountCents)
}
