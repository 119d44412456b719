// Package payments предоставляет клиент платёжного провайдера Stripe.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/birdieway/golf-league/internal/model"
)

// ErrSessionNotFound возвращается, если провайдер не знает указанную сессию.
var (
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrInvalidSignature возвращается при неудачной проверке подписи webhook-события.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Gateway инкапсулирует обращения к API Stripe: создание, чтение и листинг
// checkout-сессий, обновление метаданных и проверку подписи webhook-событий.
type Gateway struct {
	api           *client.API
	backend       stripe.Backend
	key           string
	webhookSecret string
}

// NewGateway создаёт клиент Stripe с указанными секретами.
func NewGateway(secretKey, webhookSecret string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Gateway{
		api:           api,
		backend:       stripe.GetBackend(stripe.APIBackend),
		key:           secretKey,
		webhookSecret: webhookSecret,
	}
}

// CheckoutParams описывает параметры создаваемой checkout-сессии.
type CheckoutParams struct {
	League        model.LeagueType
	AmountCents   int64
	FormJSON      []byte
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CreateCheckoutSession создаёт hosted-сессию оплаты с одной позицией и
// анкетой регистрации в метаданных.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*model.CheckoutSession, error) {
	name := leagueTitle(p.League) + " League Registration"

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(name),
						Description: stripe.String(fmt.Sprintf("Registration for %s league", p.League)),
					},
					UnitAmount: stripe.Int64(p.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}

	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	params.AddMetadata(model.MetaLeagueType, string(p.League))
	params.AddMetadata(model.MetaRegistrationData, string(p.FormJSON))

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", mapError(err))
	}

	return toModel(sess), nil
}

// GetCheckoutSession запрашивает сессию напрямую у провайдера, минуя любые кэши.
func (g *Gateway) GetCheckoutSession(ctx context.Context, id string) (*model.CheckoutSession, error) {
	sess, err := g.api.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", id, mapError(err))
	}

	return toModel(sess), nil
}

// ListCheckoutSessions возвращает не более limit последних checkout-сессий.
func (g *Gateway) ListCheckoutSessions(ctx context.Context, limit int) ([]model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	var sessions []model.CheckoutSession

	iter := g.api.CheckoutSessions.List(params)
	for iter.Next() {
		sessions = append(sessions, *toModel(iter.CheckoutSession()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list checkout sessions: %w", mapError(err))
	}

	return sessions, nil
}

// MarkSessionCancelled помечает сессию отменённой через метаданные: провайдер
// не умеет удалять сессии, за которыми может стоять реальный платёж.
func (g *Gateway) MarkSessionCancelled(ctx context.Context, id string, at time.Time) error {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddMetadata(model.MetaStatus, model.MetaStatusCancelled)
	params.AddMetadata(model.MetaCancelledAt, at.UTC().Format(time.RFC3339))

	sess := &stripe.CheckoutSession{}
	err := g.backend.Call(http.MethodPost, "/v1/checkout/sessions/"+id, g.key, params, sess)
	if err != nil {
		return fmt.Errorf("update checkout session %s: %w", id, mapError(err))
	}

	return nil
}

// ExpireSession завершает открытую сессию на стороне провайдера.
func (g *Gateway) ExpireSession(ctx context.Context, id string) error {
	_, err := g.api.CheckoutSessions.Expire(id, &stripe.CheckoutSessionExpireParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("expire checkout session %s: %w", id, mapError(err))
	}

	return nil
}

// VerifyWebhook проверяет подпись входящего события и разбирает его конверт.
// Бизнес-содержимое не трогается до успешной проверки подписи.
func (g *Gateway) VerifyWebhook(payload []byte, sigHeader string) (*model.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	ev := &model.WebhookEvent{
		ID:   event.ID,
		Type: event.Type,
	}

	if strings.HasPrefix(event.Type, "checkout.session.") {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("parse session from event %s: %w", event.ID, err)
		}
		ev.Session = toModel(&sess)
	}

	return ev, nil
}

func toModel(s *stripe.CheckoutSession) *model.CheckoutSession {
	return &model.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
		CreatedAt:     time.Unix(s.Created, 0),
	}
}

func mapError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
		return ErrSessionNotFound
	}
	return err
}

func leagueTitle(l model.LeagueType) string {
	s := string(l)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
