// Package model содержит доменные сущности сервиса гольф-лиги.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// LeagueType описывает тип лиги, определяющий форму регистрационной анкеты.
type LeagueType string

const (
	LeagueBusiness LeagueType = "business"
	LeagueJunior   LeagueType = "junior"
	LeagueLongDay  LeagueType = "longday"
)

// IsValid сообщает, входит ли тип лиги в закрытый набор поддерживаемых значений.
func (l LeagueType) IsValid() bool {
	switch l {
	case LeagueBusiness, LeagueJunior, LeagueLongDay:
		return true
	}
	return false
}

// RegistrationStatus описывает жизненный цикл регистрации.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// PaymentStatus описывает финансовое состояние регистрации. Отдельная ось от
// RegistrationStatus: регистрация может быть отменена администратором до оплаты,
// а платёж может завершиться неудачей при формально существующей регистрации.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Ключи метаданных checkout-сессии, записываемые сервисом.
const (
	MetaLeagueType       = "leagueType"
	MetaRegistrationData = "registrationData"
	MetaStatus           = "status"
	MetaCancelledAt      = "cancelledAt"

	MetaStatusCancelled = "cancelled"
)

// CheckoutSession представляет checkout-сессию платёжного провайдера.
// Провайдер остаётся источником истины: сервис никогда не хранит эти данные.
type CheckoutSession struct {
	ID            string
	URL           string
	Status        string // open/complete/expired — жизненный цикл сессии у провайдера
	PaymentStatus string // paid/unpaid/no_payment_required — сырой платёжный статус
	AmountTotal   int64
	CustomerEmail string
	Metadata      map[string]string
	CreatedAt     time.Time
}

// RawStatus возвращает статус, подаваемый на вход таблице соответствия:
// терминальный статус самой сессии (expired/canceled) имеет приоритет над
// платёжным статусом.
func (s *CheckoutSession) RawStatus() string {
	if s.Status == "expired" || s.Status == "canceled" {
		return s.Status
	}
	return s.PaymentStatus
}

// CancelledByAdmin сообщает, помечена ли сессия отменённой через метаданные.
func (s *CheckoutSession) CancelledByAdmin() bool {
	return s.Metadata[MetaStatus] == MetaStatusCancelled
}

// Registration — проекция checkout-сессии в модель регистрации. Никогда не
// сохраняется отдельно, всегда пересчитывается из данных провайдера.
type Registration struct {
	ID               string             `json:"id"`
	CustomerEmail    string             `json:"customerEmail,omitempty"`
	Amount           int64              `json:"amount"`
	Status           RegistrationStatus `json:"status"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus"`
	LeagueType       LeagueType         `json:"leagueType"`
	RegistrationData json.RawMessage    `json:"registrationData"`
	CreatedAt        int64              `json:"createdAt"`
}

// BusinessForm — анкета бизнес-лиги.
type BusinessForm struct {
	TeamName    string `json:"teamName"`
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// JuniorForm — анкета юниорской лиги.
type JuniorForm struct {
	PlayerName  string `json:"playerName"`
	DateOfBirth string `json:"dateOfBirth"`
	ShirtSize   string `json:"shirtSize"`
	ParentName  string `json:"parentName"`
	ParentEmail string `json:"parentEmail"`
	ParentPhone string `json:"parentPhone"`
}

// LongDayPlayer — участник команды лиги long day.
type LongDayPlayer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ShirtSize string `json:"shirtSize"`
}

// LongDayForm — анкета лиги long day.
type LongDayForm struct {
	TeamName string          `json:"teamName"`
	Players  []LongDayPlayer `json:"players"`
}

// RegistrationForm — размеченное объединение анкет: заполнен ровно один вариант,
// соответствующий League.
type RegistrationForm struct {
	League   LeagueType
	Business *BusinessForm
	Junior   *JuniorForm
	LongDay  *LongDayForm
}

// ParseRegistrationForm разбирает JSON-анкету в вариант, определяемый типом лиги.
func ParseRegistrationForm(league LeagueType, data []byte) (*RegistrationForm, error) {
	f := &RegistrationForm{League: league}

	switch league {
	case LeagueBusiness:
		var v BusinessForm
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse business form: %w", err)
		}
		f.Business = &v
	case LeagueJunior:
		var v JuniorForm
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse junior form: %w", err)
		}
		f.Junior = &v
	case LeagueLongDay:
		var v LongDayForm
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse longday form: %w", err)
		}
		f.LongDay = &v
	default:
		return nil, fmt.Errorf("unknown league type: %q", league)
	}

	return f, nil
}

// ContactEmail возвращает контактный адрес из анкеты: email у бизнес-лиги,
// parentEmail у юниорской, email первого игрока у long day. Пустая строка —
// допустимый результат, отсутствие адреса не считается ошибкой.
func (f *RegistrationForm) ContactEmail() string {
	switch f.League {
	case LeagueBusiness:
		if f.Business != nil {
			return f.Business.Email
		}
	case LeagueJunior:
		if f.Junior != nil {
			return f.Junior.ParentEmail
		}
	case LeagueLongDay:
		if f.LongDay != nil && len(f.LongDay.Players) > 0 {
			return f.LongDay.Players[0].Email
		}
	}
	return ""
}

// Tournament описывает турнир лиги.
type Tournament struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        time.Time  `json:"date"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	CourseType  string     `json:"courseType"` // 9hole или 18hole
	CoursePar   int        `json:"coursePar"`
	League      LeagueType `json:"league"`
	IsVisible   bool       `json:"isVisible"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// StandingsEntry описывает строку турнирной таблицы лиги.
type StandingsEntry struct {
	ID             string     `json:"id"`
	League         LeagueType `json:"leagueType"`
	TeamName       string     `json:"teamName"`
	PlayerNames    string     `json:"playerNames"`
	TotalPoints    int        `json:"totalPoints"`
	ScoringAverage float64    `json:"scoringAverage"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// LeaguePrice хранит стоимость регистрации в лиге в центах.
type LeaguePrice struct {
	League      LeagueType `json:"league"`
	AmountCents int64      `json:"amountCents"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// WebhookEvent — проверенное по подписи событие платёжного провайдера.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // заполнено для событий checkout.session.*
}

// DashboardSummary — сводка для административной панели.
type DashboardSummary struct {
	Recent       []Registration `json:"recent"`
	RevenueCents int64          `json:"revenueCents"`
	Confirmed    int            `json:"confirmed"`
	Pending      int            `json:"pending"`
}
