// Package status содержит таблицу соответствия статусов платёжного провайдера
// двухосевой модели статусов регистрации.
package status

import "github.com/birdieway/golf-league/internal/model"

// Map переводит сырой статус провайдера в пару {статус регистрации, статус
// платежа}. Функция тотальна: нераспознанные значения трактуются как pending,
// а не как ошибка. Обе точки вызова (листинг и прямая верификация) обязаны
// использовать одну и ту же таблицу.
func Map(raw string) (model.RegistrationStatus, model.PaymentStatus) {
	switch raw {
	case "paid", "complete", "succeeded":
		return model.RegistrationConfirmed, model.PaymentPaid
	case "unpaid", "requires_payment_method", "requires_confirmation", "requires_action", "processing":
		return model.RegistrationPending, model.PaymentPending
	case "expired", "canceled":
		return model.RegistrationCancelled, model.PaymentCancelled
	case "failed":
		return model.RegistrationCancelled, model.PaymentFailed
	default:
		return model.RegistrationPending, model.PaymentPending
	}
}
