package mailer

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/birdieway/golf-league/internal/model"
)

var funcs = template.FuncMap{
	"dollars": func(cents int64) string {
		return fmt.Sprintf("$%.2f", float64(cents)/100)
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"inc": func(i int) int { return i + 1 },
}

var businessTmpl = template.Must(template.New("business").Parse(`
<div style="background-color: #f4f4f4; padding: 15px; border-radius: 8px; margin: 10px 0;">
  <h3 style="margin-bottom: 10px; color: #0A5C36;">Business League Registration Details</h3>
  <p><strong>Team Name:</strong> {{.TeamName}}</p>
  <p><strong>Company Name:</strong> {{.CompanyName}}</p>
  <p><strong>Contact Name:</strong> {{.ContactName}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Phone:</strong> {{.Phone}}</p>
</div>`))

var juniorTmpl = template.Must(template.New("junior").Parse(`
<div style="background-color: #f4f4f4; padding: 15px; border-radius: 8px; margin: 10px 0;">
  <h3 style="margin-bottom: 10px; color: #0A5C36;">Junior League Registration Details</h3>
  <p><strong>Player Name:</strong> {{.PlayerName}}</p>
  <p><strong>Date of Birth:</strong> {{.DateOfBirth}}</p>
  <p><strong>Shirt Size:</strong> {{.ShirtSize}}</p>
  <p><strong>Parent Name:</strong> {{.ParentName}}</p>
  <p><strong>Parent Email:</strong> {{.ParentEmail}}</p>
  <p><strong>Parent Phone:</strong> {{.ParentPhone}}</p>
</div>`))

var longDayTmpl = template.Must(template.New("longday").Funcs(funcs).Parse(`
<div style="background-color: #f4f4f4; padding: 15px; border-radius: 8px; margin: 10px 0;">
  <h3 style="margin-bottom: 10px; color: #0A5C36;">Long Day League Registration Details</h3>
  <p><strong>Team Name:</strong> {{.TeamName}}</p>
  <h4 style="margin-top: 15px;">Players:</h4>
  {{range $i, $p := .Players}}
  <div style="background-color: #e9e9e9; padding: 10px; border-radius: 6px; margin: 5px 0;">
    <p><strong>Player {{inc $i}} Name:</strong> {{$p.Name}}</p>
    <p><strong>Email:</strong> {{$p.Email}}</p>
    <p><strong>Phone:</strong> {{$p.Phone}}</p>
    <p><strong>Shirt Size:</strong> {{$p.ShirtSize}}</p>
  </div>
  {{else}}
  <p>No players registered</p>
  {{end}}
</div>`))

// FormDetails возвращает HTML-блок с данными анкеты. Варианты объединения
// перечислены исчерпывающе; незаполненный вариант даёт заглушку.
func FormDetails(form *model.RegistrationForm) string {
	if form == nil {
		return `<div style="background-color: #f4f4f4; padding: 15px; border-radius: 8px; margin: 10px 0;"><p>Unrecognized League Type</p></div>`
	}

	var b strings.Builder
	var err error

	switch form.League {
	case model.LeagueBusiness:
		if form.Business == nil {
			break
		}
		err = businessTmpl.Execute(&b, form.Business)
	case model.LeagueJunior:
		if form.Junior == nil {
			break
		}
		err = juniorTmpl.Execute(&b, form.Junior)
	case model.LeagueLongDay:
		if form.LongDay == nil {
			break
		}
		err = longDayTmpl.Execute(&b, form.LongDay)
	}

	if err != nil || b.Len() == 0 {
		return `<div style="background-color: #f4f4f4; padding: 15px; border-radius: 8px; margin: 10px 0;"><p>Unrecognized League Type</p></div>`
	}

	return b.String()
}

var newRegistrationTmpl = template.Must(template.New("new-registration").Funcs(funcs).Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0A5C36;">New {{title .League}} League Registration</h2>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px;">
    <h3>Registration Details</h3>
    <p><strong>League Type:</strong> {{.League}}</p>
    <p><strong>Amount:</strong> {{dollars .AmountCents}}</p>
    {{.Details}}
  </div>
</div>`))

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0A5C36;">Registration Confirmed</h2>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px;">
    <p>Payment Successful</p>
    <p><strong>Amount:</strong> {{dollars .AmountCents}}</p>
    <p><strong>League:</strong> {{.League}}</p>
    {{.Details}}
  </div>
</div>`))

var cancellationTmpl = template.Must(template.New("cancellation").Funcs(funcs).Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0A5C36;">Registration Cancelled</h2>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px;">
    <p>The following registration has been cancelled:</p>
    <p><strong>League:</strong> {{.League}}</p>
    <p><strong>Amount:</strong> {{dollars .AmountCents}}</p>
    {{.Details}}
  </div>
</div>`))

var contactTmpl = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0A5C36;">New Contact Form Submission</h2>
  <div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px;">
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Phone:</strong> {{.Phone}}</p>
    <h3 style="color: #0A5C36;">Message:</h3>
    <p style="white-space: pre-wrap;">{{.Message}}</p>
  </div>
</div>`))

type registrationEmail struct {
	League      string
	AmountCents int64
	Details     template.HTML
}

// NewRegistrationBody формирует внутреннее уведомление о новой регистрации.
func NewRegistrationBody(form *model.RegistrationForm, amountCents int64) string {
	return render(newRegistrationTmpl, form, amountCents)
}

// ConfirmationBody формирует письмо-подтверждение оплаченной регистрации.
func ConfirmationBody(form *model.RegistrationForm, amountCents int64) string {
	return render(confirmationTmpl, form, amountCents)
}

// CancellationBody формирует уведомление об отмене регистрации.
func CancellationBody(form *model.RegistrationForm, amountCents int64) string {
	return render(cancellationTmpl, form, amountCents)
}

func render(tmpl *template.Template, form *model.RegistrationForm, amountCents int64) string {
	data := registrationEmail{
		AmountCents: amountCents,
		Details:     template.HTML(FormDetails(form)),
	}
	if form != nil {
		data.League = string(form.League)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}

// ContactMessage описывает содержимое формы обратной связи.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// ContactBody формирует внутреннее письмо с содержимым формы обратной связи.
func ContactBody(m ContactMessage) string {
	var b strings.Builder
	if err := contactTmpl.Execute(&b, m); err != nil {
		return ""
	}
	return b.String()
}
