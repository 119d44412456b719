package mailer

import (
	"strings"
	"testing"

	"github.com/birdieway/golf-league/internal/model"
)

func TestFormDetails_Business(t *testing.T) {
	form := &model.RegistrationForm{
		League: model.LeagueBusiness,
		Business: &model.BusinessForm{
			TeamName:    "Fairway Eagles",
			CompanyName: "Acme Corp",
			ContactName: "Pat Lee",
			Email:       "pat@acme.example",
			Phone:       "801-555-1234",
		},
	}

	html := FormDetails(form)
	for _, want := range []string{"Fairway Eagles", "Acme Corp", "Pat Lee", "pat@acme.example"} {
		if !strings.Contains(html, want) {
			t.Fatalf("details missing %q:\n%s", want, html)
		}
	}
}

func TestFormDetails_LongDayPlayers(t *testing.T) {
	form := &model.RegistrationForm{
		League: model.LeagueLongDay,
		LongDay: &model.LongDayForm{
			TeamName: "Dawn Patrol",
			Players: []model.LongDayPlayer{
				{Name: "A. One", Email: "one@example.com", Phone: "8015550001", ShirtSize: "M"},
				{Name: "B. Two", Email: "two@example.com", Phone: "8015550002", ShirtSize: "L"},
			},
		},
	}

	html := FormDetails(form)
	if !strings.Contains(html, "Player 1 Name:") || !strings.Contains(html, "Player 2 Name:") {
		t.Fatalf("players not numbered:\n%s", html)
	}
	if !strings.Contains(html, "B. Two") {
		t.Fatalf("second player missing:\n%s", html)
	}
}

func TestFormDetails_EmptyLongDay(t *testing.T) {
	form := &model.RegistrationForm{
		League:  model.LeagueLongDay,
		LongDay: &model.LongDayForm{TeamName: "Solo"},
	}

	if html := FormDetails(form); !strings.Contains(html, "No players registered") {
		t.Fatalf("empty roster fallback missing:\n%s", html)
	}
}

func TestFormDetails_NilAndMismatched(t *testing.T) {
	if html := FormDetails(nil); !strings.Contains(html, "Unrecognized League Type") {
		t.Fatalf("nil form fallback missing:\n%s", html)
	}

	// Вариант не заполнен — лига заявлена, данных нет.
	form := &model.RegistrationForm{League: model.LeagueJunior}
	if html := FormDetails(form); !strings.Contains(html, "Unrecognized League Type") {
		t.Fatalf("mismatched form fallback missing:\n%s", html)
	}
}

func TestFormDetailsEscapesHTML(t *testing.T) {
	form := &model.RegistrationForm{
		League: model.LeagueBusiness,
		Business: &model.BusinessForm{
			TeamName: `<script>alert("x")</script>`,
		},
	}

	html := FormDetails(form)
	if strings.Contains(html, "<script>") {
		t.Fatalf("unescaped markup in details:\n%s", html)
	}
}

func TestConfirmationBody(t *testing.T) {
	form := &model.RegistrationForm{
		League: model.LeagueJunior,
		Junior: &model.JuniorForm{
			PlayerName:  "Sam Park",
			ParentEmail: "parent@example.com",
		},
	}

	html := ConfirmationBody(form, 7550)
	if !strings.Contains(html, "Registration Confirmed") {
		t.Fatalf("header missing:\n%s", html)
	}
	if !strings.Contains(html, "$75.50") {
		t.Fatalf("amount missing:\n%s", html)
	}
	if !strings.Contains(html, "Sam Park") {
		t.Fatalf("player missing:\n%s", html)
	}
}

func TestNewRegistrationBodyTitlesLeague(t *testing.T) {
	form := &model.RegistrationForm{
		League:   model.LeagueBusiness,
		Business: &model.BusinessForm{TeamName: "Eagles"},
	}

	if html := NewRegistrationBody(form, 10000); !strings.Contains(html, "New Business League Registration") {
		t.Fatalf("title missing:\n%s", html)
	}
}

func TestCancellationBody(t *testing.T) {
	form := &model.RegistrationForm{
		League:   model.LeagueBusiness,
		Business: &model.BusinessForm{TeamName: "Eagles"},
	}

	html := CancellationBody(form, 10000)
	if !strings.Contains(html, "Registration Cancelled") || !strings.Contains(html, "$100.00") {
		t.Fatalf("cancellation body:\n%s", html)
	}
}

func TestContactBodyPreservesMessage(t *testing.T) {
	html := ContactBody(ContactMessage{
		Name:    "Casey",
		Email:   "casey@example.com",
		Phone:   "8015559999",
		Message: "line one\nline two",
	})

	if !strings.Contains(html, "Casey") || !strings.Contains(html, "line one") {
		t.Fatalf("contact body:\n%s", html)
	}
}
