// Package devseed loads demo contacts and a question set for local development.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

// QuestionSetStore reads and writes catalog entries.
type QuestionSetStore interface {
	core.QuestionSetCatalog
	Save(ctx context.Context, qs *model.QuestionSet) error
}

// Stores bundles the repositories the seed writes to.
type Stores struct {
	Contacts     core.ContactDirectory
	QuestionSets QuestionSetStore
}

// Run creates the demo records that are missing. Existing records are left
// untouched so merged vulnerability profiles survive restarts.
func Run(ctx context.Context, stores Stores, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	failures := 0
	created := 0
	for _, qs := range defaultQuestionSets() {
		ok, err := seedQuestionSet(ctx, stores.QuestionSets, qs)
		if err != nil {
			logger.ErrorContext(ctx, "seed question set failed", "question_set_id", qs.ID, "error", err)
			failures++
			continue
		}
		if ok {
			created++
		}
	}
	for _, c := range defaultContacts() {
		ok, err := seedContact(ctx, stores.Contacts, c)
		if err != nil {
			logger.ErrorContext(ctx, "seed contact failed", "contact_id", c.ID, "error", err)
			failures++
			continue
		}
		if ok {
			created++
		}
	}

	logger.InfoContext(ctx, "dev seed complete", "created", created, "failures", failures)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedQuestionSet(ctx context.Context, store QuestionSetStore, qs *model.QuestionSet) (bool, error) {
	_, err := store.FindByID(ctx, qs.ID)
	switch {
	case err == nil:
		return false, nil
	case !apperrors.IsNotFound(err):
		return false, err
	}
	return true, store.Save(ctx, qs)
}

func seedContact(ctx context.Context, store core.ContactDirectory, c *model.Contact) (bool, error) {
	_, err := store.FindByID(ctx, c.ID)
	switch {
	case err == nil:
		return false, nil
	case !apperrors.IsNotFound(err):
		return false, err
	}
	return true, store.Save(ctx, c)
}

func defaultQuestionSets() []*model.QuestionSet {
	yesNo := func(yes, no model.ResponseType) []model.ExpectedResponse {
		return []model.ExpectedResponse{
			{Text: "yes", ResponseTypes: []model.ResponseType{yes}},
			{Text: "no", ResponseTypes: []model.ResponseType{no}},
		}
	}
	return []*model.QuestionSet{
		{
			ID:    "demo-wellbeing",
			Title: "Weekly wellbeing check",
			Flow: []model.Question{
				{
					Text:              "Have you been eating regular meals this week?",
					ExpectedResponses: yesNo(model.ResponseType{ResponseType: 1, ResponseIndex: 0}, model.ResponseType{ResponseType: 1, ResponseIndex: 3}),
				},
				{
					Text:              "Have you felt lonely or isolated recently?",
					ExpectedResponses: yesNo(model.ResponseType{ResponseType: 1, ResponseIndex: 5}, model.ResponseType{ResponseType: 1, ResponseIndex: 0}),
				},
				{
					Text:              "Is there anything you need help with at home?",
					ExpectedResponses: yesNo(model.ResponseType{ResponseType: 2, ResponseIndex: 1}, model.ResponseType{ResponseType: 2, ResponseIndex: 0}),
				},
			},
		},
	}
}

func defaultContacts() []*model.Contact {
	return []*model.Contact{
		{
			ID:        "demo-contact-1",
			Name:      "Kim Minji",
			Gender:    "F",
			BirthDate: "1948-04-12",
			Phone:     "010-0000-0001",
			Address:   model.Address{State: "Seoul", City: "Mapo-gu", Address1: "12 Demo-ro", Address2: "101"},
			Vulnerability: model.Vulnerability{
				RiskList: []model.Risk{{RiskType: []int{5}, Content: "lives alone"}},
			},
		},
		{
			ID:        "demo-contact-2",
			Name:      "Lee Junho",
			Gender:    "M",
			BirthDate: "1951-11-02",
			Phone:     "010-0000-0002",
			Address:   model.Address{State: "Busan", City: "Haeundae-gu", Address1: "8 Sample-gil"},
		},
		{
			ID:        "demo-contact-3",
			Name:      "Park Soyeon",
			Gender:    "F",
			BirthDate: "1944-07-30",
			Phone:     "010-0000-0003",
			Address:   model.Address{State: "Daegu", City: "Jung-gu", Address1: "3 Example-daero"},
			Vulnerability: model.Vulnerability{
				DesireList: []model.Desire{{DesireType: []int{1}, Content: "help with groceries"}},
			},
		},
	}
}
