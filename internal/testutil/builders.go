// Package testutil provides testing utilities and helpers for the consultd services.
package testutil

import (
	"time"

	"github.com/voicebot/consultd/internal/domain/model"
)

// ContactBuilder provides a fluent interface for building contacts for tests.
type ContactBuilder struct {
	c *model.Contact
}

// NewContact creates a ContactBuilder with sensible defaults.
func NewContact(id string) *ContactBuilder {
	return &ContactBuilder{
		c: &model.Contact{
			ID:        id,
			Name:      "Kim Minji",
			Gender:    "F",
			BirthDate: "1948-05-02",
			Phone:     "010-0000-0000",
			Address: model.Address{
				State:    "Seoul",
				City:     "Jongno-gu",
				Address1: "1 Sejong-daero",
			},
			Vulnerability: model.Vulnerability{
				RiskList:   []model.Risk{},
				DesireList: []model.Desire{},
			},
		},
	}
}

// WithName sets the contact name.
func (b *ContactBuilder) WithName(name string) *ContactBuilder {
	b.c.Name = name
	return b
}

// WithPhone sets the contact phone.
func (b *ContactBuilder) WithPhone(phone string) *ContactBuilder {
	b.c.Phone = phone
	return b
}

// WithRisk appends a risk to the contact profile.
func (b *ContactBuilder) WithRisk(content string, types ...int) *ContactBuilder {
	b.c.Vulnerability.RiskList = append(b.c.Vulnerability.RiskList, model.Risk{RiskType: types, Content: content})
	return b
}

// WithDesire appends a desire to the contact profile.
func (b *ContactBuilder) WithDesire(content string, types ...int) *ContactBuilder {
	b.c.Vulnerability.DesireList = append(b.c.Vulnerability.DesireList, model.Desire{DesireType: types, Content: content})
	return b
}

// Build returns the constructed contact.
func (b *ContactBuilder) Build() *model.Contact {
	return b.c
}

// QuestionSetBuilder provides a fluent interface for building question sets for tests.
type QuestionSetBuilder struct {
	qs *model.QuestionSet
}

// NewQuestionSet creates a QuestionSetBuilder with a single default question.
func NewQuestionSet(id string) *QuestionSetBuilder {
	return &QuestionSetBuilder{
		qs: &model.QuestionSet{
			ID:        id,
			Title:     "Wellbeing check",
			CreatedAt: TestTime(),
		},
	}
}

// WithTitle sets the title.
func (b *QuestionSetBuilder) WithTitle(title string) *QuestionSetBuilder {
	b.qs.Title = title
	return b
}

// WithQuestion appends a question with the given expected answers.
func (b *QuestionSetBuilder) WithQuestion(text string, answers ...string) *QuestionSetBuilder {
	q := model.Question{Text: text, ExpectedResponses: make([]model.ExpectedResponse, 0, len(answers))}
	for i, a := range answers {
		q.ExpectedResponses = append(q.ExpectedResponses, model.ExpectedResponse{
			Text:          a,
			ResponseTypes: []model.ResponseType{{ResponseType: 0, ResponseIndex: i + 1}},
		})
	}
	b.qs.Flow = append(b.qs.Flow, q)
	return b
}

// Build returns the constructed question set.
func (b *QuestionSetBuilder) Build() *model.QuestionSet {
	if len(b.qs.Flow) == 0 {
		b.WithQuestion("Have you eaten today?", "yes", "no")
	}
	return b.qs
}

// NewWaitingJob builds a WAITING job at TestTime.
func NewWaitingJob(id, contactID, questionSetID string) *model.Job {
	return model.NewJob(id, contactID, questionSetID, "", TestTime())
}

// ResultTime formats t the way the orchestrator stamps callbacks.
func ResultTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
