package model

import "time"

// ResponseType tags an expected answer with a risk/desire category and code.
type ResponseType struct {
	ResponseType  int `json:"responseType"`
	ResponseIndex int `json:"responseIndex"`
}

// ExpectedResponse is one anticipated answer to a question.
type ExpectedResponse struct {
	Text          string         `json:"text"`
	ResponseTypes []ResponseType `json:"responseTypeList"`
}

// Question is one prompt in a question set flow.
type Question struct {
	Text              string             `json:"text"`
	ExpectedResponses []ExpectedResponse `json:"expectedResponse"`
}

// QuestionSet is an ordered consultation script from the catalog.
type QuestionSet struct {
	ID        string     `json:"questionsId" db:"id"`
	Title     string     `json:"title"       db:"title"`
	Flow      []Question `json:"flow"        db:"flow"`
	CreatedAt time.Time  `json:"time"        db:"created_at"`
}

// QuestionSetSnapshot is the immutable cached copy of a question set.
type QuestionSetSnapshot struct {
	QuestionSet QuestionSet `json:"questionSet"`
	CachedAt    time.Time   `json:"cachedAt"`
}
