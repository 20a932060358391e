package model

// StatusEvent is a state transition pushed to live subscribers. It is never stored.
type StatusEvent struct {
	JobID            string   `json:"jobId,omitempty"`
	ContactID        string   `json:"contactId"`
	ContactName      string   `json:"contactName"`
	QuestionSetTitle string   `json:"questionSetTitle"`
	State            JobState `json:"state"`
	SessionIndex     int      `json:"sessionIndex,omitempty"`
	ErrorMessage     string   `json:"errorMessage,omitempty"`
}

// Correlation reattaches operator identity and display context to an asynchronous result.
type Correlation struct {
	AccountID        string `json:"accountId,omitempty"`
	JobID            string `json:"jobId"`
	QuestionSetID    string `json:"questionSetId"`
	ContactName      string `json:"contactName"`
	QuestionSetTitle string `json:"questionSetTitle"`
	StartedAt        int64  `json:"startedAt"`
	// Tracked records that the dispatch was registered with the in-flight tracker,
	// whose removal then decides which finalizer owns the terminal event.
	Tracked bool `json:"tracked,omitempty"`
}

// InFlightDispatch identifies an accepted dispatch awaiting its result callback.
type InFlightDispatch struct {
	ContactID    string `json:"contactId"`
	SessionIndex int    `json:"sessionIndex"`
}
