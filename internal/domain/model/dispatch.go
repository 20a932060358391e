package model

// DispatchRequest is everything the orchestrator needs to run one consultation.
type DispatchRequest struct {
	JobID        string
	Contact      Contact
	QuestionSet  QuestionSet
	SessionIndex int
}

// QueueStatus is a point-in-time view of the waiting queue.
type QueueStatus struct {
	Count int    `json:"count"`
	Jobs  []*Job `json:"jobs"`
}
