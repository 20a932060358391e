package model

import (
	"strings"
	"time"
)

// Result codes reported by the orchestrator.
const (
	ResultConsultationImpossible = 0
	ResultNotNeeded              = 1
	ResultNeeded                 = 2
)

// failReasons maps orchestrator fail codes to operator-facing text. Code 0 means no failure.
var failReasons = map[int]string{
	1: "identity mismatch",
	2: "consultation refused",
	3: "abusive language",
	4: "call disconnected",
	5: "call not answered",
}

// FailReason returns a human-readable reason for a non-zero fail code.
func FailReason(code int) string {
	if code == 0 {
		return ""
	}
	if reason, ok := failReasons[code]; ok {
		return reason
	}
	return "consultation failed"
}

// RiskDetail is a risk entry as reported by the orchestrator.
type RiskDetail struct {
	RiskIndexList []int  `json:"risk_index_list"`
	Content       string `json:"content"`
}

// DesireDetail is a desire entry as reported by the orchestrator. Older
// orchestrator builds send desire_type instead of desire_index_list.
type DesireDetail struct {
	DesireIndexList []int  `json:"desire_index_list,omitempty"`
	DesireType      []int  `json:"desire_type,omitempty"`
	Content         string `json:"content"`
}

// Indexes returns whichever index list the orchestrator populated.
func (d DesireDetail) Indexes() []int {
	if len(d.DesireIndexList) > 0 {
		return d.DesireIndexList
	}
	return d.DesireType
}

// VulnerabilityInfo is a risk/desire classification block in a result callback.
type VulnerabilityInfo struct {
	RiskList         []RiskDetail   `json:"risk_list"`
	DesireList       []DesireDetail `json:"desire_list"`
	RiskIndexCount   map[string]int `json:"risk_index_count,omitempty"`
	DesireIndexCount map[string]int `json:"desire_index_count,omitempty"`
}

// ResultPayload is the orchestrator's asynchronous result callback body.
// Optional fields are pointers so absent values can be defaulted.
type ResultPayload struct {
	AccountID             *string            `json:"account_id"`
	SessionIndex          *int               `json:"s_index"`
	ContactID             string             `json:"v_id"`
	QuestionSetID         string             `json:"q_id"`
	OverallScript         *string            `json:"overall_script"`
	Summary               *string            `json:"summary"`
	Result                *int               `json:"result"`
	FailCode              *int               `json:"fail_code"`
	NeedHuman             *int               `json:"need_human"`
	ResultVulnerabilities *VulnerabilityInfo `json:"result_vulnerabilities"`
	DeleteVulnerabilities *VulnerabilityInfo `json:"delete_vulnerabilities"`
	NewVulnerabilities    *VulnerabilityInfo `json:"new_vulnerabilities"`
	Time                  *string            `json:"time"`
	Runtime               *int64             `json:"runtime"`
}

// ConsultationRecord is the persisted outcome of one consultation.
type ConsultationRecord struct {
	ID                    int64             `json:"id"                     db:"id"`
	AccountID             string            `json:"accountId"              db:"account_id"`
	SessionIndex          int               `json:"sessionIndex"           db:"session_index"`
	ContactID             string            `json:"contactId"              db:"contact_id"`
	QuestionSetID         string            `json:"questionSetId"          db:"question_set_id"`
	OccurredAt            time.Time         `json:"time"                   db:"occurred_at"`
	RuntimeSeconds        int64             `json:"runtime"                db:"runtime_seconds"`
	OverallScript         string            `json:"overallScript"          db:"overall_script"`
	Summary               string            `json:"summary"                db:"summary"`
	Result                int               `json:"result"                 db:"result"`
	FailCode              int               `json:"failCode"               db:"fail_code"`
	NeedHuman             int               `json:"needHuman"              db:"need_human"`
	ResultVulnerabilities VulnerabilityInfo `json:"resultVulnerabilities"  db:"result_vulnerabilities"`
	DeleteVulnerabilities VulnerabilityInfo `json:"deleteVulnerabilities"  db:"delete_vulnerabilities"`
	NewVulnerabilities    VulnerabilityInfo `json:"newVulnerabilities"     db:"new_vulnerabilities"`
	CreatedAt             time.Time         `json:"createdAt"              db:"created_at"`
}

var resultTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseResultTime parses the callback timestamp, returning now when it is absent or malformed.
func ParseResultTime(raw *string, now time.Time) time.Time {
	if raw == nil {
		return now.UTC()
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return now.UTC()
	}
	for _, layout := range resultTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}

// ToRecord builds a history record with zero/empty defaults for every absent field.
func (p *ResultPayload) ToRecord(accountID string, now time.Time) ConsultationRecord {
	rec := ConsultationRecord{
		AccountID:      accountID,
		SessionIndex:   derefInt(p.SessionIndex),
		ContactID:      p.ContactID,
		QuestionSetID:  p.QuestionSetID,
		OccurredAt:     ParseResultTime(p.Time, now),
		RuntimeSeconds: derefInt64(p.Runtime),
		OverallScript:  derefString(p.OverallScript),
		Summary:        derefString(p.Summary),
		Result:         derefInt(p.Result),
		FailCode:       derefInt(p.FailCode),
		NeedHuman:      derefInt(p.NeedHuman),
	}
	if p.ResultVulnerabilities != nil {
		rec.ResultVulnerabilities = *p.ResultVulnerabilities
	}
	if p.DeleteVulnerabilities != nil {
		rec.DeleteVulnerabilities = *p.DeleteVulnerabilities
	}
	if p.NewVulnerabilities != nil {
		rec.NewVulnerabilities = *p.NewVulnerabilities
	}
	return rec
}

// HasClassification reports whether result_vulnerabilities carries risk or desire
// lists. An explicitly empty list counts; a missing key (the early-exit "{}" block) does not.
func (p *ResultPayload) HasClassification() bool {
	info := p.ResultVulnerabilities
	return info != nil && (info.RiskList != nil || info.DesireList != nil)
}

// MergeInto applies the result's classification to a contact profile.
// It reports false when the payload has nothing to merge.
func (p *ResultPayload) MergeInto(c *Contact) bool {
	if c == nil || !p.HasClassification() {
		return false
	}
	info := p.ResultVulnerabilities

	risks := make([]Risk, 0, len(info.RiskList))
	for _, r := range info.RiskList {
		risks = append(risks, Risk{RiskType: r.RiskIndexList, Content: r.Content})
	}
	desires := make([]Desire, 0, len(info.DesireList))
	for _, d := range info.DesireList {
		desires = append(desires, Desire{DesireType: d.Indexes(), Content: d.Content})
	}

	if p.Summary != nil {
		c.Vulnerability.Summary = *p.Summary
	}
	c.Vulnerability.RiskList = risks
	c.Vulnerability.DesireList = desires
	return true
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
