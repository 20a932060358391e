package orchestrator

import "github.com/voicebot/consultd/internal/domain/model"

// receiveRequest is the body of POST {base}/api/receive.
type receiveRequest struct {
	VulnerableID    string          `json:"vulnerable_id"`
	SessionIndex    int             `json:"s_index"`
	QuestionsID     string          `json:"questions_id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Gender          string          `json:"gender"`
	BirthDate       string          `json:"birth_date"`
	Address         wireAddress     `json:"address"`
	QuestionList    []wireQuestion  `json:"question_list"`
	Vulnerabilities wireVulnerables `json:"vulnerabilities"`
}

type wireAddress struct {
	State    string `json:"state"`
	City     string `json:"city"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
}

type wireQuestion struct {
	Text           string       `json:"text"`
	ExpectedAnswer []wireAnswer `json:"expected_answer"`
}

type wireAnswer struct {
	Text             string             `json:"text"`
	ResponseTypeList []wireResponseType `json:"response_type_list"`
}

type wireResponseType struct {
	ResponseType  int `json:"response_type"`
	ResponseIndex int `json:"response_index"`
}

type wireVulnerables struct {
	RiskList   []wireRisk   `json:"risk_list"`
	DesireList []wireDesire `json:"desire_list"`
}

type wireRisk struct {
	RiskIndexList []int  `json:"risk_index_list"`
	Content       string `json:"content"`
}

type wireDesire struct {
	DesireType []int  `json:"desire_type"`
	Content    string `json:"content"`
}

// newReceiveRequest flattens a dispatch into the orchestrator's snake_case body.
// Lists are never null on the wire.
func newReceiveRequest(req model.DispatchRequest) receiveRequest {
	c := req.Contact
	out := receiveRequest{
		VulnerableID: c.ID,
		SessionIndex: req.SessionIndex,
		QuestionsID:  req.QuestionSet.ID,
		Name:         c.Name,
		Phone:        c.Phone,
		Gender:       c.Gender,
		BirthDate:    c.BirthDate,
		Address: wireAddress{
			State:    c.Address.State,
			City:     c.Address.City,
			Address1: c.Address.Address1,
			Address2: c.Address.Address2,
		},
		QuestionList: make([]wireQuestion, 0, len(req.QuestionSet.Flow)),
		Vulnerabilities: wireVulnerables{
			RiskList:   make([]wireRisk, 0, len(c.Vulnerability.RiskList)),
			DesireList: make([]wireDesire, 0, len(c.Vulnerability.DesireList)),
		},
	}

	for _, q := range req.QuestionSet.Flow {
		wq := wireQuestion{Text: q.Text, ExpectedAnswer: make([]wireAnswer, 0, len(q.ExpectedResponses))}
		for _, a := range q.ExpectedResponses {
			wa := wireAnswer{Text: a.Text, ResponseTypeList: make([]wireResponseType, 0, len(a.ResponseTypes))}
			for _, rt := range a.ResponseTypes {
				wa.ResponseTypeList = append(wa.ResponseTypeList, wireResponseType{
					ResponseType:  rt.ResponseType,
					ResponseIndex: rt.ResponseIndex,
				})
			}
			wq.ExpectedAnswer = append(wq.ExpectedAnswer, wa)
		}
		out.QuestionList = append(out.QuestionList, wq)
	}

	for _, r := range c.Vulnerability.RiskList {
		out.Vulnerabilities.RiskList = append(out.Vulnerabilities.RiskList, wireRisk{
			RiskIndexList: nonNilInts(r.RiskType),
			Content:       r.Content,
		})
	}
	for _, d := range c.Vulnerability.DesireList {
		out.Vulnerabilities.DesireList = append(out.Vulnerabilities.DesireList, wireDesire{
			DesireType: nonNilInts(d.DesireType),
			Content:    d.Content,
		})
	}
	return out
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
