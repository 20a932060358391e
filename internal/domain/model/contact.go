package model

import "time"

// Address is a contact's postal address.
type Address struct {
	State    string `json:"state"`
	City     string `json:"city"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
}

// Risk is one classified risk on a contact profile.
type Risk struct {
	RiskType []int  `json:"riskType"`
	Content  string `json:"content"`
}

// Desire is one classified desire (need) on a contact profile.
type Desire struct {
	DesireType []int  `json:"desireType"`
	Content    string `json:"content"`
}

// Vulnerability is the classification profile merged from consultation results.
type Vulnerability struct {
	Summary    string   `json:"summary"`
	RiskList   []Risk   `json:"riskList"`
	DesireList []Desire `json:"desireList"`
}

// Contact is a consultation target from the contact directory.
type Contact struct {
	ID            string        `json:"id"            db:"id"`
	Name          string        `json:"name"          db:"name"`
	Gender        string        `json:"gender"        db:"gender"`
	BirthDate     string        `json:"birthDate"     db:"birth_date"`
	Phone         string        `json:"phone"         db:"phone"`
	Address       Address       `json:"address"       db:"address"`
	Vulnerability Vulnerability `json:"vulnerability" db:"vulnerability"`
	CreatedAt     time.Time     `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt"     db:"updated_at"`
}
