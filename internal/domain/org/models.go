package org

import "time"

const (
	GenderFemale = "F"
	GenderMale   = "M"
)

type Employee struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Gender       string    `json:"gender,omitempty"`
	DepartmentID string    `json:"departmentId"`
	PositionID   string    `json:"positionId"`
	Country      string    `json:"country,omitempty"`
	HireDate     time.Time `json:"hireDate"`
}

type Position struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DepartmentID string `json:"departmentId"`
	ReportsTo    string `json:"reportsTo,omitempty"`
	HolderID     string `json:"holderId,omitempty"`
}

func (p Position) Vacant() bool {
	return p.HolderID == ""
}
