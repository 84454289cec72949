package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	Explanation    string `json:"explanation,omitempty"`
}

// Question is immutable reference data consumed by the grading service.
type Question struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description" gorm:"not null"`
	Difficulty  string         `json:"difficulty" gorm:"not null;index"`
	Topics      datatypes.JSON `json:"topics"`
	TestCases   datatypes.JSON `json:"testCases" gorm:"not null"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (q *Question) TestCaseList() []TestCase {
	var cases []TestCase
	if len(q.TestCases) == 0 {
		return cases
	}
	if err := json.Unmarshal(q.TestCases, &cases); err != nil {
		return nil
	}
	return cases
}

func (q *Question) SetTestCaseList(cases []TestCase) {
	data, _ := json.Marshal(cases)
	q.TestCases = data
}
