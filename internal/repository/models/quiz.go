package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringSlice stores a []string as a JSON array in a text/CLOB column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringSlice Scan: unsupported type %T", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Quiz is a row of the QUIZZES table.
type Quiz struct {
	ID          string         `db:"ID"`
	UserID      string         `db:"USER_ID"`
	Title       string         `db:"TITLE"`
	Description sql.NullString `db:"DESCRIPTION"`
	VideoURL    string         `db:"VIDEO_URL"`
	CreatedAt   time.Time      `db:"CREATED_AT"`
	UpdatedAt   time.Time      `db:"UPDATED_AT"`
}

// Question is a row of the QUESTIONS table.
type Question struct {
	ID              string      `db:"ID"`
	QuizID          string      `db:"QUIZ_ID"`
	Position        int         `db:"POSITION"`
	QuestionTitle   string      `db:"QUESTION_TITLE"`
	QuestionOptions StringSlice `db:"QUESTION_OPTIONS"`
	Answer          string      `db:"ANSWER"`
	CreatedAt       time.Time   `db:"CREATED_AT"`
	UpdatedAt       time.Time   `db:"UPDATED_AT"`
}
