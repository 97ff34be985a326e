package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Steps of the booking dialogue, in the order a call moves through them.
const (
	StepWelcome          = "welcome"
	StepSelectingFamily  = "selecting_family"
	StepSelectingProduct = "selecting_product"
	StepRequestingDate   = "requesting_date"
	StepRequestingTime   = "requesting_time"
	StepTerminal         = "terminal"
)

// MaxTurnHistory bounds the rolling conversation memory kept per call.
const MaxTurnHistory = 6

// CallSession tracks one in-progress call, keyed by the Twilio CallSid.
type CallSession struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CallSid string    `gorm:"uniqueIndex;not null" json:"callSid"`
	Step    string    `gorm:"not null;default:'welcome'" json:"step"`

	Family        *string    `json:"family"`
	ProductID     *uuid.UUID `gorm:"type:uuid;index" json:"productId"`
	RequestedDate *time.Time `json:"requestedDate"`
	CustomerPhone string     `json:"customerPhone"`

	Turns TurnHistory `gorm:"type:jsonb" json:"turns"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *CallSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// RecordTurn appends one exchange to the session's rolling memory, evicting
// the oldest entry past capacity. The history only feeds the fallback
// assistant's context; booking decisions never read it.
func (s *CallSession) RecordTurn(rawInput, intent string, confidence float64) {
	s.Turns = append(s.Turns, TurnRecord{
		Step:       s.Step,
		RawInput:   rawInput,
		Intent:     intent,
		Confidence: confidence,
		Timestamp:  time.Now(),
	})
	if len(s.Turns) > MaxTurnHistory {
		s.Turns = s.Turns[len(s.Turns)-MaxTurnHistory:]
	}
}

type TurnRecord struct {
	Step       string    `json:"step"`
	RawInput   string    `json:"rawInput"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// TurnHistory is stored as a JSON column.
type TurnHistory []TurnRecord

func (h TurnHistory) Value() (driver.Value, error) {
	if h == nil {
		h = TurnHistory{}
	}
	return json.Marshal(h)
}

func (h *TurnHistory) Scan(value interface{}) error {
	if value == nil {
		*h = TurnHistory{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("unsupported type for TurnHistory")
	}
	return json.Unmarshal(b, h)
}
