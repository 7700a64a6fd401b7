package audit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	ActionSubmitted     = "SUBMITTED"
	ActionEdited        = "EDITED"
	ActionCancelled     = "CANCELLED"
	ActionApproved      = "APPROVED"
	ActionRejected      = "REJECTED"
	ActionOverridden    = "OVERRIDDEN"
	ActionAutoEscalated = "AUTO_ESCALATED"
	ActionAdjusted      = "ADJUSTED"
	ActionAccrued       = "ACCRUED"
	ActionCarriedOver   = "CARRIED_OVER"
	ActionConfigChanged = "CONFIG_CHANGED"
)

var ErrEntryNotFound = errors.New("audit entry not found")

// Event is one append-only audit log row. RequestID is empty for standalone
// balance and configuration changes; ActorID is empty for system actions.
type Event struct {
	ID              string          `json:"id"`
	RequestID       string          `json:"requestId,omitempty"`
	Action          string          `json:"action"`
	ActorID         string          `json:"actorId,omitempty"`
	DelegateID      string          `json:"delegateId,omitempty"`
	EscalationLevel *int            `json:"escalationLevel,omitempty"`
	Comment         string          `json:"comment,omitempty"`
	EntityType      string          `json:"entityType,omitempty"`
	EntityID        string          `json:"entityId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Before          json.RawMessage `json:"before,omitempty"`
	After           json.RawMessage `json:"after,omitempty"`
	Checksum        string          `json:"checksum"`
	Verified        bool            `json:"verified"`
}

type Filter struct {
	RequestID string
	Action    string
	ActorID   string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type StoreAPI interface {
	Insert(ctx context.Context, evt Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

type Service struct {
	store StoreAPI
	Now   func() time.Time
}

func New(store StoreAPI) *Service {
	return &Service{store: store, Now: time.Now}
}

// Record snapshots before/after as JSON and appends the event.
func (s *Service) Record(ctx context.Context, evt Event, before, after any) error {
	if evt.Action == "" {
		return fmt.Errorf("audit action required")
	}
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return err
		}
		evt.Before = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return err
		}
		evt.After = payload
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.Now().UTC()
	}
	evt.Checksum = Checksum(evt)
	return s.store.Insert(ctx, evt)
}

// Timeline returns the events of one request, newest first.
func (s *Service) Timeline(ctx context.Context, requestID string) ([]Event, error) {
	events, err := s.store.List(ctx, Filter{RequestID: requestID})
	if err != nil {
		return nil, err
	}
	return verifyAll(events), nil
}

func (s *Service) Query(ctx context.Context, filter Filter) ([]Event, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return verifyAll(events), total, nil
}

func verifyAll(events []Event) []Event {
	for i := range events {
		events[i].Verified = Checksum(events[i]) == events[i].Checksum
		if !events[i].Verified {
			slog.Warn("audit checksum mismatch", "auditId", events[i].ID, "requestId", events[i].RequestID)
		}
	}
	return events
}

// Checksum is a blake2b-256 digest over the immutable fields of an event.
func Checksum(evt Event) string {
	h, _ := blake2b.New256(nil)
	level := ""
	if evt.EscalationLevel != nil {
		level = strconv.Itoa(*evt.EscalationLevel)
	}
	for _, part := range []string{
		evt.ID, evt.RequestID, evt.Action, evt.ActorID, evt.DelegateID, level,
		evt.Comment, evt.EntityType, evt.EntityID, evt.CreatedAt.UTC().Format(time.RFC3339Nano),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(evt.Before)
	h.Write([]byte{0})
	h.Write(evt.After)
	return hex.EncodeToString(h.Sum(nil))
}
