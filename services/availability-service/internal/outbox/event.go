package outbox

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event is the envelope written to the outbox table in the same transaction
// as the change it describes. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// MergedPayload is published after a merge touched an employee's availability.
type MergedPayload struct {
	EmployeeID int64     `json:"employee_id"`
	Entity     string    `json:"entity"`
	UpsertIDs  []int64   `json:"upsert_ids"`
	DeleteIDs  []int64   `json:"delete_ids"`
	MergedAt   time.Time `json:"merged_at"`
}

// MergedEvent builds availability.<entity>.merged.v1 keyed by employee so all
// events of one employee land on the same partition.
func MergedEvent(p MergedPayload) (Event, error) {
	if p.UpsertIDs == nil {
		p.UpsertIDs = []int64{}
	}
	if p.DeleteIDs == nil {
		p.DeleteIDs = []int64{}
	}
	p.MergedAt = p.MergedAt.UTC()
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "employee_availability",
		AggregateID:   strconv.FormatInt(p.EmployeeID, 10),
		EventType:     "availability." + p.Entity + ".merged.v1",
		Payload:       payload,
	}, nil
}
