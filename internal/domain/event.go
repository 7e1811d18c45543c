package domain

import "time"

type EventTopic string

const (
	TopicCredit       EventTopic = "credit"
	TopicInventory    EventTopic = "inventory"
	TopicBorrowing    EventTopic = "borrowing"
	TopicDisbursement EventTopic = "disbursement"
)

// Event is a domain state change fanned out to subscribed clients. Delivery is
// best-effort and at-most-once; consumers reconcile with a full fetch on connect.
type Event struct {
	ID         string     `json:"id"`
	Topic      EventTopic `json:"topic"`
	MemberID   *int32     `json:"member_id,omitempty"` // scope; nil means visible to any subscriber of the topic
	Payload    any        `json:"payload"`
	OccurredOn time.Time  `json:"occurred_on"`
}
