package domain

import "time"

// ConversationStep enumerates conversation tracker states.
type ConversationStep string

const (
	ConversationIdle                ConversationStep = "IDLE"
	ConversationAwaitingSelection   ConversationStep = "AWAITING_SELECTION"
	ConversationAwaitingDescription ConversationStep = "AWAITING_DESCRIPTION"
	ConversationFeedbackInvited     ConversationStep = "FEEDBACK_INVITED"
	ConversationCollectingFeedback  ConversationStep = "COLLECTING_FEEDBACK"
)

// ConversationTransitions lists the allowed moves for a contact's conversation.
// Every state may also return to idle on cancel.
var ConversationTransitions = map[ConversationStep][]ConversationStep{
	ConversationIdle:                {ConversationAwaitingSelection, ConversationFeedbackInvited},
	ConversationAwaitingSelection:   {ConversationAwaitingDescription, ConversationAwaitingSelection, ConversationFeedbackInvited},
	ConversationAwaitingDescription: {ConversationIdle, ConversationFeedbackInvited},
	ConversationFeedbackInvited:     {ConversationCollectingFeedback, ConversationIdle},
	ConversationCollectingFeedback:  {ConversationCollectingFeedback, ConversationIdle},
}

// CanMoveConversation reports whether a conversation may move from current to next.
func CanMoveConversation(current, next ConversationStep) bool {
	if next == ConversationIdle {
		return true
	}
	for _, candidate := range ConversationTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Context keys stored on a conversation.
const (
	ConversationKeyRequestTypeID = "request_type_id"
	ConversationKeyQuestionIndex = "question_index"
	ConversationKeyAnswerPrefix  = "answer_"
)

// ConversationState is the per-contact conversation record.
type ConversationState struct {
	ContactID      string            `json:"contact_id"`
	CurrentState   ConversationStep  `json:"current_state"`
	LastInboundAt  *time.Time        `json:"last_inbound_at,omitempty"`
	LastOutboundAt *time.Time        `json:"last_outbound_at,omitempty"`
	Context        map[string]string `json:"context"`
}

// NewConversationState returns an idle conversation for the contact.
func NewConversationState(contactID string) *ConversationState {
	return &ConversationState{
		ContactID:    contactID,
		CurrentState: ConversationIdle,
		Context:      map[string]string{},
	}
}

// Reset returns the conversation to idle and drops its context.
func (c *ConversationState) Reset() {
	c.CurrentState = ConversationIdle
	c.Context = map[string]string{}
}
