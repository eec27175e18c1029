package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/notify"
	"github.com/spec-kit/service-desk/internal/repository"
)

const (
	msgCancelled        = "No problem, your request was cancelled. Send \"menu\" any time to start again."
	msgDescribe         = "Please describe your %s request."
	msgMenuRetry        = "Sorry, I did not understand that choice."
	msgTicketCreated    = "Thanks! Your request %s has been sent to our team."
	msgUnmatched        = "Thanks! A member of our team will look at your message shortly."
	msgFeedbackDeclined = "No problem. Thank you for staying with us!"
	msgFeedbackThanks   = "Thank you for your feedback!"
)

// ConversationService drives the per-contact guest dialogue.
type ConversationService struct {
	store    repository.ConversationStore
	intake   *IntakeService
	channel  notify.Channel
	feedback repository.FeedbackRepository
	guests   repository.GuestRepository
	catalog  *catalog.Provider
	cfg      config.ConversationConfig
	logger   *zap.Logger
	now      func() time.Time
	locks    *keyedLock

	menuWords    map[string]struct{}
	cancelWords  map[string]struct{}
	declineWords map[string]struct{}
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	Store        repository.ConversationStore
	Intake       *IntakeService
	Channel      notify.Channel
	FeedbackRepo repository.FeedbackRepository
	GuestRepo    repository.GuestRepository
	Catalog      *catalog.Provider
	Config       config.ConversationConfig
	Logger       *zap.Logger
	Now          func() time.Time
}

// ConversationResult is the state after one inbound message or event along
// with anything it produced.
type ConversationResult struct {
	State     *domain.ConversationState
	Replies   []string
	Ticket    *domain.Ticket
	Unmatched *domain.UnmatchedItem
	Feedback  *domain.FeedbackSubmission
}

// NewConversationService constructs the conversation tracker.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	channel := deps.Channel
	if channel == nil {
		channel = notify.NewLogChannel(logger)
	}
	return &ConversationService{
		store:        deps.Store,
		intake:       deps.Intake,
		channel:      channel,
		feedback:     deps.FeedbackRepo,
		guests:       deps.GuestRepo,
		catalog:      deps.Catalog,
		cfg:          deps.Config,
		logger:       logger,
		now:          now,
		locks:        newKeyedLock(),
		menuWords:    wordSet(deps.Config.MenuKeywords),
		cancelWords:  wordSet(deps.Config.CancelKeywords),
		declineWords: wordSet(deps.Config.DeclineKeywords),
	}
}

// HandleInbound advances the contact's conversation with one guest message.
func (s *ConversationService) HandleInbound(ctx context.Context, contactID, body string) (*ConversationResult, error) {
	if err := validateMessage(contactID, body); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(contactID)
	defer unlock()

	state, err := s.store.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	state.LastInboundAt = &now
	result := &ConversationResult{State: state}
	normalized := catalog.NormalizeText(body)

	if _, ok := s.cancelWords[normalized]; ok {
		wasIdle := state.CurrentState == domain.ConversationIdle
		state.Reset()
		if !wasIdle {
			result.Replies = append(result.Replies, msgCancelled)
		}
		return s.finish(ctx, result)
	}

	switch state.CurrentState {
	case domain.ConversationCollectingFeedback:
		err = s.collectAnswer(ctx, state, body, result)
	case domain.ConversationFeedbackInvited:
		err = s.answerInvite(state, normalized, result)
	case domain.ConversationAwaitingSelection:
		err = s.selectRequestType(state, normalized, result)
	case domain.ConversationAwaitingDescription:
		err = s.describeRequest(ctx, state, body, result)
	default:
		err = s.handleIdle(ctx, state, body, normalized, result)
	}
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, result)
}

// HandleCheckout invites the guest to a feedback survey. Any menu flow in
// progress is dropped; a survey already under way is left alone.
func (s *ConversationService) HandleCheckout(ctx context.Context, contactID string) (*ConversationResult, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, domain.Validationf("contact id required")
	}
	unlock := s.locks.Lock(contactID)
	defer unlock()

	state, err := s.store.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	result := &ConversationResult{State: state}
	switch state.CurrentState {
	case domain.ConversationFeedbackInvited, domain.ConversationCollectingFeedback:
		return result, nil
	}
	state.Reset()
	if err := s.moveTo(state, domain.ConversationFeedbackInvited); err != nil {
		return nil, err
	}
	result.Replies = append(result.Replies, s.cfg.FeedbackInvite)
	return s.finish(ctx, result)
}

func (s *ConversationService) handleIdle(ctx context.Context, state *domain.ConversationState, body, normalized string, result *ConversationResult) error {
	if _, ok := s.menuWords[normalized]; ok {
		if err := s.moveTo(state, domain.ConversationAwaitingSelection); err != nil {
			return err
		}
		result.Replies = append(result.Replies, s.menuText())
		return nil
	}
	routed, err := s.intake.IngestMessage(ctx, state.ContactID, body)
	if err != nil {
		return err
	}
	s.acknowledge(routed, result)
	return nil
}

func (s *ConversationService) selectRequestType(state *domain.ConversationState, normalized string, result *ConversationResult) error {
	rt, ok := s.matchMenuChoice(normalized)
	if !ok {
		if err := s.moveTo(state, domain.ConversationAwaitingSelection); err != nil {
			return err
		}
		result.Replies = append(result.Replies, msgMenuRetry, s.menuText())
		return nil
	}
	if err := s.moveTo(state, domain.ConversationAwaitingDescription); err != nil {
		return err
	}
	state.Context[domain.ConversationKeyRequestTypeID] = strconv.FormatInt(rt.ID, 10)
	result.Replies = append(result.Replies, fmt.Sprintf(msgDescribe, strings.ToLower(rt.Name)))
	return nil
}

func (s *ConversationService) describeRequest(ctx context.Context, state *domain.ConversationState, body string, result *ConversationResult) error {
	var (
		routed *IntakeResult
		err    error
	)
	rtID, parseErr := strconv.ParseInt(state.Context[domain.ConversationKeyRequestTypeID], 10, 64)
	if parseErr == nil {
		routed, err = s.intake.IngestSelection(ctx, state.ContactID, rtID, body)
	} else {
		routed, err = s.intake.IngestMessage(ctx, state.ContactID, body)
	}
	if err != nil {
		return err
	}
	state.Reset()
	s.acknowledge(routed, result)
	return nil
}

func (s *ConversationService) answerInvite(state *domain.ConversationState, normalized string, result *ConversationResult) error {
	if _, ok := s.declineWords[normalized]; ok || len(s.cfg.FeedbackQuestions) == 0 {
		state.Reset()
		result.Replies = append(result.Replies, msgFeedbackDeclined)
		return nil
	}
	if err := s.moveTo(state, domain.ConversationCollectingFeedback); err != nil {
		return err
	}
	state.Context[domain.ConversationKeyQuestionIndex] = "0"
	result.Replies = append(result.Replies, s.cfg.FeedbackQuestions[0])
	return nil
}

func (s *ConversationService) collectAnswer(ctx context.Context, state *domain.ConversationState, body string, result *ConversationResult) error {
	questions := s.cfg.FeedbackQuestions
	index, err := strconv.Atoi(state.Context[domain.ConversationKeyQuestionIndex])
	if err != nil || index < 0 || index >= len(questions) {
		s.logger.Warn("feedback progress lost; restarting conversation",
			zap.String("contact_id", state.ContactID))
		state.Reset()
		return nil
	}
	state.Context[answerKey(index)] = strings.TrimSpace(body)
	index++
	if index < len(questions) {
		if err := s.moveTo(state, domain.ConversationCollectingFeedback); err != nil {
			return err
		}
		state.Context[domain.ConversationKeyQuestionIndex] = strconv.Itoa(index)
		result.Replies = append(result.Replies, questions[index])
		return nil
	}

	submission := &domain.FeedbackSubmission{
		ID:          uuid.NewString(),
		ContactID:   state.ContactID,
		Answers:     make([]domain.FeedbackAnswer, 0, len(questions)),
		SubmittedAt: s.now(),
	}
	for i, q := range questions {
		submission.Answers = append(submission.Answers, domain.FeedbackAnswer{
			Question: q,
			Answer:   state.Context[answerKey(i)],
		})
	}
	if s.guests != nil {
		if guest, err := s.guests.FindByContact(ctx, state.ContactID); err == nil {
			id := guest.ID
			submission.GuestID = &id
		}
	}
	if s.feedback != nil {
		if err := s.feedback.Create(ctx, submission); err != nil {
			return err
		}
	}
	state.Reset()
	result.Feedback = submission
	result.Replies = append(result.Replies, msgFeedbackThanks)
	return nil
}

func (s *ConversationService) acknowledge(routed *IntakeResult, result *ConversationResult) {
	if routed.Ticket != nil {
		result.Ticket = routed.Ticket
		result.Replies = append(result.Replies, fmt.Sprintf(msgTicketCreated, routed.Ticket.ExternalKey))
		return
	}
	result.Unmatched = routed.Unmatched
	result.Replies = append(result.Replies, msgUnmatched)
}

// finish sends the replies and persists the state. Send failures are logged
// and keep the state change.
func (s *ConversationService) finish(ctx context.Context, result *ConversationResult) (*ConversationResult, error) {
	state := result.State
	for _, reply := range result.Replies {
		if reply == "" {
			continue
		}
		if _, err := s.channel.SendText(ctx, state.ContactID, reply); err != nil {
			s.logger.Warn("outbound message failed",
				zap.String("contact_id", state.ContactID),
				zap.Error(err))
			continue
		}
		sentAt := s.now()
		state.LastOutboundAt = &sentAt
	}
	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return result, nil
}

func (s *ConversationService) moveTo(state *domain.ConversationState, next domain.ConversationStep) error {
	if !domain.CanMoveConversation(state.CurrentState, next) {
		return fmt.Errorf("conversation %s cannot move from %s to %s: %w",
			state.ContactID, state.CurrentState, next, domain.ErrInvalidTransition)
	}
	state.CurrentState = next
	return nil
}

func (s *ConversationService) matchMenuChoice(normalized string) (domain.RequestType, bool) {
	menu := s.snapshot().Menu()
	if n, err := strconv.Atoi(normalized); err == nil {
		if n >= 1 && n <= len(menu) {
			return menu[n-1], true
		}
		return domain.RequestType{}, false
	}
	for _, rt := range menu {
		if catalog.NormalizeText(rt.Name) == normalized {
			return rt, true
		}
	}
	return domain.RequestType{}, false
}

func (s *ConversationService) menuText() string {
	var b strings.Builder
	b.WriteString("How can we help? Reply with a number:")
	for i, rt := range s.snapshot().Menu() {
		fmt.Fprintf(&b, "\n%d. %s", i+1, rt.Name)
	}
	return b.String()
}

func (s *ConversationService) snapshot() *catalog.Snapshot {
	if s.catalog == nil {
		return catalog.Empty()
	}
	return s.catalog.Current()
}

func answerKey(index int) string {
	return domain.ConversationKeyAnswerPrefix + strconv.Itoa(index)
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if n := catalog.NormalizeText(w); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
