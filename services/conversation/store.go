package conversation

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"pawhub/models"
	"pawhub/services/protocol"
)

// TempIDPrefix marks the id of an optimistic message that has not been acknowledged yet.
const TempIDPrefix = "local:"

// TempID is the id given to the optimistic copy of a send with the given client ref.
func TempID(clientRef string) string {
	return TempIDPrefix + clientRef
}

// State is a point-in-time copy of the store.
type State struct {
	ConversationID string
	ViewerID       string
	Generation     uint64
	// Messages is ordered newest first.
	Messages []models.ConversationMessage
	// LastKnownGood is the most recent non-empty list, without optimistic entries.
	LastKnownGood []models.ConversationMessage
	// Live holds statuses reported after the messages were created.
	Live     map[string]models.BookingStatus
	Page     int
	HasMore  bool
	Loading  bool
	Restores int
}

// BookingStatuses returns the current status per booking: the live status when one was
// reported, otherwise the status in the newest snapshot of that booking.
func (s State) BookingStatuses() map[string]models.BookingStatus {
	out := make(map[string]models.BookingStatus, len(s.Live))
	for i := range s.Messages {
		id := s.Messages[i].BookingID()
		if id == "" || s.Messages[i].Pending {
			continue
		}
		if _, ok := out[id]; !ok {
			out[id] = s.Messages[i].Booking.Status
		}
	}
	for id, st := range s.Live {
		out[id] = st
	}
	return out
}

// Result reports what a dispatched action did.
type Result struct {
	// Generation is the store's generation after the action.
	Generation           uint64
	Changed              bool
	Dropped              bool
	Restored             bool
	LastKnownGoodChanged bool
}

// Store owns the message list of the open conversation. It is the only writer of the list
// and of its last-known-good copy; all access is serialized.
type Store struct {
	mu      sync.Mutex
	logger  *zap.Logger
	st      State
	pending map[string]struct{}
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:  logger,
		st:      State{Live: map[string]models.BookingStatus{}},
		pending: map[string]struct{}{},
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.st
	out.Messages = cloneList(s.st.Messages)
	out.LastKnownGood = cloneList(s.st.LastKnownGood)
	out.Live = make(map[string]models.BookingStatus, len(s.st.Live))
	for k, v := range s.st.Live {
		out.Live[k] = v
	}
	return out
}

// Generation is the counter bumped on every open and close.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Generation
}

// Dispatch applies one action and then runs the list guard.
func (s *Store) Dispatch(a Action) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.dispatch(a)
	res.Generation = s.st.Generation
	return res
}

type paging struct {
	conversationID string
	generation     uint64
	page           int
	hasMore        bool
	loading        bool
}

func (s *Store) paging() paging {
	s.mu.Lock()
	defer s.mu.Unlock()
	return paging{
		conversationID: s.st.ConversationID,
		generation:     s.st.Generation,
		page:           s.st.Page,
		hasMore:        s.st.HasMore,
		loading:        s.st.Loading,
	}
}

func (s *Store) dispatch(a Action) Result {
	var res Result
	switch a := a.(type) {
	case OpenConversation:
		s.reset(a.ConversationID, a.ViewerID)
		return Result{Changed: true}
	case CloseConversation:
		s.reset("", "")
		return Result{Changed: true}
	case PageRequested:
		res = s.pageRequested(a)
	case PageLoaded:
		res = s.pageLoaded(a)
	case PageFailed:
		if a.Generation != s.st.Generation || a.Page != s.st.Page+1 {
			return Result{Dropped: true}
		}
		res.Changed = s.st.Loading
		s.st.Loading = false
	case MessagePushed:
		res = s.pushed(a.Message)
	case MessageUpdated:
		res = s.updated(a.Message)
	case SendPending:
		res = s.sendPending(a.Message)
	case SendAcked:
		res = s.sendAcked(a)
	case SendFailed:
		if a.Generation != s.st.Generation {
			return Result{Dropped: true}
		}
		delete(s.pending, a.ClientRef)
		res.Changed = s.remove(TempID(a.ClientRef))
	case BookingStatusChanged:
		if a.BookingID == "" {
			return Result{Dropped: true}
		}
		if s.st.Live[a.BookingID] != a.Status {
			s.st.Live[a.BookingID] = a.Status
			res.Changed = true
		}
	case StatusesLoaded:
		if a.Generation != s.st.Generation {
			return Result{Dropped: true}
		}
		for id, st := range a.Statuses {
			if id != "" && st != "" && s.st.Live[id] != st {
				s.st.Live[id] = st
				res.Changed = true
			}
		}
	case CacheRestored:
		if a.Generation != s.st.Generation || len(s.st.Messages) > 0 || len(a.Messages) == 0 {
			return Result{Dropped: true}
		}
		s.st.Messages = s.ingestAll(a.Messages)
		res.Changed = true
		res.Restored = true
	case Resynced:
		if a.Generation != s.st.Generation {
			return Result{Dropped: true}
		}
		res.Changed = s.merge(a.Messages)
	case IntegrityCheck:
	default:
		s.logger.Warn("Unknown conversation action", zap.String("action", a.actionName()))
		return Result{Dropped: true}
	}

	if res.Changed {
		s.st.Messages = protocol.MarkChangeRequests(s.st.Messages)
	}
	s.guard(&res, a)
	return res
}

// guard restores the last-known-good copy when the list is empty without an explicit
// switch, and refreshes the copy when the list holds confirmed messages.
func (s *Store) guard(res *Result, a Action) {
	if len(s.st.Messages) == 0 && len(s.st.LastKnownGood) > 0 {
		s.st.Messages = cloneList(s.st.LastKnownGood)
		s.st.Restores++
		res.Changed = true
		res.Restored = true
		s.logger.Warn("Message list emptied unexpectedly; restored last known good copy",
			zap.String("conversationID", s.st.ConversationID),
			zap.String("action", a.actionName()),
			zap.Int("messages", len(s.st.Messages)))
		return
	}

	confirmed := make([]models.ConversationMessage, 0, len(s.st.Messages))
	for _, m := range s.st.Messages {
		if !m.Pending {
			confirmed = append(confirmed, m.Clone())
		}
	}
	if len(confirmed) == 0 || reflect.DeepEqual(confirmed, s.st.LastKnownGood) {
		return
	}
	s.st.LastKnownGood = confirmed
	res.LastKnownGoodChanged = true
}

func (s *Store) reset(conversationID, viewerID string) {
	s.st = State{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		Generation:     s.st.Generation + 1,
		Live:           map[string]models.BookingStatus{},
		HasMore:        conversationID != "",
	}
	s.pending = map[string]struct{}{}
}

func (s *Store) pageRequested(a PageRequested) Result {
	if a.Generation != s.st.Generation || s.st.Loading || a.Page != s.st.Page+1 {
		return Result{Dropped: true}
	}
	if a.Page > 1 && !s.st.HasMore {
		return Result{Dropped: true}
	}
	s.st.Loading = true
	return Result{Changed: true}
}

func (s *Store) pageLoaded(a PageLoaded) Result {
	if a.Generation != s.st.Generation || a.Page <= s.st.Page {
		return Result{Dropped: true}
	}
	s.merge(a.Messages)
	s.st.Page = a.Page
	s.st.HasMore = a.HasMore
	s.st.Loading = false
	return Result{Changed: true}
}

func (s *Store) pushed(m models.ConversationMessage) Result {
	if !s.routes(m) {
		return Result{Dropped: true}
	}
	changed := false
	if m.ClientRef != "" {
		if _, ok := s.pending[m.ClientRef]; ok {
			delete(s.pending, m.ClientRef)
			changed = s.remove(TempID(m.ClientRef))
		}
	}
	m = s.ingest(m)
	if s.upsert(m) {
		changed = true
	}
	// A pushed snapshot is newer than any status reported before it.
	if id := m.BookingID(); id != "" {
		if cur, ok := s.st.Live[id]; ok && cur != m.Booking.Status {
			s.st.Live[id] = m.Booking.Status
			changed = true
		}
	}
	return Result{Changed: changed}
}

func (s *Store) updated(m models.ConversationMessage) Result {
	if !s.routes(m) {
		return Result{Dropped: true}
	}
	i := s.indexOf(m.ID)
	if i < 0 {
		return Result{Dropped: true}
	}
	next := s.ingest(m)
	if reflect.DeepEqual(next, s.st.Messages[i]) {
		return Result{}
	}
	s.st.Messages[i] = next
	return Result{Changed: true}
}

func (s *Store) sendPending(m models.ConversationMessage) Result {
	if s.st.ConversationID == "" || m.ClientRef == "" {
		return Result{Dropped: true}
	}
	if _, ok := s.pending[m.ClientRef]; ok {
		return Result{Dropped: true}
	}
	m = m.Clone()
	m.ID = TempID(m.ClientRef)
	m.ConversationID = s.st.ConversationID
	m.Pending = true
	m.SenderIsSelf = true
	s.pending[m.ClientRef] = struct{}{}
	s.insert(m)
	return Result{Changed: true}
}

func (s *Store) sendAcked(a SendAcked) Result {
	if a.Generation != s.st.Generation {
		return Result{Dropped: true}
	}
	delete(s.pending, a.ClientRef)
	removed := s.remove(TempID(a.ClientRef))
	if a.Message.ClientRef == "" {
		a.Message.ClientRef = a.ClientRef
	}
	upserted := s.upsert(s.ingest(a.Message))
	return Result{Changed: removed || upserted}
}

func (s *Store) routes(m models.ConversationMessage) bool {
	if s.st.ConversationID == "" || m.ID == "" {
		return false
	}
	return m.ConversationID == "" || m.ConversationID == s.st.ConversationID
}

func (s *Store) ingest(m models.ConversationMessage) models.ConversationMessage {
	out := protocol.Ingest(m, s.st.ViewerID)
	out.Pending = false
	if out.ConversationID == "" {
		out.ConversationID = s.st.ConversationID
	}
	return out
}

func (s *Store) ingestAll(list []models.ConversationMessage) []models.ConversationMessage {
	out := make([]models.ConversationMessage, 0, len(list))
	for _, m := range list {
		out = append(out, s.ingest(m))
	}
	return out
}

// upsert patches a known id in place or inserts a new message by creation time.
func (s *Store) upsert(m models.ConversationMessage) bool {
	if i := s.indexOf(m.ID); i >= 0 {
		m.ChangeRequestPending = s.st.Messages[i].ChangeRequestPending
		if reflect.DeepEqual(m, s.st.Messages[i]) {
			return false
		}
		s.st.Messages[i] = m
		return true
	}
	s.insert(m)
	return true
}

// insert places m before the first message that is not newer than it, so equal timestamps
// keep arrival order with the latest arrival nearest the head.
func (s *Store) insert(m models.ConversationMessage) {
	at := len(s.st.Messages)
	for i := range s.st.Messages {
		if !s.st.Messages[i].CreatedAt.After(m.CreatedAt) {
			at = i
			break
		}
	}
	s.st.Messages = append(s.st.Messages, models.ConversationMessage{})
	copy(s.st.Messages[at+1:], s.st.Messages[at:])
	s.st.Messages[at] = m
}

// merge upserts fetched messages. Known ids are refreshed in place and new ones are placed
// by creation time, after existing messages with the same timestamp so page order holds.
func (s *Store) merge(list []models.ConversationMessage) bool {
	changed := false
	for _, m := range list {
		if m.ID == "" {
			continue
		}
		m = s.ingest(m)
		if s.indexOf(m.ID) >= 0 {
			if s.upsert(m) {
				changed = true
			}
			continue
		}
		at := len(s.st.Messages)
		for i := range s.st.Messages {
			if s.st.Messages[i].CreatedAt.Before(m.CreatedAt) {
				at = i
				break
			}
		}
		s.st.Messages = append(s.st.Messages, models.ConversationMessage{})
		copy(s.st.Messages[at+1:], s.st.Messages[at:])
		s.st.Messages[at] = m
		changed = true
	}
	return changed
}

func (s *Store) remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.st.Messages = append(s.st.Messages[:i], s.st.Messages[i+1:]...)
	return true
}

func (s *Store) indexOf(id string) int {
	for i := range s.st.Messages {
		if s.st.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneList(in []models.ConversationMessage) []models.ConversationMessage {
	if in == nil {
		return nil
	}
	out := make([]models.ConversationMessage, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
