package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pawhub/config"
	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/services/overlay"
	"pawhub/services/realtime"
	"pawhub/utils"
)

// API is the part of the booking API the engine reads and writes messages through.
type API interface {
	FetchMessages(ctx context.Context, conversationID string, page, limit int) (models.MessagePage, error)
	SendMessage(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.ConversationMessage, error)
}

// StatusSource reads the current state of a booking. When the API implements it, the engine
// refreshes the status of every booking shown after a page loads or the feed reconnects.
type StatusSource interface {
	GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error)
}

// Feed delivers realtime events.
type Feed interface {
	Subscribe(h realtime.Handler, types ...string) *realtime.Subscription
}

// ThreadCache persists the last-known-good copy between sessions.
type ThreadCache interface {
	SaveThread(ctx context.Context, viewerID, conversationID string, msgs []models.ConversationMessage) error
	LoadThread(ctx context.Context, viewerID, conversationID string) ([]models.ConversationMessage, error)
}

// NoticeKind tells the UI how to present a Notice.
type NoticeKind string

const (
	NoticeError               NoticeKind = "error"
	NoticeValidation          NoticeKind = "validation"
	NoticeCounterpartyDeleted NoticeKind = "counterparty_deleted"
	// NoticeRetry means the thread could not be loaded from the API nor from the cache.
	NoticeRetry NoticeKind = "retry"
)

// Notice is a user-facing message about a failed operation.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Options tunes the engine.
type Options struct {
	Viewer            overlay.Viewer
	PageSize          int
	FetchProximity    int
	FetchCooldown     time.Duration
	IntegrityInterval time.Duration
	CallTimeout       time.Duration
}

// OptionsFromConfig reads the sync settings from the loaded configuration.
func OptionsFromConfig(cfg config.Config, viewer overlay.Viewer) Options {
	return Options{
		Viewer:            viewer,
		PageSize:          cfg.SyncPageSize,
		FetchProximity:    cfg.SyncFetchProximity,
		FetchCooldown:     cfg.SyncFetchCooldown,
		IntegrityInterval: cfg.SyncIntegrityInterval,
		CallTimeout:       cfg.APITimeout,
	}
}

func (o *Options) setDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.FetchProximity <= 0 {
		o.FetchProximity = 5
	}
	if o.FetchCooldown <= 0 {
		o.FetchCooldown = time.Second
	}
	if o.IntegrityInterval <= 0 {
		o.IntegrityInterval = time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
}

type persistJob struct {
	viewerID       string
	conversationID string
	messages       []models.ConversationMessage
}

// Engine keeps one conversation thread in sync with the API, the realtime feed and the
// local cache. All list changes go through its Store.
type Engine struct {
	api      API
	statuses StatusSource
	feed     Feed
	cache  ThreadCache
	store  *Store
	pager  *Pager
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	life context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	notices   chan Notice
	updates   chan State
	persistCh chan persistJob

	mu  sync.Mutex
	sub *realtime.Subscription
}

// NewEngine wires an engine. cache may be nil.
func NewEngine(api API, feed Feed, cache ThreadCache, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.setDefaults()
	life, stop := context.WithCancel(context.Background())
	statuses, _ := api.(StatusSource)
	return &Engine{
		statuses:  statuses,
		api:       api,
		feed:      feed,
		cache:     cache,
		store:     NewStore(logger),
		pager:     NewPager(opts.FetchProximity, opts.FetchCooldown),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		life:      life,
		stop:      stop,
		notices:   make(chan Notice, 16),
		updates:   make(chan State, 1),
		persistCh: make(chan persistJob, 1),
	}
}

// Notices delivers errors to show as toasts.
func (e *Engine) Notices() <-chan Notice { return e.notices }

// Updates delivers the latest state after each change. Intermediate states may be skipped.
func (e *Engine) Updates() <-chan State { return e.updates }

// State returns a copy of the current thread.
func (e *Engine) State() State { return e.store.Snapshot() }

// Annotations evaluates overlays for the current thread.
func (e *Engine) Annotations() ([]models.ConversationMessage, []overlay.Annotation) {
	st := e.store.Snapshot()
	return st.Messages, overlay.Annotate(st.Messages, st.BookingStatuses(), e.opts.Viewer)
}

// Open switches to a conversation and loads its newest page.
func (e *Engine) Open(conversationID string) {
	res := e.apply(OpenConversation{ConversationID: conversationID, ViewerID: e.opts.Viewer.UserID})
	e.pager.Reset()
	e.subscribe()
	e.fetchPage(res.Generation, conversationID, 1)
}

// Close tears the thread down; results of calls still in flight are discarded.
func (e *Engine) Close() {
	e.apply(CloseConversation{})
	e.pager.Reset()
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()
	sub.Close()
}

// OnScroll loads the next page when the viewport nears the oldest loaded message.
func (e *Engine) OnScroll(ev ScrollEvent) bool {
	p := e.store.paging()
	if p.conversationID == "" {
		return false
	}
	if !e.pager.ShouldFetch(ev, p.hasMore, p.loading) {
		return false
	}
	return e.fetchPage(p.generation, p.conversationID, p.page+1)
}

// LoadMore loads the next page regardless of scroll position.
func (e *Engine) LoadMore() bool {
	p := e.store.paging()
	if p.conversationID == "" || !p.hasMore || p.loading {
		return false
	}
	return e.fetchPage(p.generation, p.conversationID, p.page+1)
}

// Retry reloads after a NoticeRetry.
func (e *Engine) Retry() bool {
	p := e.store.paging()
	if p.conversationID == "" || p.loading {
		return false
	}
	return e.fetchPage(p.generation, p.conversationID, p.page+1)
}

// Send shows the message immediately and replaces it with the stored copy once the API
// acknowledges it. It returns the client ref of the optimistic entry.
func (e *Engine) Send(content string, images []string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(images) == 0 {
		return "", utils.NewValidationError("empty_message", "Message cannot be empty")
	}
	p := e.store.paging()
	if p.conversationID == "" {
		return "", utils.NewValidationError("no_conversation", "No conversation is open")
	}

	variant := models.VariantPlainText
	if len(images) > 0 {
		variant = models.VariantImage
	}
	ref := uuid.NewString()
	res := e.apply(SendPending{Message: models.ConversationMessage{
		ConversationID: p.conversationID,
		SenderID:       e.opts.Viewer.UserID,
		Variant:        variant,
		Content:        content,
		ImageURLs:      images,
		ClientRef:      ref,
		CreatedAt:      e.now(),
	}})
	if !res.Changed {
		return "", utils.NewAppError(utils.KindIntegrity, "send_rejected", "Message could not be queued")
	}

	gen := res.Generation
	req := models.SendMessageRequest{ClientRef: ref, Content: content, Images: images}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
		defer cancel()

		msg, err := e.api.SendMessage(ctx, p.conversationID, req)
		if e.life.Err() != nil {
			return
		}
		if err != nil {
			e.apply(SendFailed{Generation: gen, ClientRef: ref})
			e.logger.Warn("Message send failed", zap.String("conversationID", p.conversationID), zap.Error(err))
			e.notify(noticeFor(err, "Message could not be sent"))
			return
		}
		if msg == nil {
			e.apply(SendFailed{Generation: gen, ClientRef: ref})
			e.notify(Notice{Kind: NoticeError, Message: "Message could not be sent"})
			return
		}
		e.apply(SendAcked{Generation: gen, ClientRef: ref, Message: *msg})
	}()
	return ref, nil
}

// SetBookingStatus records an acknowledged status change.
func (e *Engine) SetBookingStatus(bookingID string, status models.BookingStatus) {
	e.apply(BookingStatusChanged{BookingID: bookingID, Status: status})
}

// Run drives the integrity check and cache persistence until ctx is done, then tears the
// engine down.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.IntegrityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Close()
			e.stop()
			e.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if res := e.apply(IntegrityCheck{}); res.Restored {
				e.logger.Info("Integrity check restored the thread", zap.Uint64("generation", res.Generation))
			}
		case job := <-e.persistCh:
			e.persist(job)
		}
	}
}

func (e *Engine) fetchPage(gen uint64, conversationID string, page int) bool {
	if res := e.apply(PageRequested{Generation: gen, Page: page}); !res.Changed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
		defer cancel()

		pg, err := e.api.FetchMessages(ctx, conversationID, page, e.opts.PageSize)
		if e.life.Err() != nil {
			return
		}
		if err != nil {
			e.apply(PageFailed{Generation: gen, Page: page})
			e.logger.Warn("Fetching messages failed",
				zap.String("conversationID", conversationID), zap.Int("page", page), zap.Error(err))
			if page == 1 {
				e.restoreFromCache(gen, conversationID, err)
				return
			}
			e.notify(noticeFor(err, "Could not load older messages"))
			return
		}
		e.apply(PageLoaded{Generation: gen, Page: page, Messages: pg.Messages, HasMore: pg.HasMore})
		e.refreshStatuses(gen, bookingIDs(pg.Messages))
	}()
	return true
}

// resync refetches the newest page after the feed reconnects and merges it, then refreshes
// every booking status in the thread. A thread whose first page never loaded is loaded now.
func (e *Engine) resync() {
	p := e.store.paging()
	if p.conversationID == "" {
		return
	}
	if p.page == 0 {
		if !p.loading {
			e.fetchPage(p.generation, p.conversationID, 1)
		}
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
		defer cancel()

		pg, err := e.api.FetchMessages(ctx, p.conversationID, 1, e.opts.PageSize)
		if e.life.Err() != nil {
			return
		}
		if err != nil {
			e.logger.Warn("Resync after reconnect failed", zap.String("conversationID", p.conversationID), zap.Error(err))
			return
		}
		e.apply(Resynced{Generation: p.generation, Messages: pg.Messages})
		if e.store.Generation() != p.generation {
			return
		}
		e.refreshStatuses(p.generation, bookingIDs(e.store.Snapshot().Messages))
	}()
}

// refreshStatuses reads the current status of each booking so overlays never act on a
// snapshot the booking has moved past. Called from fetch goroutines.
func (e *Engine) refreshStatuses(gen uint64, ids []string) {
	if e.statuses == nil || len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
	defer cancel()

	out := make(map[string]models.BookingStatus, len(ids))
	for _, id := range ids {
		b, err := e.statuses.GetBookingDetails(ctx, id)
		if e.life.Err() != nil || e.store.Generation() != gen {
			return
		}
		if err != nil {
			e.logger.Warn("Reading booking status failed", zap.String("bookingID", id), zap.Error(err))
			continue
		}
		if b == nil {
			continue
		}
		booking.Normalize(b)
		if b.Status != "" {
			out[id] = b.Status
		}
	}
	if len(out) > 0 {
		e.apply(StatusesLoaded{Generation: gen, Statuses: out})
	}
}

func bookingIDs(msgs []models.ConversationMessage) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range msgs {
		id := msgs[i].BookingID()
		if id == "" || msgs[i].Pending {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// restoreFromCache seeds the thread from the cache after the first page failed to load.
func (e *Engine) restoreFromCache(gen uint64, conversationID string, cause error) {
	if utils.IsKind(cause, utils.KindCounterpartyDeleted) {
		e.notify(noticeFor(cause, ""))
	}
	if e.cache != nil {
		ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
		msgs, err := e.cache.LoadThread(ctx, e.opts.Viewer.UserID, conversationID)
		if err != nil {
			e.logger.Warn("Reading cached thread failed", zap.String("conversationID", conversationID), zap.Error(err))
		}
		cancel()
		if len(msgs) > 0 {
			if res := e.apply(CacheRestored{Generation: gen, Messages: msgs}); res.Restored {
				if !utils.IsKind(cause, utils.KindCounterpartyDeleted) {
					e.notify(Notice{Kind: NoticeError, Message: "Showing saved messages; could not refresh", Err: cause})
				}
				return
			}
		}
	}
	if e.store.Generation() != gen {
		return
	}
	e.notify(Notice{Kind: NoticeRetry, Message: "Messages could not be loaded", Err: cause})
}

func (e *Engine) subscribe() {
	if e.feed == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub != nil {
		return
	}
	e.sub = e.feed.Subscribe(e.onEvent,
		models.EventNewMessage, models.EventMessageUpdate, models.EventBookingUpdate, models.EventReconnected)
}

func (e *Engine) onEvent(ev models.RealtimeEvent) {
	if e.life.Err() != nil {
		return
	}
	switch ev.Type {
	case models.EventReconnected:
		e.resync()
	case models.EventNewMessage, models.EventMessageUpdate:
		if ev.Message == nil {
			return
		}
		m := *ev.Message
		if m.ConversationID == "" {
			m.ConversationID = ev.ConversationID
		}
		if ev.Type == models.EventNewMessage {
			e.apply(MessagePushed{Message: m})
		} else {
			e.apply(MessageUpdated{Message: m})
		}
	case models.EventBookingUpdate:
		if p := e.store.paging(); ev.ConversationID != "" && ev.ConversationID != p.conversationID {
			return
		}
		e.apply(BookingStatusChanged{BookingID: ev.BookingID, Status: ev.Status})
	}
}

func (e *Engine) apply(a Action) Result {
	res := e.store.Dispatch(a)
	if res.Changed {
		e.publish()
	}
	if res.LastKnownGoodChanged && e.cache != nil {
		st := e.store.Snapshot()
		e.schedulePersist(persistJob{
			viewerID:       st.ViewerID,
			conversationID: st.ConversationID,
			messages:       st.LastKnownGood,
		})
	}
	return res
}

func (e *Engine) publish() {
	st := e.store.Snapshot()
	select {
	case e.updates <- st:
		return
	default:
	}
	// drop the stale state nobody read yet
	select {
	case <-e.updates:
	default:
	}
	select {
	case e.updates <- st:
	default:
	}
}

func (e *Engine) schedulePersist(job persistJob) {
	select {
	case e.persistCh <- job:
		return
	default:
	}
	select {
	case <-e.persistCh:
	default:
	}
	select {
	case e.persistCh <- job:
	default:
	}
}

func (e *Engine) persist(job persistJob) {
	if job.conversationID == "" || len(job.messages) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(e.life, e.opts.CallTimeout)
	defer cancel()
	if err := e.cache.SaveThread(ctx, job.viewerID, job.conversationID, job.messages); err != nil {
		e.logger.Warn("Persisting thread failed", zap.String("conversationID", job.conversationID), zap.Error(err))
	}
}

func (e *Engine) notify(n Notice) {
	select {
	case e.notices <- n:
	default:
		e.logger.Warn("Notice dropped", zap.String("kind", string(n.Kind)), zap.String("message", n.Message))
	}
}

func noticeFor(err error, fallback string) Notice {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case utils.KindCounterpartyDeleted:
			return Notice{Kind: NoticeCounterpartyDeleted, Message: "The other participant has deleted their account", Err: err}
		case utils.KindValidation:
			return Notice{Kind: NoticeValidation, Message: appErr.Message, Err: err}
		}
	}
	if fallback == "" {
		fallback = "Something went wrong"
	}
	return Notice{Kind: NoticeError, Message: fallback, Err: err}
}
