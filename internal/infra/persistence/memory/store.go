// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. The durable backends reuse
// it for transaction semantics and persist through a commit hook.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Template aliases domain.Template for in-memory persistence operations.
	Template = domain.Template
	// Section aliases domain.Section.
	Section = domain.Section
	// TemplateItem aliases domain.TemplateItem.
	TemplateItem = domain.TemplateItem
	// Room aliases domain.Room.
	Room = domain.Room
	// RoomItem aliases domain.RoomItem.
	RoomItem = domain.RoomItem
	// Expansion aliases domain.Expansion.
	Expansion = domain.Expansion
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Commit describes a transaction that passed rule evaluation and is about to
// replace the store state.
type Commit struct {
	Changes []Change
	// Snapshot clones the post-transaction state.
	Snapshot func() Snapshot
}

// CommitHook persists a commit. A non-nil error aborts the commit and leaves
// the in-memory state untouched.
type CommitHook func(ctx context.Context, commit Commit) error

// Option customises a Store.
type Option func(*Store)

// WithCommitHook installs the hook called before every state swap.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

type memoryState struct {
	templates     map[string]Template
	sections      map[string]Section
	templateItems map[string]TemplateItem
	rooms         map[string]Room
	roomItems     map[string]RoomItem
	expansions    map[string]Expansion

	// unique indexes
	roomTemplateItem map[string]string
	activeExpansion  map[string]string
	expansionSeq     map[string]string
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Templates     map[string]Template     `json:"templates"`
	Sections      map[string]Section      `json:"sections"`
	TemplateItems map[string]TemplateItem `json:"template_items"`
	Rooms         map[string]Room         `json:"rooms"`
	RoomItems     map[string]RoomItem     `json:"room_items"`
	Expansions    map[string]Expansion    `json:"expansions"`
}

func newMemoryState() memoryState {
	return memoryState{
		templates:        make(map[string]Template),
		sections:         make(map[string]Section),
		templateItems:    make(map[string]TemplateItem),
		rooms:            make(map[string]Room),
		roomItems:        make(map[string]RoomItem),
		expansions:       make(map[string]Expansion),
		roomTemplateItem: make(map[string]string),
		activeExpansion:  make(map[string]string),
		expansionSeq:     make(map[string]string),
	}
}

func roomTemplateItemKey(roomID, templateItemID string) string {
	return roomID + "\x00" + templateItemID
}

func activeExpansionKey(parentID, optionID string) string {
	return parentID + "\x00" + optionID
}

func expansionSeqKey(parentID string, seq int) string {
	return fmt.Sprintf("%s\x00%d", parentID, seq)
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Templates:     make(map[string]Template, len(state.templates)),
		Sections:      make(map[string]Section, len(state.sections)),
		TemplateItems: make(map[string]TemplateItem, len(state.templateItems)),
		Rooms:         make(map[string]Room, len(state.rooms)),
		RoomItems:     make(map[string]RoomItem, len(state.roomItems)),
		Expansions:    make(map[string]Expansion, len(state.expansions)),
	}
	for k, v := range state.templates {
		s.Templates[k] = v
	}
	for k, v := range state.sections {
		s.Sections[k] = v
	}
	for k, v := range state.templateItems {
		s.TemplateItems[k] = domain.CloneTemplateItem(v)
	}
	for k, v := range state.rooms {
		s.Rooms[k] = v
	}
	for k, v := range state.roomItems {
		s.RoomItems[k] = domain.CloneRoomItem(v)
	}
	for k, v := range state.expansions {
		s.Expansions[k] = domain.CloneExpansion(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Templates {
		state.templates[k] = v
	}
	for k, v := range s.Sections {
		state.sections[k] = v
	}
	for k, v := range s.TemplateItems {
		state.templateItems[k] = domain.CloneTemplateItem(v)
	}
	for k, v := range s.Rooms {
		state.rooms[k] = v
	}
	for k, v := range s.RoomItems {
		state.roomItems[k] = domain.CloneRoomItem(v)
		if v.TemplateItemID != nil {
			state.roomTemplateItem[roomTemplateItemKey(v.RoomID, *v.TemplateItemID)] = k
		}
	}
	for k, v := range s.Expansions {
		state.expansions[k] = domain.CloneExpansion(v)
		state.expansionSeq[expansionSeqKey(v.ParentItemID, v.Sequence)] = k
		if v.Active {
			state.activeExpansion[activeExpansionKey(v.ParentItemID, v.LogicOptionID)] = k
		}
	}
	return state
}

// normalizeSnapshot fills defaults for records written by older builds.
// Rooms persisted before instantiation records existed are rebuilt from
// their items.
func normalizeSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Rooms == nil {
		snapshot.Rooms = make(map[string]Room)
	}
	for id, item := range snapshot.RoomItems {
		if _, ok := snapshot.Rooms[item.RoomID]; !ok && item.RoomID != "" {
			snapshot.Rooms[item.RoomID] = Room{
				Base:       domain.Base{ID: item.RoomID, CreatedAt: item.CreatedAt, UpdatedAt: item.CreatedAt},
				TemplateID: item.TemplateID,
			}
		}
		if item.ID == "" {
			item.ID = id
		}
		if item.Status == "" {
			item.Status = domain.StatusPending
		}
		if item.LogicOptions == nil {
			item.LogicOptions = []domain.LogicOption{}
		}
		snapshot.RoomItems[id] = item
	}
	for id, item := range snapshot.TemplateItems {
		if item.LogicOptions == nil {
			item.LogicOptions = []domain.LogicOption{}
			snapshot.TemplateItems[id] = item
		}
	}
	for id, exp := range snapshot.Expansions {
		if exp.ChildIDs == nil {
			exp.ChildIDs = []string{}
			snapshot.Expansions[id] = exp
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := memoryStateFromSnapshot(snapshotFromMemoryState(s))
	return cloned
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	hook   CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(normalizeSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// Close releases nothing; the in-memory store has no external resources.
func (s *Store) Close() error { return nil }

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.hook != nil && len(tx.changes) > 0 {
		commit := Commit{
			Changes:  tx.changes,
			Snapshot: func() Snapshot { return snapshotFromMemoryState(tx.state) },
		}
		if err := s.hook(ctx, commit); err != nil {
			return result, err
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only view of the store state. Values handed
// out by the view are copies.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTransactionView(&s.state))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateTemplate stores a new template.
func (tx *transaction) CreateTemplate(t Template) (Template, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.templates[t.ID]; exists {
		return Template{}, domain.NewConflictError(domain.EntityTemplate, t.ID, "template %q already exists", t.ID)
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.templates[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTemplate mutates a template using the provided mutator function.
func (tx *transaction) UpdateTemplate(id string, mutator func(*Template) error) (Template, error) {
	current, ok := tx.state.templates[id]
	if !ok {
		return Template{}, domain.NewNotFoundError(domain.EntityTemplate, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Template{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.templates[id] = current
	tx.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateSection stores a section under an existing template.
func (tx *transaction) CreateSection(sec Section) (Section, error) {
	if _, ok := tx.state.templates[sec.TemplateID]; !ok {
		return Section{}, domain.NewNotFoundError(domain.EntityTemplate, sec.TemplateID)
	}
	if sec.ID == "" {
		sec.ID = tx.store.newID()
	}
	if _, exists := tx.state.sections[sec.ID]; exists {
		return Section{}, domain.NewConflictError(domain.EntitySection, sec.ID, "section %q already exists", sec.ID)
	}
	sec.CreatedAt = tx.now
	sec.UpdatedAt = tx.now
	tx.state.sections[sec.ID] = sec
	tx.recordChange(Change{Entity: domain.EntitySection, Action: domain.ActionCreate, After: sec})
	return sec, nil
}

// CreateTemplateItem stores an item under an existing section.
func (tx *transaction) CreateTemplateItem(item TemplateItem) (TemplateItem, error) {
	sec, ok := tx.state.sections[item.SectionID]
	if !ok {
		return TemplateItem{}, domain.NewNotFoundError(domain.EntitySection, item.SectionID)
	}
	if item.ID == "" {
		item.ID = tx.store.newID()
	}
	if _, exists := tx.state.templateItems[item.ID]; exists {
		return TemplateItem{}, domain.NewConflictError(domain.EntityTemplateItem, item.ID, "template item %q already exists", item.ID)
	}
	item.TemplateID = sec.TemplateID
	item.CreatedAt = tx.now
	item.UpdatedAt = tx.now
	if item.LogicOptions == nil {
		item.LogicOptions = []domain.LogicOption{}
	}
	tx.state.templateItems[item.ID] = domain.CloneTemplateItem(item)
	tx.recordChange(Change{Entity: domain.EntityTemplateItem, Action: domain.ActionCreate, After: domain.CloneTemplateItem(item)})
	return domain.CloneTemplateItem(item), nil
}

// UpdateTemplateItem mutates a template item. Its placement is fixed.
func (tx *transaction) UpdateTemplateItem(id string, mutator func(*TemplateItem) error) (TemplateItem, error) {
	current, ok := tx.state.templateItems[id]
	if !ok {
		return TemplateItem{}, domain.NewNotFoundError(domain.EntityTemplateItem, id)
	}
	before := domain.CloneTemplateItem(current)
	current = domain.CloneTemplateItem(current)
	if err := mutator(&current); err != nil {
		return TemplateItem{}, err
	}
	current.ID = id
	current.TemplateID = before.TemplateID
	current.SectionID = before.SectionID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.LogicOptions == nil {
		current.LogicOptions = []domain.LogicOption{}
	}
	tx.state.templateItems[id] = domain.CloneTemplateItem(current)
	tx.recordChange(Change{Entity: domain.EntityTemplateItem, Action: domain.ActionUpdate, Before: before, After: domain.CloneTemplateItem(current)})
	return domain.CloneTemplateItem(current), nil
}

// CreateRoom records that a room was instantiated.
func (tx *transaction) CreateRoom(room Room) (Room, error) {
	if room.ID == "" {
		return Room{}, domain.NewValidationError("room requires an id")
	}
	if _, exists := tx.state.rooms[room.ID]; exists {
		return Room{}, domain.NewConflictError(domain.EntityRoom, room.ID, "room %q already has FFE state", room.ID)
	}
	room.CreatedAt = tx.now
	room.UpdatedAt = tx.now
	tx.state.rooms[room.ID] = room
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionCreate, After: room})
	return room, nil
}

// CreateRoomItem stores a new room item, enforcing one copy per template item per room.
func (tx *transaction) CreateRoomItem(item RoomItem) (RoomItem, error) {
	if item.RoomID == "" {
		return RoomItem{}, domain.NewValidationError("room item requires a room id")
	}
	if item.ID == "" {
		item.ID = tx.store.newID()
	}
	if _, exists := tx.state.roomItems[item.ID]; exists {
		return RoomItem{}, domain.NewConflictError(domain.EntityRoomItem, item.ID, "room item %q already exists", item.ID)
	}
	if item.TemplateItemID != nil {
		key := roomTemplateItemKey(item.RoomID, *item.TemplateItemID)
		if existing, dup := tx.state.roomTemplateItem[key]; dup {
			return RoomItem{}, domain.NewConflictError(domain.EntityRoomItem, existing,
				"room %q already holds template item %q", item.RoomID, *item.TemplateItemID)
		}
		tx.state.roomTemplateItem[key] = item.ID
	}
	if item.Status == "" {
		item.Status = domain.StatusPending
	}
	if item.LogicOptions == nil {
		item.LogicOptions = []domain.LogicOption{}
	}
	item.CreatedAt = tx.now
	item.UpdatedAt = tx.now
	tx.state.roomItems[item.ID] = domain.CloneRoomItem(item)
	tx.recordChange(Change{Entity: domain.EntityRoomItem, Action: domain.ActionCreate, After: domain.CloneRoomItem(item)})
	return domain.CloneRoomItem(item), nil
}

// UpdateRoomItem mutates a room item's working fields.
func (tx *transaction) UpdateRoomItem(id string, mutator func(*RoomItem) error) (RoomItem, error) {
	current, ok := tx.state.roomItems[id]
	if !ok {
		return RoomItem{}, domain.NewNotFoundError(domain.EntityRoomItem, id)
	}
	before := domain.CloneRoomItem(current)
	current = domain.CloneRoomItem(current)
	if err := mutator(&current); err != nil {
		return RoomItem{}, err
	}
	restoreIdentity(&current, before)
	current.ActiveLogicOptionID = before.ActiveLogicOptionID
	current.UpdatedAt = tx.now
	tx.state.roomItems[id] = domain.CloneRoomItem(current)
	tx.recordChange(Change{Entity: domain.EntityRoomItem, Action: domain.ActionUpdate, Before: before, After: domain.CloneRoomItem(current)})
	return domain.CloneRoomItem(current), nil
}

func restoreIdentity(current *RoomItem, before RoomItem) {
	current.ID = before.ID
	current.RoomID = before.RoomID
	current.TemplateID = before.TemplateID
	current.SectionID = before.SectionID
	current.SectionName = before.SectionName
	current.SectionPosition = before.SectionPosition
	current.TemplateItemID = before.TemplateItemID
	current.ParentItemID = before.ParentItemID
	current.SourceLogicOptionID = before.SourceLogicOptionID
	current.ExpansionID = before.ExpansionID
	current.LogicOptions = before.LogicOptions
	current.CreatedAt = before.CreatedAt
}

// SwapActiveLogicOption compares the parent's active option with observed and
// replaces it with next when they match.
func (tx *transaction) SwapActiveLogicOption(parentID string, observed, next *string) (RoomItem, error) {
	current, ok := tx.state.roomItems[parentID]
	if !ok {
		return RoomItem{}, domain.NewNotFoundError(domain.EntityRoomItem, parentID)
	}
	if !domain.SameStr(current.ActiveLogicOptionID, observed) {
		return RoomItem{}, domain.NewConflictError(domain.EntityRoomItem, parentID,
			"active logic option of %q changed concurrently (expected %q, found %q)",
			parentID, domain.StrValue(observed), domain.StrValue(current.ActiveLogicOptionID))
	}
	before := domain.CloneRoomItem(current)
	current = domain.CloneRoomItem(current)
	if next == nil {
		current.ActiveLogicOptionID = nil
	} else {
		current.ActiveLogicOptionID = domain.StrPtr(*next)
	}
	current.UpdatedAt = tx.now
	tx.state.roomItems[parentID] = domain.CloneRoomItem(current)
	tx.recordChange(Change{Entity: domain.EntityRoomItem, Action: domain.ActionUpdate, Before: before, After: domain.CloneRoomItem(current)})
	return domain.CloneRoomItem(current), nil
}

// CreateExpansion stores a new expansion record.
func (tx *transaction) CreateExpansion(exp Expansion) (Expansion, error) {
	if _, ok := tx.state.roomItems[exp.ParentItemID]; !ok {
		return Expansion{}, domain.NewNotFoundError(domain.EntityRoomItem, exp.ParentItemID)
	}
	if exp.ID == "" {
		exp.ID = tx.store.newID()
	}
	if _, exists := tx.state.expansions[exp.ID]; exists {
		return Expansion{}, domain.NewConflictError(domain.EntityExpansion, exp.ID, "expansion %q already exists", exp.ID)
	}
	seqKey := expansionSeqKey(exp.ParentItemID, exp.Sequence)
	if _, dup := tx.state.expansionSeq[seqKey]; dup {
		return Expansion{}, domain.NewConflictError(domain.EntityExpansion, exp.ParentItemID,
			"expansion sequence %d of %q already used", exp.Sequence, exp.ParentItemID)
	}
	if exp.Active {
		key := activeExpansionKey(exp.ParentItemID, exp.LogicOptionID)
		if _, dup := tx.state.activeExpansion[key]; dup {
			return Expansion{}, domain.NewConflictError(domain.EntityExpansion, exp.ParentItemID,
				"logic option %q is already expanded on %q", exp.LogicOptionID, exp.ParentItemID)
		}
		tx.state.activeExpansion[key] = exp.ID
	}
	tx.state.expansionSeq[seqKey] = exp.ID
	if exp.ChildIDs == nil {
		exp.ChildIDs = []string{}
	}
	exp.CreatedAt = tx.now
	exp.UpdatedAt = tx.now
	tx.state.expansions[exp.ID] = domain.CloneExpansion(exp)
	tx.recordChange(Change{Entity: domain.EntityExpansion, Action: domain.ActionCreate, After: domain.CloneExpansion(exp)})
	return domain.CloneExpansion(exp), nil
}

// UpdateExpansion mutates an expansion. Its parent, option and sequence are fixed.
func (tx *transaction) UpdateExpansion(id string, mutator func(*Expansion) error) (Expansion, error) {
	current, ok := tx.state.expansions[id]
	if !ok {
		return Expansion{}, domain.NewNotFoundError(domain.EntityExpansion, id)
	}
	before := domain.CloneExpansion(current)
	current = domain.CloneExpansion(current)
	if err := mutator(&current); err != nil {
		return Expansion{}, err
	}
	current.ID = id
	current.RoomID = before.RoomID
	current.ParentItemID = before.ParentItemID
	current.LogicOptionID = before.LogicOptionID
	current.Sequence = before.Sequence
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	key := activeExpansionKey(current.ParentItemID, current.LogicOptionID)
	switch {
	case current.Active && !before.Active:
		if _, dup := tx.state.activeExpansion[key]; dup {
			return Expansion{}, domain.NewConflictError(domain.EntityExpansion, current.ParentItemID,
				"logic option %q is already expanded on %q", current.LogicOptionID, current.ParentItemID)
		}
		tx.state.activeExpansion[key] = id
	case !current.Active && before.Active:
		delete(tx.state.activeExpansion, key)
	}
	tx.state.expansions[id] = domain.CloneExpansion(current)
	tx.recordChange(Change{Entity: domain.EntityExpansion, Action: domain.ActionUpdate, Before: before, After: domain.CloneExpansion(current)})
	return domain.CloneExpansion(current), nil
}

// ListTemplates returns all templates ordered by creation time.
func (v transactionView) ListTemplates() []Template {
	out := make([]Template, 0, len(v.state.templates))
	for _, t := range v.state.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindTemplate retrieves a template by ID.
func (v transactionView) FindTemplate(id string) (Template, bool) {
	t, ok := v.state.templates[id]
	return t, ok
}

// FindSection retrieves a section by ID.
func (v transactionView) FindSection(id string) (Section, bool) {
	s, ok := v.state.sections[id]
	return s, ok
}

// ListSections returns the template's sections ordered by position.
func (v transactionView) ListSections(templateID string) []Section {
	var out []Section
	for _, s := range v.state.sections {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindTemplateItem retrieves a template item by ID.
func (v transactionView) FindTemplateItem(id string) (TemplateItem, bool) {
	item, ok := v.state.templateItems[id]
	if !ok {
		return TemplateItem{}, false
	}
	return domain.CloneTemplateItem(item), true
}

// ListTemplateItems returns the section's items ordered by position.
func (v transactionView) ListTemplateItems(sectionID string) []TemplateItem {
	var out []TemplateItem
	for _, item := range v.state.templateItems {
		if item.SectionID == sectionID {
			out = append(out, domain.CloneTemplateItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindRoomItem retrieves a room item by ID.
func (v transactionView) FindRoomItem(id string) (RoomItem, bool) {
	item, ok := v.state.roomItems[id]
	if !ok {
		return RoomItem{}, false
	}
	return domain.CloneRoomItem(item), true
}

// ListRoomItems returns every item of the room ordered by section and position.
func (v transactionView) ListRoomItems(roomID string) []RoomItem {
	var out []RoomItem
	for _, item := range v.state.roomItems {
		if item.RoomID == roomID {
			out = append(out, domain.CloneRoomItem(item))
		}
	}
	sortRoomItems(out)
	return out
}

// ListChildren returns every item derived from parentID.
func (v transactionView) ListChildren(parentID string) []RoomItem {
	var out []RoomItem
	for _, item := range v.state.roomItems {
		if item.ParentItemID != nil && *item.ParentItemID == parentID {
			out = append(out, domain.CloneRoomItem(item))
		}
	}
	sortRoomItems(out)
	return out
}

func sortRoomItems(items []RoomItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SectionPosition != b.SectionPosition {
			return a.SectionPosition < b.SectionPosition
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}

// FindRoom retrieves a room's instantiation record.
func (v transactionView) FindRoom(roomID string) (Room, bool) {
	room, ok := v.state.rooms[roomID]
	return room, ok
}

// RoomExists reports whether the room has an instantiation record.
func (v transactionView) RoomExists(roomID string) bool {
	_, ok := v.state.rooms[roomID]
	return ok
}

// FindExpansion retrieves an expansion by ID.
func (v transactionView) FindExpansion(id string) (Expansion, bool) {
	exp, ok := v.state.expansions[id]
	if !ok {
		return Expansion{}, false
	}
	return domain.CloneExpansion(exp), true
}

// ListExpansions returns the parent's expansions ordered by sequence.
func (v transactionView) ListExpansions(parentID string) []Expansion {
	var out []Expansion
	for _, exp := range v.state.expansions {
		if exp.ParentItemID == parentID {
			out = append(out, domain.CloneExpansion(exp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
