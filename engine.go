package csvdoc

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-csvdoc/pkg/activity"
	"github.com/goliatone/go-csvdoc/pkg/rules"
	"github.com/goliatone/go-csvdoc/pkg/state"
)

// Violation reports a row that failed a configured rule.
type Violation = rules.Violation

type cellRef struct {
	row    string
	column string
}

// Engine owns the current snapshot, its history and the persistence
// schedule. All methods are safe for concurrent use; each runs to completion
// under a single lock.
type Engine struct {
	mu         sync.Mutex
	cfg        engineConfig
	logger     *slog.Logger
	classifier classifier
	checker    *rules.Checker
	emitter    *activity.Emitter
	history    *History

	// current is what callers see. committed is the newest recorded state;
	// the two differ only while transient edits are pending.
	current   Snapshot
	committed Snapshot
	transient map[cellRef]struct{}
	widths    map[string]int

	queue      *writeQueue
	autosave   *debouncer
	widthFlush *debouncer
	closed     bool
}

// New builds an engine holding an empty document. Call LoadDefault or
// LoadFile to populate it.
func New(opts ...Option) (*Engine, error) {
	cfg := applyOptions(opts)
	empty := Snapshot{Rows: []Row{}, Headers: []string{}, Schema: map[string]ColumnSchema{}}
	e := &Engine{
		cfg:        cfg,
		logger:     cfg.logger,
		classifier: newClassifier(cfg.constrained, cfg.enumThreshold),
		emitter:    activity.NewEmitter(cfg.hooks, cfg.activity),
		history:    NewHistory(cfg.historyDepth),
		current:    empty,
		committed:  empty,
		transient:  map[cellRef]struct{}{},
		widths:     map[string]int{},
	}
	if len(cfg.rules) > 0 {
		checkerOpts := append([]rules.CheckerOption{rules.WithLogger(rules.SlogLogger(cfg.logger))}, cfg.ruleOptions...)
		checker, err := rules.NewChecker(cfg.rules, checkerOpts...)
		if err != nil {
			return nil, fmt.Errorf("csvdoc: compile rules: %w", err)
		}
		e.checker = checker
	}
	e.queue = newWriteQueue(e.persistFailed)
	e.autosave = newDebouncer(cfg.scheduler, cfg.autosaveDelay, e.autosaveDocument)
	e.widthFlush = newDebouncer(cfg.scheduler, cfg.widthFlushDelay, e.flushWidths)
	return e, nil
}

// LoadDefault restores the stored document and schema, reconciling their
// headers (schema headers first, then document-only headers). When no
// document is stored the default CSV is loaded instead. Storage failures are
// logged and treated as missing data. History is reset.
func (e *Engine) LoadDefault(ctx context.Context) error {
	docRef := state.DocumentRef(e.cfg.document)
	schemaRef := state.SchemaRef(e.cfg.document)

	var (
		doc      DocumentRecord
		docOK    bool
		schema   SchemaRecord
		schemaOK bool
	)
	// partitions restore independently; one failing must not cancel the other
	var g errgroup.Group
	g.Go(func() error {
		record, _, ok, err := e.cfg.documents.Load(ctx, docRef)
		if err != nil {
			return fmt.Errorf("load %s: %w", docRef, err)
		}
		doc, docOK = record, ok
		return nil
	})
	g.Go(func() error {
		record, _, ok, err := e.cfg.schemas.Load(ctx, schemaRef)
		if err != nil {
			return fmt.Errorf("load %s: %w", schemaRef, err)
		}
		schema, schemaOK = record, ok
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("restore failed, continuing with available data", "document", e.cfg.document, "error", err)
		e.emit(activity.BuildPersistFailedEvent(activity.DocumentEventInput{
			Document:   e.cfg.document,
			Action:     "restore",
			Err:        err,
			OccurredAt: e.cfg.clock(),
		}))
	}

	restored := docOK
	var docHeaders []string
	var rows []Row
	if restored {
		docHeaders, rows = doc.Headers, doc.rows(e.cfg.newID)
	} else if strings.TrimSpace(e.cfg.defaultCSV) != "" {
		headers, parsed, err := parse(e.cfg.defaultCSV, e.cfg.newID)
		if err != nil {
			return fmt.Errorf("csvdoc: load default document: %w", err)
		}
		docHeaders, rows = headers, parsed
	}

	var persisted map[string]ColumnSchema
	var schemaHeaders []string
	var storedWidths map[string]int
	if schemaOK {
		persisted, schemaHeaders, storedWidths = schema.schema(), schema.Headers, schema.ColumnWidths
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	headers := MergeHeaders(schemaHeaders, docHeaders)
	next := Snapshot{
		Rows:    backfill(rows, headers),
		Headers: headers,
		Schema:  e.classifier.BuildSchema(headers, rows, persisted),
	}
	if next.Rows == nil {
		next.Rows = []Row{}
	}
	e.widths = mergeWidths(headers, storedWidths)
	e.history.Reset()
	e.installLocked(next)
	e.enqueueSchemaLocked()
	e.autosave.Trigger()
	input := e.eventInput(change{action: "load_default"}, next)
	e.mu.Unlock()

	e.logger.Info("document loaded", "document", e.cfg.document, "restored", restored, "rows", len(next.Rows), "columns", len(headers))
	if restored {
		e.emit(activity.BuildDocumentRestoredEvent(input))
	} else {
		e.emit(activity.BuildDocumentLoadedEvent(input))
	}
	return nil
}

// LoadFile parses text and commits it as the new document. Incoming headers
// come first, followed by columns only the current schema knows; those are
// backfilled with "". A parse error leaves the engine untouched.
func (e *Engine) LoadFile(text string) error {
	headers, rows, err := parse(text, e.cfg.newID)
	if err != nil {
		return err
	}
	return e.apply(func() (activity.Event, error) {
		merged := MergeHeaders(headers, e.current.Headers)
		next := Snapshot{
			Rows:    backfill(rows, merged),
			Headers: merged,
			Schema:  e.classifier.BuildSchema(merged, rows, e.current.Schema),
		}
		if next.Rows == nil {
			next.Rows = []Row{}
		}
		e.commitLocked(next)
		return activity.BuildDocumentLoadedEvent(e.eventInput(change{action: "load_file"}, next)), nil
	})
}

// EditCell sets one cell. With commit false the edit is transient: it is
// visible and autosaved but not recorded in history, and constrained columns
// do not learn the value until a later commit. Committed values are trimmed.
func (e *Engine) EditCell(rowID, column, value string, commit bool) error {
	const op = "edit_cell"
	return e.apply(func() (activity.Event, error) {
		idx := e.current.RowIndex(rowID)
		if idx < 0 {
			return activity.Event{}, invalid(op, column, rowID, ErrUnknownRow)
		}
		if !e.current.HasHeader(column) {
			return activity.Event{}, invalid(op, column, rowID, ErrUnknownColumn)
		}
		if commit {
			value = strings.TrimSpace(value)
		}
		rows := slices.Clone(e.current.Rows)
		row := rows[idx].clone()
		row.Values[column] = value
		rows[idx] = row
		next := e.current.withRows(rows)

		if !commit {
			e.current = next
			e.transient[cellRef{row: rowID, column: column}] = struct{}{}
			e.autosave.Trigger()
			return activity.Event{}, nil
		}
		// the prior value is the last committed one, not a pending keystroke
		var old string
		if i := e.committed.RowIndex(rowID); i >= 0 {
			old = e.committed.Rows[i].Values[column]
		}
		e.commitLocked(next, cellRef{row: rowID, column: column})
		return e.committedEvent(change{action: op, rowID: rowID, column: column, oldValue: old, newValue: value}), nil
	})
}

// AddRow appends a row built from values and returns its ID. Columns missing
// from values are "".
func (e *Engine) AddRow(values map[string]string) (string, error) {
	const op = "add_row"
	var id string
	err := e.apply(func() (activity.Event, error) {
		clean, err := e.rowValuesLocked(op, "", values, true)
		if err != nil {
			return activity.Event{}, err
		}
		id = e.cfg.newID()
		full := make(map[string]string, len(e.current.Headers))
		touched := make([]cellRef, 0, len(clean))
		for _, name := range e.current.Headers {
			full[name] = clean[name]
			if _, ok := clean[name]; ok {
				touched = append(touched, cellRef{row: id, column: name})
			}
		}
		rows := append(slices.Clone(e.current.Rows), Row{ID: id, Values: full})
		next := e.current.withRows(rows)
		e.commitLocked(next, touched...)
		return e.committedEvent(change{action: op, rowID: id}), nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// EditRow applies a partial update to one row as a single commit.
func (e *Engine) EditRow(rowID string, values map[string]string) error {
	const op = "edit_row"
	return e.apply(func() (activity.Event, error) {
		idx := e.current.RowIndex(rowID)
		if idx < 0 {
			return activity.Event{}, invalid(op, "", rowID, ErrUnknownRow)
		}
		clean, err := e.rowValuesLocked(op, rowID, values, false)
		if err != nil {
			return activity.Event{}, err
		}
		rows := slices.Clone(e.current.Rows)
		row := rows[idx].clone()
		touched := make([]cellRef, 0, len(clean))
		for name, value := range clean {
			row.Values[name] = value
			touched = append(touched, cellRef{row: rowID, column: name})
		}
		rows[idx] = row
		e.commitLocked(e.current.withRows(rows), touched...)
		return e.committedEvent(change{action: op, rowID: rowID}), nil
	})
}

// RemoveRow deletes one row as an undoable commit. Its ID is never reused.
func (e *Engine) RemoveRow(rowID string) error {
	const op = "remove_row"
	return e.apply(func() (activity.Event, error) {
		idx := e.current.RowIndex(rowID)
		if idx < 0 {
			return activity.Event{}, invalid(op, "", rowID, ErrUnknownRow)
		}
		rows := slices.Delete(slices.Clone(e.current.Rows), idx, idx+1)
		e.commitLocked(e.current.withRows(rows))
		return e.committedEvent(change{action: op, rowID: rowID}), nil
	})
}

// ClearRows removes every row, keeping headers and schema.
func (e *Engine) ClearRows() error {
	return e.apply(func() (activity.Event, error) {
		e.commitLocked(e.current.withRows([]Row{}))
		return e.committedEvent(change{action: "clear_rows"}), nil
	})
}

// AddColumn appends a column and backfills every row with "". Designated
// columns are constrained regardless of the constrained argument;
// initialOptions only apply to constrained columns.
func (e *Engine) AddColumn(name string, constrained bool, initialOptions []string) error {
	const op = "add_column"
	name = strings.TrimSpace(name)
	return e.apply(func() (activity.Event, error) {
		if name == "" {
			return activity.Event{}, invalid(op, "", "", ErrEmptyName)
		}
		if e.current.HasHeader(name) {
			return activity.Event{}, invalid(op, name, "", ErrDuplicateColumn)
		}
		constrained = constrained || e.classifier.isDesignated(name)
		column := ColumnSchema{Allowed: OptionSet{}}
		if constrained {
			column = ColumnSchema{Constrained: true, Allowed: NewOptionSet(initialOptions...)}
		}
		rows := make([]Row, len(e.current.Rows))
		for i, row := range e.current.Rows {
			clone := row.clone()
			clone.Values[name] = ""
			rows[i] = clone
		}
		next := e.current.withSchemaEntry(name, column)
		next.Headers = append(slices.Clone(e.current.Headers), name)
		next.Rows = rows
		e.commitLocked(next)
		return e.committedEvent(change{action: op, column: name, newValue: column.Options()}), nil
	})
}

// RemoveColumn drops a column from the headers, the schema and every row.
func (e *Engine) RemoveColumn(name string) error {
	const op = "remove_column"
	return e.apply(func() (activity.Event, error) {
		if !e.current.HasHeader(name) {
			return activity.Event{}, invalid(op, name, "", ErrUnknownColumn)
		}
		headers := slices.DeleteFunc(slices.Clone(e.current.Headers), func(h string) bool { return h == name })
		schema := maps.Clone(e.current.Schema)
		delete(schema, name)
		rows := make([]Row, len(e.current.Rows))
		for i, row := range e.current.Rows {
			clone := row.clone()
			delete(clone.Values, name)
			rows[i] = clone
		}
		e.commitLocked(Snapshot{Rows: rows, Headers: headers, Schema: schema})
		return e.committedEvent(change{action: op, column: name}), nil
	})
}

// ReplaceColumnOptions replaces a constrained column's allowed values. Values
// are trimmed, blanks dropped and duplicates merged; an empty result is
// rejected.
func (e *Engine) ReplaceColumnOptions(name string, options []string) error {
	const op = "replace_options"
	return e.apply(func() (activity.Event, error) {
		column, ok := e.current.Schema[name]
		if !ok || !e.current.HasHeader(name) {
			return activity.Event{}, invalid(op, name, "", ErrUnknownColumn)
		}
		if !column.Constrained {
			return activity.Event{}, invalid(op, name, "", ErrNotConstrained)
		}
		allowed := NewOptionSet(options...)
		if allowed.Len() == 0 {
			return activity.Event{}, invalid(op, name, "", ErrEmptyOptions)
		}
		next := e.current.withSchemaEntry(name, ColumnSchema{Constrained: true, Allowed: allowed})
		e.commitLocked(next)
		return e.committedEvent(change{action: op, column: name, oldValue: column.Options(), newValue: allowed.Sorted()}), nil
	})
}

// SetColumnWidth records a display width, clamped to MinColumnWidth. Widths
// are not part of history; the schema partition is written once adjustments
// pause for the width flush delay.
func (e *Engine) SetColumnWidth(name string, width int) error {
	const op = "set_width"
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !e.current.HasHeader(name) {
		return invalid(op, name, "", ErrUnknownColumn)
	}
	if width <= 0 {
		return invalid(op, name, "", ErrInvalidWidth)
	}
	e.widths[name] = clampWidth(width)
	e.widthFlush.Trigger()
	return nil
}

// Undo restores the previous committed snapshot, discarding pending
// transient edits. It reports false when there is nothing to undo.
func (e *Engine) Undo() bool {
	return e.travel(e.history.Undo, activity.BuildDocumentUndoneEvent, "undo")
}

// Redo reapplies the most recently undone snapshot. It reports false when
// there is nothing to redo.
func (e *Engine) Redo() bool {
	return e.travel(e.history.Redo, activity.BuildDocumentRedoneEvent, "redo")
}

func (e *Engine) travel(step func(Snapshot) (Snapshot, bool), build func(activity.DocumentEventInput) activity.Event, action string) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	target, ok := step(e.committed)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.installLocked(target)
	e.enqueueSchemaLocked()
	e.autosave.Trigger()
	event := build(e.eventInput(change{action: action}, target))
	e.mu.Unlock()
	e.emit(event)
	return true
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// HistoryLen reports the undo and redo stack sizes.
func (e *Engine) HistoryLen() (past, future int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Len()
}

// ExportText serialises the visible document.
func (e *Engine) ExportText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Serialize(e.current.Rows, e.current.Headers)
}

// ExportFilename names an export taken at now.
func (e *Engine) ExportFilename(now time.Time) string {
	return ExportFilename(e.cfg.exportPrefix, now)
}

// Snapshot returns a deep copy of the visible document.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Headers returns the visible header list.
func (e *Engine) Headers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.current.Headers)
}

// Row returns a copy of one row.
func (e *Engine) Row(id string) (Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.current.RowIndex(id)
	if idx < 0 {
		return Row{}, false
	}
	return e.current.Rows[idx].clone(), true
}

// Column returns a copy of one column's schema.
func (e *Engine) Column(name string) (ColumnSchema, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	column, ok := e.current.Schema[name]
	if !ok {
		return ColumnSchema{}, false
	}
	return column.clone(), true
}

// RequiredColumns lists the configured required columns that are visible.
func (e *Engine) RequiredColumns() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.cfg.required))
	for _, name := range e.cfg.required {
		if e.current.HasHeader(name) {
			out = append(out, name)
		}
	}
	return out
}

// Widths returns the width of every visible column.
func (e *Engine) Widths() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return mergeWidths(e.current.Headers, e.widths)
}

// Check runs the configured rules against every visible row.
func (e *Engine) Check(ctx context.Context) ([]Violation, error) {
	e.mu.Lock()
	snap := e.current
	e.mu.Unlock()
	if e.checker == nil {
		return nil, nil
	}
	inputs := make([]rules.Input, len(snap.Rows))
	for i, row := range snap.Rows {
		inputs[i] = rules.Input{ID: row.ID, Values: row.Values}
	}
	return e.checker.Check(ctx, inputs)
}

// Flush writes both partitions now and waits for every queued write.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.autosave.Cancel()
		e.widthFlush.Cancel()
		e.enqueueDocumentLocked()
		e.enqueueSchemaLocked()
	}
	e.mu.Unlock()
	return e.queue.Wait(ctx)
}

// Close stops pending timers, writes both partitions and drains the write
// queue. Later mutations return ErrClosed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.autosave.Cancel()
	e.widthFlush.Cancel()
	e.enqueueDocumentLocked()
	e.enqueueSchemaLocked()
	e.closed = true
	e.mu.Unlock()
	return e.queue.Close(ctx)
}

func (e *Engine) apply(fn func() (activity.Event, error)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	event, err := fn()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if event.Verb != "" {
		e.emit(event)
	}
	return nil
}

func (e *Engine) committedEvent(c change) activity.Event {
	return activity.BuildDocumentCommittedEvent(e.eventInput(c, e.current))
}

// commitLocked records the last committed snapshot, installs next and
// schedules persistence. touched cells, plus any pending transient cells,
// feed their values into constrained columns' allowed sets.
func (e *Engine) commitLocked(next Snapshot, touched ...cellRef) {
	for cell := range e.transient {
		touched = append(touched, cell)
	}
	next = growAllowed(next, touched)
	e.history.Push(e.committed)
	e.installLocked(next)
	e.enqueueSchemaLocked()
	e.autosave.Trigger()
}

func (e *Engine) installLocked(next Snapshot) {
	e.current = next
	e.committed = next
	clear(e.transient)
	for _, name := range next.Headers {
		if _, ok := e.widths[name]; !ok {
			e.widths[name] = DefaultColumnWidth
		}
	}
	referenced := make(map[string]struct{}, len(next.Headers))
	for _, name := range next.Headers {
		referenced[name] = struct{}{}
	}
	e.history.headerSet(referenced)
	for name := range e.widths {
		if _, ok := referenced[name]; !ok {
			delete(e.widths, name)
		}
	}
}

// growAllowed adds the non-blank values of cells in constrained columns to
// their allowed sets. Sets are cloned before they change.
func growAllowed(next Snapshot, cells []cellRef) Snapshot {
	var index map[string]int
	grown := map[string]OptionSet{}
	for _, cell := range cells {
		column, ok := next.Schema[cell.column]
		if !ok || !column.Constrained {
			continue
		}
		if index == nil {
			index = make(map[string]int, len(next.Rows))
			for i, row := range next.Rows {
				index[row.ID] = i
			}
		}
		i, ok := index[cell.row]
		if !ok {
			continue
		}
		value := strings.TrimSpace(next.Rows[i].Values[cell.column])
		if value == "" {
			continue
		}
		set, cloned := grown[cell.column]
		if !cloned {
			if column.Allowed.Has(value) {
				continue
			}
			set = column.Allowed.Clone()
		}
		set.add(value)
		grown[cell.column] = set
	}
	for name, set := range grown {
		next = next.withSchemaEntry(name, ColumnSchema{Constrained: true, Allowed: set})
	}
	return next
}

// rowValuesLocked trims values and validates columns and required fields.
// With requireAll every required column must be present and non-blank;
// otherwise only the provided ones are checked.
func (e *Engine) rowValuesLocked(op, rowID string, values map[string]string, requireAll bool) (map[string]string, error) {
	clean := make(map[string]string, len(values))
	for name, value := range values {
		if !e.current.HasHeader(name) {
			return nil, invalid(op, name, rowID, ErrUnknownColumn)
		}
		clean[name] = strings.TrimSpace(value)
	}
	for _, name := range e.cfg.required {
		if !e.current.HasHeader(name) {
			continue
		}
		value, provided := clean[name]
		if !provided && !requireAll {
			continue
		}
		if value == "" {
			return nil, invalid(op, name, rowID, ErrRequiredValue)
		}
	}
	return clean, nil
}

func (e *Engine) enqueueSchemaLocked() {
	record := schemaRecord(e.current, e.widths)
	ref := state.SchemaRef(e.cfg.document)
	store := e.cfg.schemas
	e.queue.Enqueue(writeJob{
		key: string(state.PartitionSchema),
		run: func(ctx context.Context) error {
			_, err := store.Save(ctx, ref, record, state.Meta{SnapshotID: uuid.NewString()})
			return err
		},
	})
}

func (e *Engine) enqueueDocumentLocked() {
	record := documentRecord(e.current)
	ref := state.DocumentRef(e.cfg.document)
	store := e.cfg.documents
	e.queue.Enqueue(writeJob{
		key: string(state.PartitionDocument),
		run: func(ctx context.Context) error {
			_, err := store.Save(ctx, ref, record, state.Meta{SnapshotID: uuid.NewString()})
			return err
		},
	})
}

func (e *Engine) autosaveDocument() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.enqueueDocumentLocked()
}

func (e *Engine) flushWidths() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.enqueueSchemaLocked()
}

// persistFailed runs on the writer goroutine. Memory is never rolled back.
func (e *Engine) persistFailed(partition string, err error) {
	e.logger.Warn("persist failed", "document", e.cfg.document, "partition", partition, "error", err)
	e.emit(activity.BuildPersistFailedEvent(activity.DocumentEventInput{
		Document:   e.cfg.document,
		Action:     "persist",
		Partition:  partition,
		Err:        err,
		OccurredAt: e.cfg.clock(),
	}))
}
