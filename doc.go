// Package csvdoc is the document state and history engine behind a tabular
// annotation editor.
//
// An Engine owns the authoritative snapshot of a CSV document: its rows, its
// ordered header list and its column schema (which columns are constrained to
// an allowed-value set, and what that set is). Every committed mutation
// installs a new immutable snapshot and records the previous one for undo.
//
// The engine keeps two storage partitions in sync through a state.Store:
//
//   - document: headers and rows, written on a short debounce after edits.
//     Loading a new file replaces it.
//   - schema: headers, column definitions and column widths, written at every
//     commit, undo and redo. It survives new file loads and is merged with the
//     incoming headers.
//
// Writes are fire-and-forget. The in-memory snapshot is always the source of
// truth; a failed write is logged and reported to activity hooks but never
// rolls back the session. Because the partitions are written at different
// times they may disagree on disk, so loading always reconciles both.
//
// Minimal usage:
//
//	documents := state.NewMemoryStore[csvdoc.DocumentRecord]()
//	schemas := state.NewMemoryStore[csvdoc.SchemaRecord]()
//	engine, err := csvdoc.New(csvdoc.WithStores(documents, schemas))
//	if err != nil {
//		return err
//	}
//	defer engine.Close(ctx)
//	if err := engine.LoadDefault(ctx); err != nil {
//		return err
//	}
//	_ = engine.EditCell(rowID, "Modality", "Realis", true)
//	engine.Undo()
package csvdoc
