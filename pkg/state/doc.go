// Package state defines the persistence-facing contracts used by the csvdoc
// engine to load and save its two storage partitions, plus a small in-memory
// Store and the codec used by byte-oriented backends.
//
// Responsibilities:
//   - Store[T] only loads/saves a single record for a single Ref.
//   - Ref names one partition of one document. The document partition holds
//     transient row content and is replaced wholesale on file loads; the
//     schema partition holds headers, column definitions and widths and
//     survives file loads.
//   - Codec[T] turns records into bytes for backends that do not hold Go
//     values (see badgerstore and sqlitestore).
//
// Data flow:
//
//	engine commit -> write queue -> Store.Save(Ref{schema}) ...
//	engine autosave (debounced) -> Store.Save(Ref{document}) ...
//	LoadDefault -> Store.Load(both) -> reconcile -> Snapshot
//
// The two partitions are written at different times and may disagree on disk
// for a short while. Readers must reconcile whatever they find instead of
// assuming both partitions describe the same headers.
package state
