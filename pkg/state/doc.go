// Package state defines persistence-facing contracts for loading and saving
// settings documents, plus a resolver that opens editable trees over them.
//
// Two document kinds are stored per domain:
//   - studio values: the full values document saved while editing defaults.
//   - project overrides: the sparse override document of one project.
//
// Data flow:
//
//	Store -> Resolver.Open -> *settings.Tree -> Resolver.Commit -> Store
//
// Runtime consumers that only need the effective values call
// Resolver.Effective, which folds defaults, studio values and project
// overrides through the layering package.
//
// Deterministic keys:
//
//	Ref.Identifier() provides the canonical storage key
//	("studio/<domain>" or "project/<project>/<domain>").
package state
