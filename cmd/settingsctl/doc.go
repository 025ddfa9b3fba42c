// settingsctl loads a settings schema with stored values and optional
// project overrides, applies edits from the command line and prints the
// resulting values, the sparse override document, the flattened field
// descriptors or an OpenAPI description of the values document.
//
// Usage:
//
//	settingsctl values    --schema studio.jsonc --values studio.yaml
//	settingsctl overrides --schema studio.jsonc --values studio.yaml --overrides shot.yaml --set general.fps=24
//	settingsctl describe  --schema studio.jsonc
//	settingsctl openapi   --schema studio.jsonc --group-components
//	settingsctl trace     --schema studio.jsonc --overrides shot.yaml general.fps
//	settingsctl effective --schema studio.jsonc --store ./settings --domain render --project shot-010
package main
