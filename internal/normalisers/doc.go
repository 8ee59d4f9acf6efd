// Package normalisers extracts plain text from the artefacts the Ingestor
// handles. Each sub-package implements driven.Normaliser for one format and
// the Registry here dispatches on MIME type, highest priority first.
package normalisers
