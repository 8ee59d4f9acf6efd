package domain

// RawDocument is the unparsed content of one artefact.
// It is the input to normalisation.
type RawDocument struct {
	// URI is the original location (artefact path or URL).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata carries provenance copied onto the normalised document.
	Metadata map[string]any
}
