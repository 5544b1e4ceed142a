package models

import "strings"

// GenerateOptions are the optional rendering switches of a generation request.
// Nil fields fall back to configured defaults.
type GenerateOptions struct {
	TcyNumbers *bool `json:"tcyNumbers,omitempty"`
	TcyLatin   *bool `json:"tcyLatin,omitempty"`
	TocPage    *bool `json:"tocPage,omitempty"`
}

// GenerateRequest is the input for generating a book from a source document.
type GenerateRequest struct {
	URL             string          `json:"url"`
	Title           string          `json:"title,omitempty"`
	Author          string          `json:"author,omitempty"`
	PublicationDate string          `json:"publicationDate,omitempty"`
	Publisher       string          `json:"publisher,omitempty"`
	Issuer          string          `json:"issuer,omitempty"`
	Edition         string          `json:"edition,omitempty"`
	ColophonNotes   string          `json:"colophonNotes,omitempty"`
	Options         GenerateOptions `json:"options"`
	CoverBase64     string          `json:"coverBase64,omitempty"`
	CoverType       string          `json:"coverType,omitempty"`
}

// Normalize trims surrounding whitespace from all free-text fields so that
// whitespace-only values count as absent.
func (r *GenerateRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.PublicationDate = strings.TrimSpace(r.PublicationDate)
	r.Publisher = strings.TrimSpace(r.Publisher)
	r.Issuer = strings.TrimSpace(r.Issuer)
	r.Edition = strings.TrimSpace(r.Edition)
	r.ColophonNotes = strings.TrimSpace(r.ColophonNotes)
}

// ErrorResponse is the JSON body returned for a failed generation.
type ErrorResponse struct {
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
}
