package core

import "errors"

// Error kinds, wrapped with %w at the failure site and classified with
// errors.Is by the batch orchestrator. Validation, fetch, parse and
// restructure failures abort the current job; download, capture and upload
// failures degrade (recorded gap or null screenshot URL); enrichment
// failures leave the original artifacts intact.
var (
	ErrValidation = errors.New("validation failed")
	ErrFetch      = errors.New("fetch failed")
	ErrParse      = errors.New("parse failed")
	ErrDownload   = errors.New("image download failed")
	ErrCapture    = errors.New("screenshot capture failed")
	ErrUpload     = errors.New("upload failed")
	ErrEnrichment = errors.New("enrichment failed")
)
