package i18n

// Error codes must match the codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeMismatch            = "PARENT_MISMATCH"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeNotFound:            "The requested {{.Entity}} was not found",
		CodeMismatch:            "The {{.Entity}} does not belong to this {{.Parent}}",
		CodeForbidden:           "You do not have access to this {{.Entity}}",
		CodeConflict:            "{{.Reason}}",
		CodeInvalidInput:        "{{.Reason}}",
		CodeUpstreamUnavailable: "The campaign service is temporarily unavailable",
	},
}
