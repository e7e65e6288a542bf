package stage

import "strings"

// Error codes reported in [Result] error lists. Codes with a subject are
// formatted as "CODE:subject".
const (
	CodeUnrecognizedIntent      = "UNRECOGNIZED_INTENT"
	CodeLowConfidence           = "LOW_CONFIDENCE"
	CodeMissingSlot             = "MISSING_SLOT"
	CodeUnitMismatch            = "UNIT_MISMATCH"
	CodeInvalidValue            = "INVALID_VALUE"
	CodeUnknownAsset            = "UNKNOWN_ASSET"
	CodeAssetSourceUnavailable  = "ASSET_SOURCE_UNAVAILABLE"
	CodeNoTemplateForIntent     = "NO_TEMPLATE_FOR_INTENT"
	CodeSyntaxGenerationFailure = "SYNTAX_GENERATION_FAILURE"
	CodeDeckValidationFailure   = "DECK_VALIDATION_FAILURE"
	CodeCancelled               = "CANCELLED"

	// CodeInternal replaces internal-consistency codes in caller-facing
	// error lists.
	CodeInternal = "INTERNAL_ERROR"
)

// InternalMessage is the caller-facing text for internal-consistency errors.
const InternalMessage = CodeInternal + ": internal error, please retry"

// MissingSlot formats a MISSING_SLOT error for slot name.
func MissingSlot(name string) string { return CodeMissingSlot + ":" + name }

// InvalidValue formats an INVALID_VALUE error for slot name.
func InvalidValue(name string) string { return CodeInvalidValue + ":" + name }

// UnknownAsset formats an UNKNOWN_ASSET error for asset name.
func UnknownAsset(name string) string { return CodeUnknownAsset + ":" + name }

// Code returns the code part of an error string, dropping any subject.
func Code(err string) string {
	code, _, _ := strings.Cut(err, ":")
	return code
}

// IsInternal reports whether err is an internal-consistency error that must
// not be shown verbatim to users.
func IsInternal(err string) bool {
	switch Code(err) {
	case CodeNoTemplateForIntent, CodeSyntaxGenerationFailure:
		return true
	}
	return false
}

// Well-known metadata keys.
const (
	MetaRecognizer          = "recognizer"
	MetaClarificationPrompt = "clarification_prompt"
	MetaIgnoredTokens       = "ignored_tokens"
	MetaDiff                = "diff"
	MetaDuration            = "duration"
)
