package embedded

import (
	"fmt"

	"github.com/kasuganosora/sedna-go/pkg/driver"
)

// Error codes reported by the engine. The XQuery ones are the W3C codes,
// the SE ones follow the numbering of the Sedna server.
const (
	codeSyntax            = "XPST0003"
	codeUpdateTarget      = "XUTY0008"
	codeDocumentNotFound  = "SE2006"
	codeDocumentExists    = "SE2001"
	codeCollectionExists  = "SE2002"
	codeCollectionMissing = "SE2003"
	codeBulkLoad          = "SE2009"
	codeAuthentication    = "SE3053"
	codeNoDatabase        = "SE4200"
	codeSessionClosed     = "SE3028"
	codeTransaction       = "SE4611"
	codeStorage           = "SE4700"
)

var messages = map[string]string{
	codeSyntax:            "It is a static error if an expression is not a valid instance of the grammar defined in A.1 EBNF.",
	codeUpdateTarget:      "The target of an insert or delete is not a node of a suitable kind.",
	codeDocumentNotFound:  "There is no document with the given name.",
	codeDocumentExists:    "Document with the same name already exists.",
	codeCollectionExists:  "Collection with the same name already exists.",
	codeCollectionMissing: "There is no collection with the given name.",
	codeBulkLoad:          "Bulk load failed.",
	codeAuthentication:    "Authentication failed.",
	codeNoDatabase:        "Failed to open session.",
	codeSessionClosed:     "Session is closed.",
	codeTransaction:       "Transaction error.",
	codeStorage:           "Storage failure.",
}

// engineError is a failure with a Sedna style code and a details line.
type engineError struct {
	code    string
	details string
}

func (e *engineError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.code, messages[e.code], e.details)
}

// lastError renders e the way it is reported through Conn.LastError.
func (e *engineError) lastError() string {
	return driver.FormatError(e.code, messages[e.code], e.details)
}

func newError(code, format string, args ...any) *engineError {
	return &engineError{code: code, details: fmt.Sprintf(format, args...)}
}

// asEngineError wraps foreign errors (storage, parser) as storage failures.
func asEngineError(err error, code string) *engineError {
	if e, ok := err.(*engineError); ok {
		return e
	}
	return &engineError{code: code, details: err.Error()}
}
