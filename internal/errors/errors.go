// Package errors provides coded errors for caseprep.
//
// Codes follow the "area.operation.reason" shape; the reason suffix drives
// classification helpers such as IsInvalidInput.
package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeSourceReadFailure     Code = "retrieval.source.read.failure"
	CodeDecryptFailure        Code = "retrieval.decrypt.failure"
	CodeIndexInvalidFormat    Code = "retrieval.index.invalid_format"
	CodeMetadataInvalidFormat Code = "retrieval.metadata.invalid_format"
	CodeCorpusMisaligned      Code = "retrieval.corpus.misaligned"
	CodeModelLoadFailure      Code = "retrieval.model.load_failure"
	CodeEmbedInvalidInput     Code = "retrieval.embed.invalid_input"
	CodeEmbedFailure          Code = "retrieval.embed.failure"
	CodeQueryInvalidInput     Code = "retrieval.query.invalid_input"
	CodeStoreConfigInvalid    Code = "retrieval.config.invalid"
	CodeKeyInvalid            Code = "crypto.key.invalid"
	CodeKeyResolveFailure     Code = "crypto.key.resolve.failure"
	CodeEncryptFailure        Code = "crypto.encrypt.failure"
	CodeCasebookInvalidFormat Code = "casebook.decode.invalid_format"
	CodeCasebookNotFound      Code = "casebook.lookup.not_found"
	CodeConfigLoadReadFailure Code = "config.load.read.failure"
	CodeConfigParseInvalid    Code = "config.parse.invalid_format"
	CodeConfigValidateInvalid Code = "config.validate.invalid_value"
	CodeConfigSaveFailure     Code = "config.save.failure"
	CodeInternalFailure       Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldResource(value string) Attr {
	return Field("resource", value)
}

func FieldSource(value string) Attr {
	return Field("source", value)
}

func FieldPosition(value int) Attr {
	return Field("position", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsDecryption reports a wrong key or a tampered/corrupted ciphertext.
func IsDecryption(err error) bool {
	return HasCode(err, CodeDecryptFailure)
}

func IsIndexFormat(err error) bool {
	return HasCode(err, CodeIndexInvalidFormat)
}

func IsMetadataFormat(err error) bool {
	return HasCode(err, CodeMetadataInvalidFormat)
}

// IsMisaligned reports an index/metadata pair whose lengths differ.
func IsMisaligned(err error) bool {
	return HasCode(err, CodeCorpusMisaligned)
}

// IsFormat reports any deserialization failure of a decrypted artifact.
func IsFormat(err error) bool {
	return IsIndexFormat(err) || IsMetadataFormat(err) || IsMisaligned(err)
}

func IsModelLoad(err error) bool {
	return HasCode(err, CodeModelLoadFailure)
}

func IsEmbedding(err error) bool {
	code := CodeOf(err)
	return code == CodeEmbedInvalidInput || code == CodeEmbedFailure
}

func IsSourceRead(err error) bool {
	return HasCode(err, CodeSourceReadFailure)
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
