package admission

import (
	"fmt"
	"strings"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

type Reason string

const (
	ReasonMissingFile    Reason = "file is required"
	ReasonDisallowedType Reason = "unsupported declared type"
	ReasonTooLarge       Reason = "file too large"
	ReasonTruncated      Reason = "invalid image: buffer too short"
	ReasonUnrecognized   Reason = "unrecognized format"
	ReasonTypeMismatch   Reason = "type mismatch"
)

const DefaultMaxSize int64 = 10 * 1024 * 1024

var allowedTypes = map[string]entity.ImageFormat{
	entity.FormatJPEG.MimeType(): entity.FormatJPEG,
	entity.FormatPNG.MimeType():  entity.FormatPNG,
	entity.FormatGIF.MimeType():  entity.FormatGIF,
	entity.FormatWebP.MimeType(): entity.FormatWebP,
}

// Result is the outcome of one admission check.
type Result struct {
	Accepted      bool
	SniffedFormat entity.ImageFormat
	Variant       string
	Reason        Reason
}

type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("admission rejected: %s", e.Reason)
}

// Payload is an upload that passed admission. It can only be obtained from Admit.
type Payload struct {
	data     []byte
	mimeType string
	format   entity.ImageFormat
}

func (p Payload) Bytes() []byte              { return p.data }
func (p Payload) Size() int64                { return int64(len(p.data)) }
func (p Payload) MimeType() string           { return p.mimeType }
func (p Payload) Format() entity.ImageFormat { return p.format }

// Validator checks uploads on the untrusted boundary. It has no side effects.
type Validator struct {
	maxSize int64
}

func New(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Validator{maxSize: maxSize}
}

func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// ValidateMetadata runs the checks that need no bytes: declared type allow-list and size.
func (v *Validator) ValidateMetadata(declaredType string, size int64) Result {
	if size <= 0 {
		return reject(ReasonMissingFile)
	}

	if _, ok := allowedTypes[normalize(declaredType)]; !ok {
		return reject(ReasonDisallowedType)
	}

	if size > v.maxSize {
		return reject(ReasonTooLarge)
	}

	return Result{Accepted: true}
}

// Validate runs every check, cheapest first: missing file, declared type,
// size, then byte sniffing and the declared/sniffed comparison.
func (v *Validator) Validate(data []byte, declaredType string) Result {
	if data == nil {
		return reject(ReasonMissingFile)
	}

	res := v.ValidateMetadata(declaredType, int64(len(data)))
	if !res.Accepted {
		return res
	}

	if len(data) < MinSniffLen {
		return reject(ReasonTruncated)
	}

	format, variant, ok := Sniff(data)
	if !ok {
		return reject(ReasonUnrecognized)
	}

	if allowedTypes[normalize(declaredType)] != format {
		return Result{SniffedFormat: format, Variant: variant, Reason: ReasonTypeMismatch}
	}

	return Result{Accepted: true, SniffedFormat: format, Variant: variant}
}

// Admit validates data and returns the admitted payload or a *RejectionError.
func (v *Validator) Admit(data []byte, declaredType string) (Payload, error) {
	res := v.Validate(data, declaredType)
	if !res.Accepted {
		return Payload{}, &RejectionError{Reason: res.Reason}
	}

	return Payload{
		data:     data,
		mimeType: res.SniffedFormat.MimeType(),
		format:   res.SniffedFormat,
	}, nil
}

func reject(reason Reason) Result {
	return Result{Reason: reason}
}

func normalize(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return strings.ToLower(strings.TrimSpace(mimeType))
}
