package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "kittyd"

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether any error in err's chain carries this code.
func (c Code[MT]) Is(err error) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

// Unwrap exposes the cause so that errors.Is/As reach collaborator errors.
func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

// GRPCStatus lets status.Convert map the error to its grpc code, with the
// code name and metadata attached as ErrorInfo details.
func (e *ErrorImpl[MT]) GRPCStatus() *status.Status {
	st := status.New(e.code.GrpcCode, e.Error())

	stWithDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   e.code.Name,
		Domain:   errorDomain,
		Metadata: e.Metadata(),
	})
	if err != nil {
		return st
	}
	return stWithDetails
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type AssetMetadata struct {
	AssetId string `json:"asset_id"`
}

type OwnerMetadata struct {
	AssetId string `json:"asset_id"`
	Owner   string `json:"owner"`
	Caller  string `json:"caller"`
}

type CountMetadata struct {
	Scope string `json:"scope"`
	Count uint64 `json:"count"`
}

type PriceMetadata struct {
	AssetId  string `json:"asset_id"`
	Price    uint64 `json:"price"`
	MaxPrice uint64 `json:"max_price"`
}

type PaymentMetadata struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type InvariantMetadata struct {
	AssetId string `json:"asset_id"`
	Scope   string `json:"scope"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var ASSET_NOT_FOUND = Code[AssetMetadata]{1, "ASSET_NOT_FOUND", grpccodes.NotFound}

var ASSET_ALREADY_EXISTS = Code[AssetMetadata]{
	2,
	"ASSET_ALREADY_EXISTS",
	grpccodes.AlreadyExists,
}
var NOT_OWNER = Code[OwnerMetadata]{3, "NOT_OWNER", grpccodes.PermissionDenied}
var ALREADY_OWNER = Code[OwnerMetadata]{4, "ALREADY_OWNER", grpccodes.FailedPrecondition}
var COUNT_OVERFLOW = Code[CountMetadata]{5, "COUNT_OVERFLOW", grpccodes.ResourceExhausted}
var COUNT_UNDERFLOW = Code[CountMetadata]{6, "COUNT_UNDERFLOW", grpccodes.FailedPrecondition}
var NOT_FOR_SALE = Code[AssetMetadata]{7, "NOT_FOR_SALE", grpccodes.FailedPrecondition}

var PRICE_EXCEEDS_LIMIT = Code[PriceMetadata]{
	8,
	"PRICE_EXCEEDS_LIMIT",
	grpccodes.FailedPrecondition,
}
var PAYMENT_FAILED = Code[PaymentMetadata]{9, "PAYMENT_FAILED", grpccodes.FailedPrecondition}

var INVARIANT_VIOLATION = Code[InvariantMetadata]{
	10,
	"INVARIANT_VIOLATION",
	grpccodes.DataLoss,
}
var UNAUTHENTICATED = Code[any]{11, "UNAUTHENTICATED", grpccodes.Unauthenticated}
var INVALID_ARGUMENT = Code[map[string]any]{12, "INVALID_ARGUMENT", grpccodes.InvalidArgument}
