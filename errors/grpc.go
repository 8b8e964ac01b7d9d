package errors

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "contacts.contact-lab"

const (
	ReasonValidationFailed = "VALIDATION_FAILED"
	ReasonDuplicateEmail   = "DUPLICATE_EMAIL"
	ReasonStoreUnavailable = "STORE_UNAVAILABLE"
)

// MapToGRPCError converts a service error into a gRPC status.
// Every known kind carries an ErrorInfo reason so that clients never confuse
// a server-reported failure with a broken connection.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		badRequest := &errdetails.BadRequest{}
		for _, field := range validationErr.FieldNames() {
			badRequest.FieldViolations = append(badRequest.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       field,
				Description: validationErr.Fields[field],
			})
		}
		st := status.New(codes.InvalidArgument, ErrValidationFailed.Error())
		detailed, detailErr := st.WithDetails(errorInfo(ReasonValidationFailed), badRequest)
		if detailErr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.Is(err, ErrDuplicateEmail):
		return withReason(codes.AlreadyExists, ErrDuplicateEmail.Error(), ReasonDuplicateEmail)
	case errors.Is(err, ErrStoreUnavailable):
		return withReason(codes.Unavailable, ErrStoreUnavailable.Error(), ReasonStoreUnavailable)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// FromGRPCError is the client side of MapToGRPCError.
// Statuses without a known reason and with a transport code become ErrNetworkUnavailable.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	var reason string
	fields := FieldErrors{}
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() == errorDomain {
				reason = d.GetReason()
			}
		case *errdetails.BadRequest:
			for _, violation := range d.GetFieldViolations() {
				fields[violation.GetField()] = violation.GetDescription()
			}
		}
	}

	switch reason {
	case ReasonValidationFailed:
		return &ValidationError{Fields: fields}
	case ReasonDuplicateEmail:
		return ErrDuplicateEmail
	case ReasonStoreUnavailable:
		return ErrStoreUnavailable
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrNetworkUnavailable, st.Message())
	default:
		return err
	}
}

func withReason(code codes.Code, message, reason string) error {
	st := status.New(code, message)
	detailed, err := st.WithDetails(errorInfo(reason))
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func errorInfo(reason string) *errdetails.ErrorInfo {
	return &errdetails.ErrorInfo{Reason: reason, Domain: errorDomain}
}
