// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request validation
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeSquadSizeInvalid Code = "SQUAD_SIZE_INVALID"

	// Economy and progression
	CodeInsufficientResources Code = "INSUFFICIENT_RESOURCES"
	CodeGatingViolation       Code = "GATING_VIOLATION"

	// Roster
	CodeRosterFull           Code = "ROSTER_FULL"
	CodeCharacterNotIdle     Code = "CHARACTER_NOT_IDLE"
	CodeRecruitCooldown      Code = "RECRUIT_COOLDOWN"
	CodeTraitSlotsExhausted  Code = "TRAIT_SLOTS_EXHAUSTED"
	CodeTraitAlreadyAssigned Code = "TRAIT_ALREADY_ASSIGNED"

	// Raid lifecycle
	CodeInvalidState Code = "INVALID_STATE"

	// Storage
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Auth
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidArgument,
		CodeSquadSizeInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeInsufficientResources,
		CodeGatingViolation,
		CodeRosterFull,
		CodeCharacterNotIdle,
		CodeTraitSlotsExhausted,
		CodeTraitAlreadyAssigned,
		CodeInvalidState:
		return codes.FailedPrecondition

	case CodeRecruitCooldown:
		return codes.ResourceExhausted

	case CodeNotFound:
		return codes.NotFound

	case CodeAlreadyExists:
		return codes.AlreadyExists

	case CodeUnauthorized,
		CodeInvalidCredentials:
		return codes.Unauthenticated

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
