package models

// ProductionErrorCode names the unmet precondition (or missing resource) so
// callers can react without parsing the message. Callers must re-fetch state
// before retrying a precondition failure.
type ProductionErrorCode string

const (
	CodeAlreadyStarted         ProductionErrorCode = "AlreadyStarted"
	CodeNotStarted             ProductionErrorCode = "NotStarted"
	CodeAlreadyStopped         ProductionErrorCode = "AlreadyStopped"
	CodeAlreadyPaused          ProductionErrorCode = "AlreadyPaused"
	CodeNotPaused              ProductionErrorCode = "NotPaused"
	CodePlannedQuantityReached ProductionErrorCode = "PlannedQuantityReached"
	CodeProductNotInRecord     ProductionErrorCode = "ProductNotInRecord"
	CodeNotFound               ProductionErrorCode = "NotFound"
	CodeInvariantViolation     ProductionErrorCode = "InvariantViolation"
)

type ProductionError struct {
	Code    ProductionErrorCode
	Message string
}

func (e *ProductionError) Error() string {
	return e.Message
}

var (
	ErrAlreadyStarted         = &ProductionError{CodeAlreadyStarted, "production has already been started"}
	ErrNotStarted             = &ProductionError{CodeNotStarted, "production has not been started"}
	ErrAlreadyStopped         = &ProductionError{CodeAlreadyStopped, "production has already been stopped"}
	ErrAlreadyPaused          = &ProductionError{CodeAlreadyPaused, "production is already paused"}
	ErrNotPaused              = &ProductionError{CodeNotPaused, "production is not paused"}
	ErrPlannedQuantityReached = &ProductionError{CodePlannedQuantityReached, "planned quantity already reached"}
	ErrProductNotInRecord     = &ProductionError{CodeProductNotInRecord, "product is not part of this production record"}
	ErrProductionNotFound     = &ProductionError{CodeNotFound, "production record not found"}
	ErrJobOrderNotFound       = &ProductionError{CodeNotFound, "job order not found"}
	ErrDowntimeNotFound       = &ProductionError{CodeNotFound, "downtime entry not found"}
	ErrQCCheckNotFound        = &ProductionError{CodeNotFound, "qc check not found"}
	ErrQCInvariantViolation   = &ProductionError{CodeInvariantViolation, "rejected + recycled would exceed achieved quantity"}
)
