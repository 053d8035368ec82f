package models

import "errors"

// ProductionStatus is the per-record state machine state.
// Pending -> InProgress -> {Paused <-> InProgress} -> PendingQC.
// PendingQC is effectively terminal until a QC correction reopens the record.
type ProductionStatus string

const (
	ProductionStatusPending    ProductionStatus = "Pending"
	ProductionStatusInProgress ProductionStatus = "InProgress"
	ProductionStatusPaused     ProductionStatus = "Paused"
	ProductionStatusPendingQC  ProductionStatus = "PendingQC"
)

func (s ProductionStatus) IsValid() bool {
	switch s {
	case ProductionStatusPending, ProductionStatusInProgress, ProductionStatusPaused, ProductionStatusPendingQC:
		return true
	}
	return false
}

type ProductionLogAction string

const (
	ProductionLogActionStart  ProductionLogAction = "Start"
	ProductionLogActionPause  ProductionLogAction = "Pause"
	ProductionLogActionResume ProductionLogAction = "Resume"
	ProductionLogActionStop   ProductionLogAction = "Stop"
)

func (a *ProductionLogAction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Start":
		*a = ProductionLogActionStart
	case "Pause":
		*a = ProductionLogActionPause
	case "Resume":
		*a = ProductionLogActionResume
	case "Stop":
		*a = ProductionLogActionStop
	default:
		return errors.New("invalid production log action")
	}
	return nil
}

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOperator UserRole = "O"
)
