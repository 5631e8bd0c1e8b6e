package models

type MovementKind string

const (
	MovementKindEntry       MovementKind = "entry"
	MovementKindExit        MovementKind = "exit"
	MovementKindTransferOut MovementKind = "transfer_out"
	MovementKindTransferIn  MovementKind = "transfer_in"
)

func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindEntry, MovementKindExit, MovementKindTransferOut, MovementKindTransferIn:
		return true
	}
	return false
}

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusRejected  TransferStatus = "rejected"
)

type InvoiceStatus string

const (
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusVoid InvoiceStatus = "void"
)

type PosSessionStatus string

const (
	PosSessionStatusOpen   PosSessionStatus = "open"
	PosSessionStatusClosed PosSessionStatus = "closed"
)

type InvoiceAuditAction string

const (
	InvoiceAuditActionCreate InvoiceAuditAction = "create"
	InvoiceAuditActionUpdate InvoiceAuditAction = "update"
	InvoiceAuditActionVoid   InvoiceAuditAction = "void"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleCashier UserRole = "cashier"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleManager, UserRoleCashier:
		return true
	}
	return false
}

const StockAlertTypeLowStock = "LOW_STOCK"
