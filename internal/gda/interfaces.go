package gda

import "github.com/google/uuid"

// TokenLedger is the adjudicator's read-only view of token balances. The
// adjudicator never moves value itself; it validates against this view and
// returns settled amounts for the caller to journal.
type TokenLedger interface {
	// BalanceOf returns the account's settled balance for a token.
	BalanceOf(token string, account uuid.UUID) int64

	// IsCriticalOrInsolvent reports whether the external solvency monitor
	// has flagged the account for this token.
	IsCriticalOrInsolvent(token string, account uuid.UUID) bool
}

// PermissionHost answers delegated-distribution ACL checks.
type PermissionHost interface {
	HasDistributePermission(operator, from uuid.UUID, poolID uuid.UUID) bool
}

// SelfOnlyPermissions denies all delegation: an operator may only distribute
// from their own account.
type SelfOnlyPermissions struct{}

func (SelfOnlyPermissions) HasDistributePermission(operator, from uuid.UUID, _ uuid.UUID) bool {
	return operator == from
}
