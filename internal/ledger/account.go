package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeUser AccountScope = iota
	AccountScopePool
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// User sub-types
	SubTypeBalance AccountSubType = iota

	// Pool sub-types
	SubTypePoolBuffer

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
)

// TokenID maps token symbols to numeric IDs for performance
type TokenID uint16

var (
	tokenToID = map[string]TokenID{
		"USDX": 1,
		"STRM": 2,
		"WETH": 3,
	}
	idToToken = map[TokenID]string{
		1: "USDX",
		2: "STRM",
		3: "WETH",
	}
)

func GetTokenID(token string) (TokenID, bool) {
	id, ok := tokenToID[token]
	return id, ok
}

func GetTokenName(id TokenID) (string, bool) {
	name, ok := idToToken[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking (19 bytes, cache-friendly)
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // account UUID for users, pool UUID for pool buffers
	SubType  AccountSubType
	TokenID  TokenID
}

// NewUserAccountKey creates a key for an account's token balance
func NewUserAccountKey(account uuid.UUID, tokenID TokenID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeUser,
		EntityID: account,
		SubType:  SubTypeBalance,
		TokenID:  tokenID,
	}
}

// NewPoolAccountKey creates a key for a pool's buffer account — value a
// distributor has committed to the pool but members have not claimed yet.
func NewPoolAccountKey(poolID uuid.UUID, tokenID TokenID) AccountKey {
	return AccountKey{
		Scope:    AccountScopePool,
		EntityID: poolID,
		SubType:  SubTypePoolBuffer,
		TokenID:  tokenID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, tokenID TokenID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		TokenID: tokenID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	tokenName, _ := GetTokenName(k.TokenID)

	switch k.Scope {
	case AccountScopeUser:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("account:%s:%s", uid.String(), tokenName)
	case AccountScopePool:
		pid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("pool:%s:%s:%s", pid.String(), k.subTypeName(), tokenName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), tokenName)
	}
	return "unknown"
}

// ParseAccountPath is the inverse of AccountPath. Used when restoring
// balances from a snapshot, where keys are stored as paths.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")
	switch {
	case len(parts) == 3 && parts[0] == "account":
		uid, err := uuid.Parse(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account path %q: %w", path, err)
		}
		tokenID, ok := GetTokenID(parts[2])
		if !ok {
			return AccountKey{}, fmt.Errorf("parse account path %q: unknown token", path)
		}
		return NewUserAccountKey(uid, tokenID), nil

	case len(parts) == 4 && parts[0] == "pool" && parts[2] == "buffer":
		pid, err := uuid.Parse(parts[1])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account path %q: %w", path, err)
		}
		tokenID, ok := GetTokenID(parts[3])
		if !ok {
			return AccountKey{}, fmt.Errorf("parse account path %q: unknown token", path)
		}
		return NewPoolAccountKey(pid, tokenID), nil

	case len(parts) == 3 && parts[0] == "external":
		tokenID, ok := GetTokenID(parts[2])
		if !ok {
			return AccountKey{}, fmt.Errorf("parse account path %q: unknown token", path)
		}
		var subType AccountSubType
		switch parts[1] {
		case "deposits":
			subType = SubTypeExternalDeposits
		case "withdrawals":
			subType = SubTypeExternalWithdrawals
		default:
			return AccountKey{}, fmt.Errorf("parse account path %q: unknown external sub-type", path)
		}
		return NewExternalAccountKey(subType, tokenID), nil
	}
	return AccountKey{}, fmt.Errorf("parse account path %q: unrecognized format", path)
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeBalance:
		return "balance"
	case SubTypePoolBuffer:
		return "buffer"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	default:
		return "unknown"
	}
}
