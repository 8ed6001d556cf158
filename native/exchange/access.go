package exchange

import "fmt"

// Administrative roles gating engine operations.
const (
	// RoleConfigManager guards token/fee configuration, rate updates, and
	// access-mode transitions.
	RoleConfigManager = "ROLE_EXCHANGE_CONFIG"
	// RolePriceUpdater guards admin snapshot pushes.
	RolePriceUpdater = "ROLE_EXCHANGE_PRICE_UPDATER"
	// RoleFeeManager guards operational-fee configuration and withdrawal.
	RoleFeeManager = "ROLE_EXCHANGE_FEE_MANAGER"
	// RoleEmergencyManager guards pause/unpause and treasury withdrawal.
	RoleEmergencyManager = "ROLE_EXCHANGE_EMERGENCY"
	// RoleWhitelistManager guards whitelist membership.
	RoleWhitelistManager = "ROLE_EXCHANGE_WHITELIST"
	// RoleExchanger admits beneficiaries while the engine runs in role-based
	// mode.
	RoleExchanger = "ROLE_EXCHANGER"
)

// Operation names authorisable through the gate.
const (
	OpConfigureToken   = "configure_token"
	OpConfigureFee     = "configure_fee"
	OpSetRate          = "set_rate"
	OpSetMode          = "set_mode"
	OpPushPrice        = "push_price"
	OpWithdrawFee      = "withdraw_fee"
	OpPause            = "pause"
	OpEmergencyRecover = "emergency_recover"
	OpManageWhitelist  = "manage_whitelist"
)

var operationRoles = map[string]string{
	OpConfigureToken:   RoleConfigManager,
	OpConfigureFee:     RoleFeeManager,
	OpSetRate:          RoleConfigManager,
	OpSetMode:          RoleConfigManager,
	OpPushPrice:        RolePriceUpdater,
	OpWithdrawFee:      RoleFeeManager,
	OpPause:            RoleEmergencyManager,
	OpEmergencyRecover: RoleEmergencyManager,
	OpManageWhitelist:  RoleWhitelistManager,
}

// AccessGate maps (operation, principal) pairs onto the role membership sets
// held in state. Composition keeps the permission model in one place instead of
// sprinkling role literals across setters.
type AccessGate struct {
	st State
}

// NewAccessGate constructs a gate backed by the provided state.
func NewAccessGate(st State) *AccessGate {
	return &AccessGate{st: st}
}

// Authorize reports whether the principal may perform the named operation.
func (g *AccessGate) Authorize(operation string, principal [20]byte) error {
	if g == nil || g.st == nil {
		return fmt.Errorf("exchange: access gate not initialised")
	}
	role, ok := operationRoles[operation]
	if !ok {
		return fmt.Errorf("exchange: unknown operation %q", operation)
	}
	if !g.st.HasRole(role, principal[:]) {
		return ErrUnauthorized
	}
	return nil
}

// PermitBeneficiary applies the active exchange mode to a settlement
// beneficiary.
func (g *AccessGate) PermitBeneficiary(mode ExchangeMode, beneficiary [20]byte) error {
	if g == nil || g.st == nil {
		return fmt.Errorf("exchange: access gate not initialised")
	}
	switch mode {
	case ModeClosed:
		return ErrExchangeClosed
	case ModeWhitelist:
		ok, err := g.IsWhitelisted(beneficiary)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotWhitelisted
		}
		return nil
	case ModeRoleBased:
		if !g.st.HasRole(RoleExchanger, beneficiary[:]) {
			return ErrUnauthorized
		}
		return nil
	case ModePublic:
		return nil
	default:
		return ErrExchangeClosed
	}
}

// AddToWhitelist registers the address for whitelist-mode settlements.
func (g *AccessGate) AddToWhitelist(caller, addr [20]byte) error {
	if err := g.Authorize(OpManageWhitelist, caller); err != nil {
		return err
	}
	return g.st.KVPut(whitelistKey(addr), true)
}

// RemoveFromWhitelist revokes whitelist membership.
func (g *AccessGate) RemoveFromWhitelist(caller, addr [20]byte) error {
	if err := g.Authorize(OpManageWhitelist, caller); err != nil {
		return err
	}
	return g.st.KVPut(whitelistKey(addr), false)
}

// IsWhitelisted reports current whitelist membership.
func (g *AccessGate) IsWhitelisted(addr [20]byte) (bool, error) {
	if g == nil || g.st == nil {
		return false, fmt.Errorf("exchange: access gate not initialised")
	}
	var member bool
	ok, err := g.st.KVGet(whitelistKey(addr), &member)
	if err != nil {
		return false, err
	}
	return ok && member, nil
}
