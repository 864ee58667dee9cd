package transaction

// Human-readable fragments composed into the subscription status line.
const (
	autoRenewOn  = "Auto-renew on"
	autoRenewOff = "Auto-renew off"
)

// StatusText renders a subscription renewal state and auto-renew flag as
// the display string published alongside the entitlement set, in the
// form "<state> - <auto-renew>".
func StatusText(state RenewalState, autoRenew bool) string {
	var stateText string
	switch state {
	case RenewalSubscribed:
		stateText = "Subscribed"
	case RenewalExpired:
		stateText = "Expired"
	case RenewalInBillingRetry:
		stateText = "In billing retry period"
	case RenewalInGracePeriod:
		stateText = "In grace period"
	case RenewalRevoked:
		stateText = "Revoked"
	default:
		stateText = "Unknown status"
	}

	renewText := autoRenewOff
	if autoRenew {
		renewText = autoRenewOn
	}

	return stateText + " - " + renewText
}
