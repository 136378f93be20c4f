package state

// Trigger represents an event that causes a state transition.
type Trigger string

const (
	// Bootstrap phase advancement
	TriggerLoadFonts         Trigger = "load_fonts"
	TriggerCheckAuth         Trigger = "check_auth"
	TriggerCheckSubscription Trigger = "check_subscription"
	TriggerInitNotifications Trigger = "init_notifications"

	// Final-state resolution
	TriggerResolveUnauthenticated Trigger = "resolve_unauthenticated"
	TriggerResolveNoSubscription  Trigger = "resolve_no_subscription"
	TriggerResolveSubscribed      Trigger = "resolve_subscribed"

	// Post-terminal corrections and session changes
	TriggerEntitlementGranted Trigger = "entitlement_granted"
	TriggerEntitlementRevoked Trigger = "entitlement_revoked"
	TriggerPurchaseCompleted  Trigger = "purchase_completed"
	TriggerSignedOut          Trigger = "signed_out"
	TriggerRetry              Trigger = "retry"

	// Failure paths
	TriggerFault           Trigger = "fault"
	TriggerWatchdogExpired Trigger = "watchdog_expired"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
