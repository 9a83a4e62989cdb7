package models

// SmartApp lifecycle phases delivered to the webhook endpoint. The webhook
// must answer these with the vendor's own JSON shapes, never the client
// envelope.
const (
	LifecyclePing          = "PING"
	LifecycleConfirmation  = "CONFIRMATION"
	LifecycleConfiguration = "CONFIGURATION"
	LifecycleInstall       = "INSTALL"
	LifecycleUpdate        = "UPDATE"
	LifecycleUninstall     = "UNINSTALL"
	LifecycleEvent         = "EVENT"
)
