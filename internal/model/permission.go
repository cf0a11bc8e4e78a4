package model

// PermissionState is the notification permission of the current browser profile.
type PermissionState string

const (
	PermissionDefault     PermissionState = "default"
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
	PermissionUnsupported PermissionState = "unsupported"
)
