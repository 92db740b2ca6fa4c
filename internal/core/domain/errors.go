package domain

import "errors"

var (
	// ErrPermissionDenied is returned when the user refuses location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPlatformUnsupported is returned when the device cannot provide a location at all.
	ErrPlatformUnsupported = errors.New("location unsupported on this platform")

	// ErrLocationUnavailable is returned when a provider has no fix for the device.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrTransport wraps network failures and non-2xx answers from the mark service.
	ErrTransport = errors.New("mark service transport failure")

	// ErrDecode wraps malformed responses from the mark service.
	ErrDecode = errors.New("mark service response malformed")

	// ErrSuperseded is returned by a recenter that was replaced by a newer one.
	ErrSuperseded = errors.New("recenter superseded")

	// ErrNoPendingMark is returned when submitting with the creation dialog closed.
	ErrNoPendingMark = errors.New("no pending mark")

	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrMessageTooLong    = errors.New("message too long")
	ErrMarkNotFound      = errors.New("mark not found")
)

// User-facing messages recorded on the screen for location failures.
const (
	MsgPermissionDenied    = "Permission to access location was denied"
	MsgPlatformUnsupported = "Oops, this will not work on Sketch in an Android emulator. Try it on your device!"
	MsgLocationUnavailable = "Current location is unavailable"
)
