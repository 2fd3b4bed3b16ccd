// Package user defines the user model used throughout the application,
// particularly for session resolution and meal ownership.
package user

import "time"

// User represents a registered account.
// It carries the profile fields supplied at registration and the opaque
// session token used to resolve the user on each request.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string

	// Name is the display name supplied at registration.
	Name string

	// Email is the contact address; unique across users.
	Email string

	// Address is the free-form postal address.
	Address string

	// Weight is the body weight in kilograms.
	Weight float64

	// Height is the body height in centimeters.
	Height float64

	// SessionToken is the opaque random identifier issued at registration
	// and stored client-side in a cookie; unique across users.
	SessionToken string

	// CreatedAt is the registration timestamp.
	CreatedAt time.Time
}
