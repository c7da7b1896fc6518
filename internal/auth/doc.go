// Package auth implements the account workflows of a storefront session:
// sign-up, login and the post-login profile binding, logout, profile
// editing and password reset.
//
// Each workflow runs on the caller's goroutine and performs its steps in
// order, checking every external call before starting the next one.
//
// ERROR HANDLING:
//
// Logout and the avatar upload of EditProfile catch their failures and
// surface them as exactly one error notification. Every other failure is
// returned to the caller untranslated, so callers can inspect the
// *remote.Error code.
//
// PROFILE BINDING:
//
// AfterLogin subscribes to the signed-in account's profile record and keeps
// the subscription open: every later write re-commits the user. The
// subscription is released by Logout, by a new AfterLogin and by Close.
package auth
