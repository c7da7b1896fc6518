// Package harness runs scripted storefront sessions and records what they do.
//
// A scenario is a YAML file listing user actions. The harness builds a
// fresh session for each run, with deterministic collaborators, executes
// the steps in order and records every state change each step produced.
// The rendered trace is compared against golden files.
//
// # Scenario Format
//
//	name: account_flow
//	description: "Sign up, log in, edit the profile, log out"
//	backend: memory            # or sqlite; default memory
//	steps:
//	  - action: signup
//	    email: ana@example.com
//	    password: secret1
//	    name: Ana
//	    phone: "555-0100"
//	  - action: login
//	    email: ana@example.com
//	    password: secret1
//	  - action: add
//	    item: "2"
//	  - action: fail
//	    service: identity
//	    op: sign_out
//	    code: auth/network-request-failed
//	    message: network down
//	  - action: logout
//	  - action: remove
//	    item: "9"
//	    expect_error: cart/not-in-cart
//
// # Actions
//
//   - signup, login, logout, reset: account workflows. login runs the
//     post-login binding as well.
//   - edit_profile: name, phone and an optional inline avatar body.
//   - add, remove, increment, decrement, clear: cart operations on item.
//   - dismiss: dismisses the displayed notification.
//   - advance: moves the manual clock forward by duration.
//   - redirect: sets the pending redirect target to path.
//   - fail: makes the next call of op on service fail with code and message.
//     identity and profile failures need the memory backend.
//
// A step with expect_error must fail with that code; any other step must
// succeed. Mismatches are collected in Result.Errors.
//
// # Determinism
//
// Account ids come from testutil.SequentialIDs, the notification gap runs
// on testutil.ManualScheduler and profile writes wait until the session has
// seen them, so the same scenario always produces the same trace.
package harness
