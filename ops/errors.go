package ops

import "github.com/mbland/optinlist/types"

// ErrValidation indicates malformed client input. Nothing was stored or sent.
const ErrValidation = types.SentinelError("validation failed")

// ErrStorage indicates a failed query or transaction. Any transaction in
// progress was rolled back.
const ErrStorage = types.SentinelError("storage failed")

// ErrEmailDelivery indicates that sending an email failed after the state
// change preceding it was committed.
const ErrEmailDelivery = types.SentinelError("email delivery failed")

// ErrTokenNotFound indicates that a confirmation token doesn't resolve to a
// subscriber, whether it was never issued or its subscriber is missing.
const ErrTokenNotFound = types.SentinelError("subscription token not found")

// ErrUnexpected indicates a failure that isn't specific to one recipient
// during a newsletter publish, such as failing to fetch the subscriber list.
const ErrUnexpected = types.SentinelError("unexpected error")

// ErrExternal indicates that a request to an upstream service failed.
//
// AwsError wraps AWS server faults with it so they're distinguishable from
// errors caused by bad input.
const ErrExternal = types.SentinelError("external error")
