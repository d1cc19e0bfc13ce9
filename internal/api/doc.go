// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as a thin adapter between external clients
// and the task service, translating HTTP concerns to task operations.
//
// Authentication is handled upstream; the caller's identity arrives in the
// X-Owner-ID header and every task lookup is scoped to that owner.
package api
