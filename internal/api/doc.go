// Package api exposes the HTTP surface of vault-gateway.
//
// Four operations back the investigation front end: register, login, quota
// status, and usage recording, plus the access check consulted before a
// metered operation starts. Health and stats are public; everything else
// expects a session established by the auth middleware (or, for the access
// check, validated by the gate itself).
//
// Quota exhaustion is never an HTTP error: it comes back as a 200 with
// allowed/recorded set to false so the front end can show the notice in
// place.
package api
