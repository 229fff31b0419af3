// Package partdime implements the session core of the PartDime job
// marketplace client: who is signed in, as which role, and which screens
// that makes reachable.
//
// Session lifecycle:
//   - Session is the single process-wide record of {role, authenticated}.
//     Every screen receives it by reference and mutates it only through
//     SetRole, SetAuthenticated and Reset. Mutations are mirrored to a
//     durable record so a cold start can restore the session without a
//     fresh login.
//   - Guard derives the reachable screen set from a session snapshot. It
//     holds no state of its own and re-derives synchronously on every
//     session mutation.
//
// Email verification:
//   - Monitor is a timed polling state machine that re-checks the auth
//     provider's verification flag after registration or login. It runs
//     against a fixed wall-clock budget, promotes the session exactly once
//     on success, and forces a sign-out plus session reset on expiry.
//     MonitorManager guarantees at most one active monitor per session.
//
// Providers and stores:
//   - AuthProvider and ProfileStore describe the external collaborators.
//     provider/firebase talks to the Google Identity Toolkit REST API,
//     provider/local is a bun/SQLite implementation for development and
//     integration tests, and store holds the profile and job repositories.
package partdime
