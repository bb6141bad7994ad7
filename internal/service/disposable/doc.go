// Package disposable implements the disposable email domain engine.
//
// The Updater pulls the upstream blocklist, merges it with the runtime Rules
// and atomically replaces the persisted DomainStore. The Checker answers
// "is this address on a throwaway provider?" from the store and the Rules
// without mutating either, and the Validator turns that answer into a
// user-facing error that fails closed when the store is unavailable.
//
// The service layer depends only on the DomainStore interface defined in
// repository.go. It never imports net/http or database/sql directly.
package disposable
