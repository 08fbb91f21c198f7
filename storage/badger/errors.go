package badger

import "github.com/openharbor/vecflow/storage"

// errConflictExhausted is returned when WithConflictRetry gives up.
var errConflictExhausted = storage.ErrConflictRetryExhausted
