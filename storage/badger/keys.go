package badger

import (
	"fmt"
	"strings"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

// Key prefixes for different data types. Usage counter keys deliberately
// match the external "usage:<functionality>:<company>:<provider>:<model>"
// contract so ops tooling can read them directly.
const (
	workItemPrefix   = "workitem"
	taskStatusPrefix = "taskstat"
	usagePrefix      = "usage"
)

// makeWorkItemKey generates a key for a work item by ID.
func makeWorkItemKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", workItemPrefix, id))
}

// makeTaskStatusKey generates a key for a task status record.
func makeTaskStatusKey(taskId string) []byte {
	return []byte(taskStatusPrefix + ":" + taskId)
}

// makeUsageEntryKey generates the key holding one credential's score.
// Format: usage:<functionality>:<company>:<provider>:<model>:<credential>
func makeUsageEntryKey(key storage.CounterKey, credential string) []byte {
	return []byte(key.String() + ":" + credential)
}

// makeUsageCounterPrefix generates the prefix covering all credential
// entries of one counter namespace.
func makeUsageCounterPrefix(key storage.CounterKey) []byte {
	return []byte(key.String() + ":")
}

// makeUsageScanPrefix generates the prefix covering all counter
// namespaces of a (functionality, company) pair.
func makeUsageScanPrefix(functionality, company string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", usagePrefix, functionality, company))
}

// splitUsageEntryKey splits a stored usage entry key into its counter key
// and credential. The credential is the last segment; counter key fields
// themselves never contain ':'.
func splitUsageEntryKey(raw []byte) (storage.CounterKey, string, error) {
	s := string(raw)
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return storage.CounterKey{}, "", storage.ErrInvalidCounterKey
	}
	key, err := storage.ParseCounterKey(s[:idx])
	if err != nil {
		return storage.CounterKey{}, "", err
	}
	return key, s[idx+1:], nil
}
