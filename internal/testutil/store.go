package testutil

import (
	"quill-go/internal/quill"
)

// FailingStoreManager wraps a real StoreManager and injects errors into
// individual operations, for exercising compensation paths.
type FailingStoreManager struct {
	Inner quill.StoreManager

	CreateErr error
	OpenErr   error
	RemoveErr error

	CreateCalls []string
	RemoveCalls []string
}

func (m *FailingStoreManager) Strategy() quill.Strategy { return m.Inner.Strategy() }

func (m *FailingStoreManager) Create(ownerID string) (string, string, error) {
	m.CreateCalls = append(m.CreateCalls, ownerID)
	if m.CreateErr != nil {
		return "", "", m.CreateErr
	}
	return m.Inner.Create(ownerID)
}

func (m *FailingStoreManager) Open(ownerID string, ref string) (quill.VersionStore, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return m.Inner.Open(ownerID, ref)
}

func (m *FailingStoreManager) Remove(ownerID string) error {
	m.RemoveCalls = append(m.RemoveCalls, ownerID)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	return m.Inner.Remove(ownerID)
}

func (m *FailingStoreManager) Path(ownerID string) string { return m.Inner.Path(ownerID) }

var _ quill.StoreManager = (*FailingStoreManager)(nil)
