package constants

// DocumentStatus is the lifecycle state of a curriculum document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusProcessing DocumentStatus = "processing" // created, segmentation running
	DocumentStatusReady      DocumentStatus = "ready"      // segments persisted
	DocumentStatusError      DocumentStatus = "error"      // terminal failure, see error_message
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusError:
		return true
	}
	return false
}
