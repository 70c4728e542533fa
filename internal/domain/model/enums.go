package model

// Backend identifies which storage implementation serves wishlist records.
type Backend string

const (
	BackendFirestore Backend = "firestore"
	BackendLocalFile Backend = "local_file"
)

// String returns the backend identifier.
func (b Backend) String() string {
	return string(b)
}
