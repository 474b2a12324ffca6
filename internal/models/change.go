package models

// Collection names used as the persisted schema surface
const (
	CollectionUsers               = "users"
	CollectionArticles            = "articles"
	CollectionSaved               = "saved"
	CollectionPublicationRequests = "publicationRequests"
)

// ChangeOp is the kind of write observed on a record
type ChangeOp string

const (
	ChangeUpsert ChangeOp = "upsert"
	ChangeDelete ChangeOp = "delete"
)

// Change is a notification that a record was written or removed
type Change struct {
	Collection string   `json:"collection"`
	ID         string   `json:"id"`
	Op         ChangeOp `json:"op"`
}
