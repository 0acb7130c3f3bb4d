package quill

// Service is the orchestration layer that coordinates the metadata
// database and the version stores to perform the operations exposed to
// the caller. Operations on the same entity or its ancestors must be
// serialized by the caller; unrelated subtrees may proceed
// concurrently.
type Service struct {
	db        Database
	stores    StoreManager
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	keepCount int
}

// DefaultKeepCount is the number of snapshots per version retained by
// the eviction policy when the config does not override it.
const DefaultKeepCount = 5

// NewService creates a Service with the provided dependencies.
// keepCount <= 0 selects DefaultKeepCount.
func NewService(db Database, stores StoreManager, logger Logger, clock Clock, idgen IDGenerator, keepCount int) *Service {
	if keepCount <= 0 {
		keepCount = DefaultKeepCount
	}
	return &Service{
		db:        db,
		stores:    stores,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		keepCount: keepCount,
	}
}

// contentFile is the path of a content's text inside its owning store
// under the branching strategy.
func contentFile(contentID string) string {
	return contentID + ".md"
}
