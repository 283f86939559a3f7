package gluejob

// CallbackContext is carried between invocations of one workflow. Flags
// only ever go from false to true.
type CallbackContext struct {
	// PreExistenceCheckDone is set once create confirmed the job is absent.
	PreExistenceCheckDone bool `json:"preExistenceCheckDone,omitempty"`

	// DeletePreExistenceCheckDone is set once delete confirmed the job exists.
	DeletePreExistenceCheckDone bool `json:"deletePreExistenceCheckDone,omitempty"`

	// Job caches the result of GetJob during read.
	Job *Model `json:"job,omitempty"`

	// Tags caches the result of GetTags during read. TagsRead tells an
	// empty cached set apart from one never read.
	Tags     map[string]string `json:"tags,omitempty"`
	TagsRead bool              `json:"tagsRead,omitempty"`
}
