package constant

type RecordingStatus string

const (
	RecordingStatusPending      RecordingStatus = "pending"
	RecordingStatusProcessing   RecordingStatus = "processing"
	RecordingStatusTranscribing RecordingStatus = "transcribing"
	RecordingStatusCompleted    RecordingStatus = "completed"
	RecordingStatusFailed       RecordingStatus = "failed"
)

func (s RecordingStatus) String() string {
	return string(s)
}

// Terminal reports whether no further pipeline transition is possible,
// apart from an explicit retry of a failed recording.
func (s RecordingStatus) Terminal() bool {
	return s == RecordingStatusCompleted || s == RecordingStatusFailed
}

type TranscriptStatus string

const (
	TranscriptStatusCompleted TranscriptStatus = "completed"
)

type JobType string

const (
	JobTypeTranscribe JobType = "transcribe"
	JobTypeSummarize  JobType = "summarize"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
