// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns uploaded recordings into scored ones.
package queue

// SubmittedQueueName is the durable queue recording submissions travel on.
const SubmittedQueueName = "recording.submitted"

// RecordingSubmittedEvent is published when a student's recording has been
// stored and its row inserted with status "uploaded". It carries enough for
// the consumer to run the analysis without re-reading the upload request.
type RecordingSubmittedEvent struct {
	RecordingID  uint64 `json:"recording_id"`
	StudentID    uint64 `json:"student_id"`
	AssignmentID uint64 `json:"assignment_id,omitempty"`
	StoryID      uint64 `json:"story_id,omitempty"`
	AudioKey     string `json:"audio_key"`
	SubmittedAt  string `json:"submitted_at"`
}
