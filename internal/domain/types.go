package domain

// UIState models the recording affordance lifecycle.
type UIState string

const (
	UIStateReady      UIState = "ready"
	UIStateArmed      UIState = "armed"
	UIStateRecording  UIState = "recording"
	UIStateFinalizing UIState = "finalizing"
)

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonStartup             StateReason = "startup"
	ReasonPermissionRequested StateReason = "permission_requested"
	ReasonRecordingStarted    StateReason = "recording_started"
	ReasonFinalizing          StateReason = "finalizing"
	ReasonNoAudioCaptured     StateReason = "no_audio_captured"
	ReasonAnalysisComplete    StateReason = "analysis_complete"
	ReasonPermissionDenied    StateReason = "permission_denied"
	ReasonCaptureFailed       StateReason = "capture_failed"
	ReasonTranscodeFailed     StateReason = "transcode_failed"
	ReasonAnalysisFailed      StateReason = "analysis_failed"
)

// ErrorCode identifies user-visible backend errors.
type ErrorCode string

const (
	ErrorCodeStartup          ErrorCode = "startup"
	ErrorCodePermissionDenied ErrorCode = "permission_denied"
	ErrorCodeCapture          ErrorCode = "capture"
	ErrorCodeTranscode        ErrorCode = "transcode"
	ErrorCodeAnalysis         ErrorCode = "analysis"
	ErrorCodeSpeech           ErrorCode = "speech"
	ErrorCodeValidation       ErrorCode = "validation"
)

// Artifact is an immutable audio payload with its declared media type.
type Artifact struct {
	Data []byte `json:"data"`
	MIME string `json:"mime"`
}

// Empty reports whether the artifact carries no audio data.
func (a Artifact) Empty() bool {
	return len(a.Data) == 0
}

// PitchSample is one analyzed point: seconds into the recording and Hz.
type PitchSample struct {
	Time      float64 `json:"time"`
	Frequency float64 `json:"frequency"`
}

// PitchSeries is a time-ordered sequence of pitch samples. It is either
// empty or fully populated; partial series are never constructed.
type PitchSeries []PitchSample

// Status summarizes the current runtime status for the UI.
type Status struct {
	State      UIState `json:"state"`
	SpeechBusy bool    `json:"speechBusy"`
	Message    string  `json:"message,omitempty"`
}
