package workflow

// Files written inside a task directory.
const (
	audioFile            = "audio.wav"
	segmentsAudioDir     = "segments_audio"
	synthesizedAudioFile = "synthesized_audio.wav"
	outputNoSubtitles    = "output_video_no_subtitles.mp4"
	outputWithSubtitles  = "output_video_with_subtitles.mp4"
	subtitlesFile        = "subtitles.srt"
)
