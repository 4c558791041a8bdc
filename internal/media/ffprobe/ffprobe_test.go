package ffprobe

import (
	"context"
	"errors"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", Index: 1, SampleRate: "48000", Channels: 2},
			{CodecType: "audio", Index: 2},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	audio, ok := result.PrimaryAudio()
	if !ok || audio.Index != 1 || audio.SampleRateHz() != 48000 {
		t.Fatalf("unexpected primary audio %+v", audio)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   float64
	}{
		{"container", Result{Format: Format{Duration: "9.5"}}, 9.5},
		{"longest stream", Result{Streams: []Stream{{Duration: "4.0"}, {Duration: "6.25"}}}, 6.25},
		{"unparsable", Result{Format: Format{Duration: "bad"}, Streams: []Stream{{Duration: "N/A"}}}, 0},
		{"negative", Result{Format: Format{Duration: "-1"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.DurationSeconds(); got != tt.want {
				t.Fatalf("DurationSeconds() = %v, want %v", got, tt.want)
			}
		})
	}
	if _, ok := (Result{}).PrimaryAudio(); ok {
		t.Fatal("expected no primary audio for empty result")
	}
	if (Stream{SampleRate: "n/a"}).SampleRateHz() != 0 {
		t.Fatal("expected zero sample rate for unparsable value")
	}
}

func TestInspectUsesRunner(t *testing.T) {
	var gotArgs []string
	prober := New("").WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return []byte(`{"streams":[{"codec_type":"video"},{"codec_type":"audio","sample_rate":"48000","channels":2}],"format":{"duration":"12.5"}}`), nil
	})

	result, err := prober.Inspect(context.Background(), "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.AudioStreamCount() != 1 || result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected result %+v", result)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/in.mp4" {
		t.Fatalf("expected path as final argument, got %v", gotArgs)
	}
}

func TestInspectPropagatesErrors(t *testing.T) {
	prober := New("ffprobe").WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	if _, err := prober.Inspect(context.Background(), "/tmp/in.mp4"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := prober.Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
