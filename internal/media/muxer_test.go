package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yangwenmai/kirbuk/internal/proc"
)

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestMuxArgs_TwoInputs(t *testing.T) {
	args := muxArgs(MuxRequest{Video: "v.webm", Voice: "a.mp3", Output: "out.webm"})

	want := []string{"-y", "-i", "v.webm", "-i", "a.mp3", "-map", "0:v:0", "-map", "1:a:0", "-c:v", "copy", "-c:a", "libopus", "-shortest", "out.webm"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("args = %v\nwant %v", args, want)
	}
	if indexOf(args, "-filter_complex") >= 0 {
		t.Error("two-input mux should not build a filter graph")
	}
}

func TestMuxArgs_WithMusic(t *testing.T) {
	args := muxArgs(MuxRequest{Video: "v.webm", Voice: "a.mp3", Music: "m.mp3", Output: "out.webm"})

	loop := indexOf(args, "-stream_loop")
	music := indexOf(args, "m.mp3")
	if loop < 0 || args[loop+1] != "-1" {
		t.Fatalf("music should loop indefinitely: %v", args)
	}
	if music != loop+3 {
		t.Errorf("-stream_loop must directly precede the music input: %v", args)
	}

	fc := indexOf(args, "-filter_complex")
	if fc < 0 {
		t.Fatalf("missing filter graph: %v", args)
	}
	graph := args[fc+1]
	for _, part := range []string{"[1:a]volume=1.00", "[2:a]volume=0.15", "amix=inputs=2:duration=first"} {
		if !strings.Contains(graph, part) {
			t.Errorf("filter graph %q missing %q", graph, part)
		}
	}
	if args[indexOf(args, "-c:v")+1] != "copy" {
		t.Error("video stream must be copied")
	}
	if indexOf(args, "-shortest") < 0 {
		t.Error("output must be truncated to the shortest stream")
	}
}

func TestMuxArgs_MP4Recording(t *testing.T) {
	video := "recording.MP4"
	out := "final" + OutputExt(video)
	if out != "final.mp4" {
		t.Fatalf("output = %q, want the recording's container", out)
	}
	args := muxArgs(MuxRequest{Video: video, Voice: "a.mp3", Music: "m.mp3", Output: out})

	if got := args[indexOf(args, "-c:a")+1]; got != "aac" {
		t.Errorf("audio codec = %q, want aac for mp4", got)
	}
	if args[indexOf(args, "-c:v")+1] != "copy" {
		t.Error("video stream must be copied")
	}
	if args[len(args)-1] != "final.mp4" {
		t.Errorf("output = %q", args[len(args)-1])
	}
}

func TestOutputExt(t *testing.T) {
	tests := map[string]string{
		"recording.webm": ".webm",
		"video.mp4":      ".mp4",
		"demo.Mp4":       ".mp4",
		"output.mkv":     ".webm",
		"noext":          ".webm",
	}
	for in, want := range tests {
		if got := OutputExt(in); got != want {
			t.Errorf("OutputExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMuxArgs_CustomVolumes(t *testing.T) {
	args := muxArgs(MuxRequest{Video: "v", Voice: "a", Music: "m", Output: "o", VoiceVolume: 0.8, MusicVolume: 0.3})
	graph := args[indexOf(args, "-filter_complex")+1]
	if !strings.Contains(graph, "[1:a]volume=0.80") || !strings.Contains(graph, "[2:a]volume=0.30") {
		t.Errorf("graph = %q", graph)
	}
}

func TestMux_RequiresInputs(t *testing.T) {
	m := New()
	if err := m.Mux(context.Background(), MuxRequest{Video: "v"}); err == nil {
		t.Fatal("expected error for missing voice/output")
	}
}

// fakeBinary writes an executable shell script and returns its path.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMux_EncoderFailure(t *testing.T) {
	bin := fakeBinary(t, "echo 'Invalid data found' >&2; exit 1")
	m := New(WithBinaries(bin, ""))

	err := m.Mux(context.Background(), MuxRequest{Video: "v", Voice: "a", Output: "o"})
	var ee *proc.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *proc.ExitError", err)
	}
}

func TestMux_Timeout(t *testing.T) {
	bin := fakeBinary(t, "exec sleep 5")
	m := New(WithBinaries(bin, ""), WithTimeout(100*time.Millisecond))

	err := m.Mux(context.Background(), MuxRequest{Video: "v", Voice: "a", Output: "o"})
	if !errors.Is(err, proc.ErrTimeout) {
		t.Fatalf("err = %v, want proc.ErrTimeout", err)
	}
}

func TestProbe(t *testing.T) {
	bin := fakeBinary(t, "echo 42.480000")
	m := New(WithBinaries("", bin))

	d, err := m.Probe(context.Background(), "x.webm")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if d != 42.48 {
		t.Errorf("Probe = %v, want 42.48", d)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"12.5\n", 12.5, false},
		{"N/A", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseDuration(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

type failingProber struct{}

func (failingProber) Probe(context.Context, string) (float64, error) {
	return 0, errors.New("corrupt container")
}

func TestDurationOr_FallsBack(t *testing.T) {
	if got := DurationOr(context.Background(), failingProber{}, "x", 120); got != 120 {
		t.Errorf("DurationOr = %v, want fallback 120", got)
	}
	if got := DurationOr(context.Background(), nil, "x", 90); got != 90 {
		t.Errorf("DurationOr(nil prober) = %v, want 90", got)
	}
	if got := DurationOr(context.Background(), failingProber{}, "", 60); got != 60 {
		t.Errorf("DurationOr(no path) = %v, want 60", got)
	}
}
