package audio

import "testing"

func TestBuildAndParseWAV(t *testing.T) {
	pcm := []int16{0, 100, -100, 32767, -32768, 42}
	wav := BuildWAV(pcm, 24000, 1)

	got, rate, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if rate != 24000 {
		t.Fatalf("sample rate = %d, want 24000", rate)
	}
	if len(got) != len(pcm) {
		t.Fatalf("sample count = %d, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestParseWAVStereoDownmix(t *testing.T) {
	stereo := []int16{100, 300, -200, -400}
	wav := BuildWAV(stereo, 48000, 2)

	got, rate, err := ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if rate != 48000 {
		t.Fatalf("sample rate = %d", rate)
	}
	if len(got) != 2 || got[0] != 200 || got[1] != -300 {
		t.Fatalf("downmix result = %v, want [200 -300]", got)
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	if _, _, err := ParseWAV([]byte("definitely not audio")); err == nil {
		t.Fatal("expected error for non-WAV payload")
	}
	if _, _, err := ParseWAV(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestResample(t *testing.T) {
	in := fill(2400, 1000)
	out := Resample(in, 24000, 48000)
	if len(out) != 4800 {
		t.Fatalf("upsampled length = %d, want 4800", len(out))
	}
	for i, s := range out {
		if s < 999 || s > 1001 {
			t.Fatalf("sample %d = %d, expected flat signal to stay flat", i, s)
		}
	}
	if got := Resample(in, 24000, 24000); len(got) != len(in) {
		t.Fatal("same-rate resample should be identity")
	}
}
