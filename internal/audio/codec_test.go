package audio

import (
	"errors"
	"testing"
)

// ErrOpusUnavailable must be visible in every build configuration, not just
// the stub build, because callers compare against it unconditionally.
func TestOpusSentinelVisibleInAllBuilds(t *testing.T) {
	if ErrOpusUnavailable == nil {
		t.Fatal("ErrOpusUnavailable is nil")
	}
	dec, err := NewOpusDecoder()
	if err != nil {
		if !errors.Is(err, ErrOpusUnavailable) {
			t.Fatalf("decoder constructor failed with unexpected error: %v", err)
		}
		if dec != nil {
			t.Fatal("decoder should be nil when construction fails")
		}
	}
	enc, err := NewOpusEncoder()
	if err != nil {
		if !errors.Is(err, ErrOpusUnavailable) {
			t.Fatalf("encoder constructor failed with unexpected error: %v", err)
		}
		if enc != nil {
			t.Fatal("encoder should be nil when construction fails")
		}
	}
}
