package utils

import (
	"strings"
	"testing"
	"time"
)

type sampleOptions struct {
	Mode      string        `validate:"oneof=dry-run force confirm"`
	ChunkSize int           `validate:"gte=1,lte=5000"`
	LockTTL   time.Duration `validate:"gte=1s"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(sampleOptions{Mode: "force", ChunkSize: 10, LockTTL: time.Minute}); err != nil {
		t.Fatalf("expected valid options, got %v", err)
	}
	err := ValidateStruct(sampleOptions{Mode: "nuke", ChunkSize: 0, LockTTL: time.Minute})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "ChunkSize failed gte") || !strings.Contains(err.Error(), "Mode failed oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}
