package limits

import (
	"strings"
	"testing"
)

// TestDerivedBounds verifies the arithmetic relations between the protocol
// constants so a careless edit to one of them fails loudly.
func TestDerivedBounds(t *testing.T) {
	if MaxText != (MaxMessage-TextEnvelope)/2 {
		t.Errorf("MaxText = %d, want %d", MaxText, (MaxMessage-TextEnvelope)/2)
	}
	if MaxName != MaxText {
		t.Errorf("MaxName = %d, want %d", MaxName, MaxText)
	}
	if MaxFileName != MaxMessage-UploadEnvelope {
		t.Errorf("MaxFileName = %d, want %d", MaxFileName, MaxMessage-UploadEnvelope)
	}
	if ChunkSize >= MaxText {
		t.Errorf("ChunkSize = %d must stay well under MaxText = %d", ChunkSize, MaxText)
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText(strings.Repeat("a", MaxText)); err != nil {
		t.Errorf("text of MaxText bytes must pass, got %v", err)
	}
	if err := ValidateText(strings.Repeat("a", MaxText+1)); err != ErrTextTooLong {
		t.Errorf("text of MaxText+1 bytes: got %v, want ErrTextTooLong", err)
	}
	if err := ValidateText(""); err != nil {
		t.Errorf("empty text must pass, got %v", err)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName(strings.Repeat("n", MaxName)); err != nil {
		t.Errorf("name of MaxName bytes must pass, got %v", err)
	}
	if err := ValidateName(strings.Repeat("n", MaxName+1)); err != ErrNameTooLong {
		t.Errorf("name of MaxName+1 bytes: got %v, want ErrNameTooLong", err)
	}
}

func TestValidateFileName(t *testing.T) {
	if err := ValidateFileName(strings.Repeat("f", MaxFileName)); err != nil {
		t.Errorf("file name of MaxFileName bytes must pass, got %v", err)
	}
	if err := ValidateFileName(strings.Repeat("f", MaxFileName+1)); err != ErrFileNameTooLong {
		t.Errorf("file name of MaxFileName+1 bytes: got %v, want ErrFileNameTooLong", err)
	}
}
