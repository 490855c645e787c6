package limits

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateFileSize tests the per-file size validation function
func TestValidateFileSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		maxSize int64
		wantErr error
	}{
		{
			name:    "zero size allowed",
			size:    0,
			maxSize: MaxFileSize,
			wantErr: nil,
		},
		{
			name:    "within limit",
			size:    1024,
			maxSize: MaxFileSize,
			wantErr: nil,
		},
		{
			name:    "exactly at limit",
			size:    MaxFileSize,
			maxSize: MaxFileSize,
			wantErr: nil,
		},
		{
			name:    "one byte over limit",
			size:    MaxFileSize + 1,
			maxSize: MaxFileSize,
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "custom lower limit",
			size:    2048,
			maxSize: 1024,
			wantErr: ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileSize(tt.size, tt.maxSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFileSize(%d, %d) = %v, want nil", tt.size, tt.maxSize, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFileSize(%d, %d) = %v, want %v", tt.size, tt.maxSize, err, tt.wantErr)
			}
		})
	}
}

// TestValidateBatchBytes tests the fixed batch total ceiling
func TestValidateBatchBytes(t *testing.T) {
	if err := ValidateBatchBytes(MaxBatchBytes); err != nil {
		t.Errorf("ValidateBatchBytes at limit returned %v, want nil", err)
	}
	if err := ValidateBatchBytes(MaxBatchBytes + 1); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("ValidateBatchBytes over limit returned %v, want ErrBatchTooLarge", err)
	}
	if err := ValidateBatchBytes(0); err != nil {
		t.Errorf("ValidateBatchBytes(0) returned %v, want nil", err)
	}
}

// TestValidateFileName tests the name rules and their short-circuit order
func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		wantErr  error
	}{
		{
			name:     "simple name",
			fileName: "photo.jpg",
			wantErr:  nil,
		},
		{
			name:     "empty name",
			fileName: "",
			wantErr:  ErrNameEmpty,
		},
		{
			name:     "max length name",
			fileName: strings.Repeat("a", MaxFileNameLength),
			wantErr:  nil,
		},
		{
			name:     "over length name",
			fileName: strings.Repeat("a", MaxFileNameLength+1),
			wantErr:  ErrNameTooLong,
		},
		{
			name:     "path separator",
			fileName: "dir/photo.jpg",
			wantErr:  ErrNameForbiddenChars,
		},
		{
			name:     "windows drive colon",
			fileName: "c:photo.jpg",
			wantErr:  ErrNameForbiddenChars,
		},
		{
			name:     "wildcard",
			fileName: "photo*.jpg",
			wantErr:  ErrNameForbiddenChars,
		},
		{
			name:     "question mark",
			fileName: "photo?.jpg",
			wantErr:  ErrNameForbiddenChars,
		},
		{
			name:     "angle brackets",
			fileName: "<photo>.jpg",
			wantErr:  ErrNameForbiddenChars,
		},
		{
			name:     "over length with forbidden chars reports length first",
			fileName: strings.Repeat("<", MaxFileNameLength+1),
			wantErr:  ErrNameTooLong,
		},
		{
			name:     "unicode name allowed",
			fileName: "фото.jpg",
			wantErr:  nil,
		},
		{
			name:     "spaces allowed",
			fileName: "my photo.jpg",
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.fileName)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFileName(%q) = %v, want nil", tt.fileName, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFileName(%q) = %v, want %v", tt.fileName, err, tt.wantErr)
			}
		})
	}
}

// TestForbiddenCharsCoverage verifies every character in ForbiddenNameChars is
// individually rejected
func TestForbiddenCharsCoverage(t *testing.T) {
	for _, c := range ForbiddenNameChars {
		name := "file" + string(c) + "name"
		if err := ValidateFileName(name); !errors.Is(err, ErrNameForbiddenChars) {
			t.Errorf("ValidateFileName(%q) = %v, want ErrNameForbiddenChars", name, err)
		}
	}
}
