package serverutils

import (
	"errors"
	"testing"

	"ai-research-desk/internal/dto"
)

func TestValidateRequestCommand(t *testing.T) {
	tests := []struct {
		name      string
		cmd       dto.Command
		wantField string
		wantTag   string
	}{
		{
			name: "valid submit",
			cmd:  dto.Command{Type: dto.CommandSubmit, Text: "What is a BJT?"},
		},
		{
			name:      "missing type",
			cmd:       dto.Command{Text: "orphan"},
			wantField: "Type",
			wantTag:   "required",
		},
		{
			name:      "unknown type",
			cmd:       dto.Command{Type: "shout"},
			wantField: "Type",
			wantTag:   "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(&tt.cmd)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField || verr.Reason != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", verr.Field, verr.Reason, tt.wantField, tt.wantTag)
			}
		})
	}
}
