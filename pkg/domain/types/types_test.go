package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/medinotes/pkg/domain/types"
)

func TestNotificationLevel_IsValid(t *testing.T) {
	tests := []struct {
		level types.NotificationLevel
		want  bool
	}{
		{types.NotificationInfo, true},
		{types.NotificationSuccess, true},
		{types.NotificationWarning, true},
		{types.NotificationError, true},
		{"debug", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			gt.Value(t, tt.level.IsValid()).Equal(tt.want)
		})
	}
}

func TestExportFormat_IsValid(t *testing.T) {
	gt.Bool(t, types.ExportFormatHTML.IsValid()).True()
	gt.Bool(t, types.ExportFormatMarkdown.IsValid()).True()
	gt.Bool(t, types.ExportFormat("md").IsValid()).False()
	gt.Bool(t, types.ExportFormat("pdf").IsValid()).False()
}

func TestDetailMode_IsValid(t *testing.T) {
	gt.Bool(t, types.DetailModeExpanded.IsValid()).True()
	gt.Bool(t, types.DetailModeEditingSummary.IsValid()).True()
	gt.Bool(t, types.DetailMode("collapsed").IsValid()).False()
}
