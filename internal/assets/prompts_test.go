package assets

import (
	"strings"
	"testing"
)

func TestRenderImageDamagePrompt(t *testing.T) {
	prompt := RenderImageDamagePrompt("Russian")
	if !strings.Contains(prompt, "Russian") {
		t.Error("language not substituted into image prompt")
	}
	if !strings.Contains(prompt, "segmentation_polygon") {
		t.Error("image prompt missing the segmentation_polygon field contract")
	}
	if !strings.Contains(prompt, "confidence") {
		t.Error("image prompt missing the confidence field contract")
	}
}

func TestRenderVideoQualityPrompt(t *testing.T) {
	prompt := RenderVideoQualityPrompt("Kazakh")
	if !strings.Contains(prompt, "Kazakh") {
		t.Error("language not substituted into video prompt")
	}
	if !strings.Contains(prompt, "quality_assessment") {
		t.Error("video prompt missing the quality_assessment field contract")
	}
	if !strings.Contains(prompt, "is_acceptable") {
		t.Error("video prompt missing the is_acceptable field contract")
	}
}

func TestLiveSystemScriptEmbedded(t *testing.T) {
	if strings.TrimSpace(LiveSystemScript) == "" {
		t.Fatal("live system script is empty")
	}
	if !strings.Contains(LiveSystemScript, "submit_report") {
		t.Error("live script does not reference the report tool")
	}
}
