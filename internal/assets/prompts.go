// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time. The report language is substituted at render time so the
// target locale stays configuration, not prompt text.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed prompts/image-damage.txt
var imageDamageTemplate string

//go:embed prompts/video-quality.txt
var videoQualityTemplate string

// LiveSystemScript is the conversational policy for the live inspection
// session. It is configuration data: swapping the script changes the
// inspector's behavior without touching bridge code.
//
//go:embed prompts/live-system.txt
var LiveSystemScript string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var (
	imageDamageTmpl  = template.Must(template.New("image-damage").Parse(imageDamageTemplate))
	videoQualityTmpl = template.Must(template.New("video-quality").Parse(videoQualityTemplate))
)

// PromptData holds the dynamic data injected into prompt templates.
type PromptData struct {
	// Language is the target language for all user-facing strings in the
	// model's reply.
	Language string
}

// RenderImageDamagePrompt renders the default per-photo damage analysis prompt.
func RenderImageDamagePrompt(language string) string {
	return renderTemplate(imageDamageTmpl, language)
}

// RenderVideoQualityPrompt renders the walkaround-video prompt with the
// quality gate followed by conditional damage extraction.
func RenderVideoQualityPrompt(language string) string {
	return renderTemplate(videoQualityTmpl, language)
}

func renderTemplate(tmpl *template.Template, language string) string {
	var buf bytes.Buffer
	// Execution errors are not expected with these templates; return whatever
	// was rendered.
	_ = tmpl.Execute(&buf, PromptData{Language: language})
	return buf.String()
}
