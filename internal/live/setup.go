package live

// newSetupMessage builds the one-time vendor handshake: response modality,
// voice, the inspection script as system instruction, and the submit_report
// tool declaration. Everything here is configuration data; the bridge itself
// has no opinion on the conversation.
func newSetupMessage(model, voiceName, systemScript string) vendorSetupMessage {
	return vendorSetupMessage{
		Setup: vendorSetup{
			Model: model,
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceName},
					},
				},
			},
			Tools: []tool{{
				FunctionDeclarations: []functionDeclaration{{
					Name:        reportFunctionName,
					Description: "Submits the final inspection report.",
					Parameters: &schema{
						Type: "OBJECT",
						Properties: map[string]*schema{
							"summary": {
								Type:        "STRING",
								Description: "Final summary of the inspection.",
							},
							"status": {
								Type:        "STRING",
								Enum:        []string{"success", "aborted"},
								Description: "Status of the inspection.",
							},
							"damages": {
								Type: "ARRAY",
								Items: &schema{
									Type: "OBJECT",
									Properties: map[string]*schema{
										"part":        {Type: "STRING", Description: "Car part name."},
										"type":        {Type: "STRING", Description: "Type of damage."},
										"description": {Type: "STRING", Description: "Description of damage."},
									},
									Required: []string{"part", "type"},
								},
							},
							"fraud_factors": {
								Type:        "ARRAY",
								Items:       &schema{Type: "STRING"},
								Description: "List of suspicious factors.",
							},
						},
						Required: []string{"summary", "status", "damages"},
					},
				}},
			}},
			SystemInstruction: &vendorContent{
				Parts: []vendorTextPart{{Text: systemScript}},
			},
		},
	}
}

// newOpeningTurn is the synthetic user turn sent right after setup so the
// model speaks first.
func newOpeningTurn() clientContentMessage {
	return clientContentMessage{
		ClientContent: clientContent{
			Turns: []vendorContent{{
				Parts: []vendorTextPart{{Text: "Здравствуйте, я готов к осмотру."}},
				Role:  "user",
			}},
			TurnComplete: true,
		},
	}
}

// newUserTextTurn wraps plain client text (including the FINISH_REPORT
// sentinel) as a completed user turn.
func newUserTextTurn(text string) clientContentMessage {
	return clientContentMessage{
		ClientContent: clientContent{
			Turns: []vendorContent{{
				Parts: []vendorTextPart{{Text: text}},
				Role:  "user",
			}},
			TurnComplete: true,
		},
	}
}
