package services

import (
	"encoding/json"

	"github.com/serviteq/fieldops-backend/internal/dto"
)

// The webhook has gone through at least four response formats. Each historical
// shape gets its own recognizer — a predicate plus extractor tried in order —
// so a new format is a new entry, not another branch in a conditional tree.

// resolvePayload normalizes a decoded webhook body. The bool reports whether
// any recognizer matched; when none did, the returned AIResponse holds the
// stringified payload for the caller's terminal fallback.
func resolvePayload(doc any) (dto.AIResponse, bool, error) {
	// Inner-text shapes first: the payload of interest may be nested as a
	// possibly-JSON-encoded string inside a model-style or legacy envelope.
	if text, ok := extractInnerText(doc); ok {
		var inner any
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			// Not JSON: the inner string IS the answer.
			return dto.AIResponse{DisplayText: text}, true, nil
		}
		doc = inner
	}

	for _, recognize := range payloadRecognizers {
		if response, ok := recognize(doc); ok {
			return response, true, nil
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return dto.AIResponse{}, false, err
	}
	return dto.AIResponse{DisplayText: string(raw)}, false, nil
}

type payloadRecognizer func(doc any) (dto.AIResponse, bool)

var payloadRecognizers = []payloadRecognizer{
	recognizeAIResponse,
	recognizeElementEnvelope,
	recognizeBareElements,
	recognizePlainText,
}

// extractInnerText probes the two nesting conventions:
// candidates[0].content.parts[0].text (model-style) and
// content.params.respuesta (legacy).
func extractInnerText(doc any) (string, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return "", false
	}

	if candidates, ok := obj["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, true
						}
					}
				}
			}
		}
	}

	if content, ok := obj["content"].(map[string]any); ok {
		if params, ok := content["params"].(map[string]any); ok {
			if text, ok := params["respuesta"].(string); ok {
				return text, true
			}
		}
	}

	return "", false
}

// recognizeAIResponse accepts a payload that is already a complete response
// contract object.
func recognizeAIResponse(doc any) (dto.AIResponse, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return dto.AIResponse{}, false
	}
	if _, ok := obj["displayText"].(string); !ok {
		return dto.AIResponse{}, false
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return dto.AIResponse{}, false
	}
	var response dto.AIResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return dto.AIResponse{}, false
	}
	return response, true
}

// recognizeElementEnvelope accepts {text: [elements...]}, with or without the
// content wrapper some webhook versions add.
func recognizeElementEnvelope(doc any) (dto.AIResponse, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return dto.AIResponse{}, false
	}
	items, ok := obj["text"].([]any)
	if !ok {
		if content, isMap := obj["content"].(map[string]any); isMap {
			items, ok = content["text"].([]any)
		}
	}
	if !ok {
		return dto.AIResponse{}, false
	}
	return foldElements(items), true
}

// recognizeBareElements accepts a bare array where every item carries a type.
func recognizeBareElements(doc any) (dto.AIResponse, bool) {
	items, ok := doc.([]any)
	if !ok || len(items) == 0 {
		return dto.AIResponse{}, false
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return dto.AIResponse{}, false
		}
		if _, ok := obj["type"].(string); !ok {
			return dto.AIResponse{}, false
		}
	}
	return foldElements(items), true
}

func recognizePlainText(doc any) (dto.AIResponse, bool) {
	text, ok := doc.(string)
	if !ok {
		return dto.AIResponse{}, false
	}
	return dto.AIResponse{DisplayText: text}, true
}
