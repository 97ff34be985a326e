// services/assistant_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estetica-voice-backend/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Assistant answers freeform caller questions the dialogue rules could not
// classify. An empty answer or an error both mean "no answer available" and
// the flow falls back to its default re-prompt.
type Assistant interface {
	RespondToQuestion(ctx context.Context, userText string, contextSummary map[string]string) (string, error)
}

const assistantTimeout = 5 * time.Second

type GeminiAssistant struct {
	model  *genai.GenerativeModel
	logger *zap.Logger
}

func NewGeminiAssistant(apiKey string) (*GeminiAssistant, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetMaxOutputTokens(120)
	model.SetTemperature(0.6)

	return &GeminiAssistant{model: model, logger: utils.GetLogger()}, nil
}

func (g *GeminiAssistant) RespondToQuestion(ctx context.Context, userText string, contextSummary map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, assistantTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildAssistantPrompt(userText, contextSummary)))
	if err != nil {
		g.logger.Warn("assistant request failed",
			zap.String("user_input", userText),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}

	answer := strings.TrimSpace(sb.String())
	g.logger.Info("assistant answered",
		zap.String("user_input", userText),
		zap.String("answer", answer),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, nil
}

func buildAssistantPrompt(userText string, contextSummary map[string]string) string {
	var ctxParts []string
	for _, key := range []string{"familia", "producto", "fecha solicitada", "paso actual"} {
		if v := contextSummary[key]; v != "" {
			ctxParts = append(ctxParts, key+": "+v)
		}
	}
	ctx := "sin contexto"
	if len(ctxParts) > 0 {
		ctx = strings.Join(ctxParts, " | ")
	}

	return "Eres un asistente amable y natural de Contemporánea Estética. " +
		"Habla en español, cálido y cercano, en 1 o 2 frases. " +
		"Usa escucha activa y ofrece el siguiente paso con tacto. " +
		"Si hay ambigüedad, pide una aclaración corta. " +
		"Servicios: faciales (limpieza, rejuvenecimiento, peeling) y manos (manicura, tratamientos). " +
		"Mantén respuestas breves y sin enumeraciones largas. " +
		"Contexto: " + ctx + "\n\n" +
		"Cliente: " + userText
}
